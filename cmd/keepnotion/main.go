// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the keepnotion CLI.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/keepnotion/internal/logging"
	"github.com/pdiddy/keepnotion/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from the secrets directory at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the keepnotion CLI.
var rootCmd = &cobra.Command{
	Use:   "keepnotion",
	Short: "Move exported notes into Notion, Markdown, and HTML",
	Long: `keepnotion moves notes out of export archives.

upload mirrors a directory of Markdown or text files into a tree of Notion
pages. convert turns a Google Keep Takeout export into Markdown and HTML,
reading the text in image attachments with OCR and optionally cleaning it
up with a language model.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Setup(viper.GetString("log_level")); err != nil {
			return err
		}
		s, err := secrets.Load(viper.GetString("secrets_dir"))
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			slog.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./keepnotion.yaml or ~/.config/keepnotion/keepnotion.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of key files (notion-token, openai-api-key)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file merged into the environment when present")

	bindFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	bindFlag("secrets_dir", rootCmd.PersistentFlags().Lookup("secrets-dir"))
	bindFlag("env_file", rootCmd.PersistentFlags().Lookup("env-file"))
}

// flagBindings maps config keys to the flags that override them. Bindings
// are applied when the command runs, after every init has added its flags.
var flagBindings = map[string]*pflag.Flag{}

func bindFlag(key string, f *pflag.Flag) {
	flagBindings[key] = f
}

func applyFlagBindings() {
	for key, f := range flagBindings {
		if err := viper.BindPFlag(key, f); err != nil {
			slog.Warn("binding flag", "key", key, "error", err)
		}
	}
}

func initConfig() {
	applyFlagBindings()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("keepnotion")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "keepnotion"))
		}
	}

	viper.SetEnvPrefix("KEEPNOTION")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Info("using config file", "path", viper.ConfigFileUsed())
	}

	if n, err := loadDotEnv(viper.GetString("env_file")); err != nil {
		slog.Warn("reading env file", "error", err)
	} else if n > 0 {
		slog.Debug("merged env file", "path", viper.GetString("env_file"), "vars", n)
	}
}

// signalContext is cancelled on interrupt so batch runs stop between items.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
