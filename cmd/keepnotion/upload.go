// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/keepnotion/internal/manifest"
	"github.com/pdiddy/keepnotion/internal/notion"
	"github.com/pdiddy/keepnotion/internal/secrets"
	"github.com/pdiddy/keepnotion/internal/upload"
	"github.com/pdiddy/keepnotion/pkg/types"
)

// DefaultManifestPath is where upload records created pages unless overridden.
const DefaultManifestPath = ".keepnotion/manifest.db"

var uploadCmd = &cobra.Command{
	Use:   "upload SOURCE_DIR",
	Short: "Mirror a directory of notes into Notion pages",
	Long: `Walk SOURCE_DIR and create one page per directory and per accepted file
under the parent page. Files become blocks: headings, lists, to-dos, quotes,
code fences, and paragraphs. A leading YAML frontmatter block may set the page
title and an emoji icon.

Created pages are recorded in a manifest so a repeated run skips unchanged
files and replaces changed ones.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	f := uploadCmd.Flags()
	f.String("parent", "", "parent page ID or URL (required)")
	f.String("token", "", "integration token (default: notion-token secret or NOTION_TOKEN)")
	f.Bool("dry-run", false, "print the pages that would be created without calling the API")
	f.Duration("delay", notion.DefaultCallDelay, "minimum delay between API calls")
	f.Int("max-retries", 5, "retries on HTTP 429 before giving up")
	f.StringSlice("ext", upload.DefaultExtensions, "accepted file extensions")
	f.Bool("root-page", false, "create a page for SOURCE_DIR itself")
	f.String("manifest", DefaultManifestPath, "manifest database path (empty disables resume)")

	bindFlag("upload.parent", f.Lookup("parent"))
	bindFlag("notion.token", f.Lookup("token"))
	bindFlag("upload.dry_run", f.Lookup("dry-run"))
	bindFlag("notion.call_delay", f.Lookup("delay"))
	bindFlag("notion.max_retries", f.Lookup("max-retries"))
	bindFlag("upload.extensions", f.Lookup("ext"))
	bindFlag("upload.root_page", f.Lookup("root-page"))
	bindFlag("upload.manifest", f.Lookup("manifest"))

	rootCmd.AddCommand(uploadCmd)
}

func uploadConfig(sourceDir string) types.UploadConfig {
	return types.UploadConfig{
		SourceDir:    sourceDir,
		ParentPageID: viper.GetString("upload.parent"),
		RootPage:     viper.GetBool("upload.root_page"),
		Extensions:   viper.GetStringSlice("upload.extensions"),
		DryRun:       viper.GetBool("upload.dry_run"),
		ManifestPath: viper.GetString("upload.manifest"),
	}
}

func notionConfig() types.NotionConfig {
	return types.NotionConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:    viper.GetDuration("notion.timeout"),
			UserAgent:  "keepnotion/" + version,
			MaxRetries: viper.GetInt("notion.max_retries"),
		},
		Token: secrets.Lookup(loadedSecrets, viper.GetString("notion.token"),
			secrets.NotionToken, "NOTION_TOKEN", "NOTION_API_KEY"),
		BaseURL:   viper.GetString("notion.base_url"),
		Version:   viper.GetString("notion.version"),
		CallDelay: viper.GetDuration("notion.call_delay"),
	}
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg := uploadConfig(args[0])
	ncfg := notionConfig()

	if cfg.ParentPageID == "" {
		return errors.New("--parent is required")
	}
	parentID, err := notion.NormalizeID(cfg.ParentPageID)
	if err != nil {
		return err
	}
	if ncfg.Token == "" && !cfg.DryRun {
		return errors.New("no integration token: pass --token, add .secrets/notion-token, or set NOTION_TOKEN")
	}
	cmd.SilenceUsage = true

	ctx, stop := signalContext()
	defer stop()

	store, err := openManifest(cfg)
	if err != nil {
		return err
	}
	// Assigned only when set so a nil store stays a nil Ledger.
	var ledger upload.Ledger
	if store != nil {
		defer store.Close()
		ledger = store
	}

	client := notion.NewClient(ncfg)
	if !cfg.DryRun {
		if _, err := client.GetPage(ctx, parentID); err != nil {
			return fmt.Errorf("parent page %s is not reachable (is it shared with the integration?): %w", parentID, err)
		}
	}

	start := time.Now()
	summary, err := upload.Mirror(ctx, client, ledger, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	slog.Info("upload finished", "elapsed", time.Since(start).Round(time.Millisecond))

	if store != nil && !cfg.DryRun && summary.Pages+summary.Directories > 0 {
		yamlPath := strings.TrimSuffix(cfg.ManifestPath, filepath.Ext(cfg.ManifestPath)) + ".yaml"
		if err := store.ExportYAML(ctx, yamlPath); err != nil {
			slog.Warn("exporting manifest", "path", yamlPath, "error", err)
		}
	}

	if summary.HasFailures() {
		return fmt.Errorf("%d item(s) failed to upload", summary.Failed)
	}
	return nil
}

// openManifest opens the manifest for cfg, or returns nil when it is
// disabled. A dry run reads an existing manifest read-only and never
// creates one.
func openManifest(cfg types.UploadConfig) (*manifest.Store, error) {
	switch {
	case cfg.ManifestPath == "":
		return nil, nil
	case cfg.DryRun && !fileExists(cfg.ManifestPath):
		return nil, nil
	case cfg.DryRun:
		return manifest.OpenReadOnly(cfg.ManifestPath)
	default:
		return manifest.Open(cfg.ManifestPath)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
