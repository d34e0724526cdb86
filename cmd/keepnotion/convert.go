// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/keepnotion/internal/cache"
	"github.com/pdiddy/keepnotion/internal/convert"
	"github.com/pdiddy/keepnotion/internal/llm"
	"github.com/pdiddy/keepnotion/internal/ocr"
	"github.com/pdiddy/keepnotion/internal/secrets"
	"github.com/pdiddy/keepnotion/pkg/types"
)

// detectEngine picks the OCR engine. Tests replace it.
var detectEngine = ocr.DetectEngine

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a Keep export into Markdown and HTML",
	Long: `Read every note JSON file in the input folder and write one Markdown and
one HTML file per note, grouped into folders by label. Text in image
attachments is read with tesseract and, unless --ocr-only is given, cleaned
up by a language model. OCR and model results are cached under --cache-dir.`,
	Args: cobra.NoArgs,
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.Bool("debug", false, "process only the first --count notes, one at a time")
	f.Int("count", convert.DefaultDebugCount, "number of notes processed in debug mode")
	f.Bool("ocr-only", false, "skip the language model and keep raw OCR text")
	f.Bool("skip-trashed", false, "ignore notes marked as trashed")
	f.String("input-folder", "Keep", "folder with the exported note JSON files")
	f.String("attachments-folder", "Keep", "folder with the exported attachments")
	f.String("output-markdown", "output_markdown", "folder for generated Markdown")
	f.String("output-html", "output_html", "folder for generated HTML")
	f.String("cache-dir", "cache", "folder for OCR and model result caches")
	f.Int("ocr-workers", ocr.DefaultWorkers, "concurrent OCR calls")
	f.Int("note-workers", convert.DefaultNoteWorkers, "concurrently processed notes")
	f.String("lang", ocr.DefaultLanguage, "tesseract language code")
	f.String("ocr-image", ocr.DefaultImage, "container image used when tesseract is not installed")
	f.String("model", llm.DefaultModel, "chat model used to clean up OCR text")
	f.Duration("ai-timeout", 60*time.Second, "timeout for one model request")

	bindFlag("convert.debug", f.Lookup("debug"))
	bindFlag("convert.debug_count", f.Lookup("count"))
	bindFlag("convert.ocr_only", f.Lookup("ocr-only"))
	bindFlag("convert.skip_trashed", f.Lookup("skip-trashed"))
	bindFlag("convert.input_dir", f.Lookup("input-folder"))
	bindFlag("convert.attachments_dir", f.Lookup("attachments-folder"))
	bindFlag("convert.markdown_dir", f.Lookup("output-markdown"))
	bindFlag("convert.html_dir", f.Lookup("output-html"))
	bindFlag("convert.cache_dir", f.Lookup("cache-dir"))
	bindFlag("ocr.workers", f.Lookup("ocr-workers"))
	bindFlag("convert.note_workers", f.Lookup("note-workers"))
	bindFlag("ocr.language", f.Lookup("lang"))
	bindFlag("ocr.image", f.Lookup("ocr-image"))
	bindFlag("ai.model", f.Lookup("model"))
	bindFlag("ai.timeout", f.Lookup("ai-timeout"))

	rootCmd.AddCommand(convertCmd)
}

func convertConfig() types.ConvertConfig {
	return types.ConvertConfig{
		AI: types.AIConfig{
			Model: viper.GetString("ai.model"),
			APIKey: secrets.Lookup(loadedSecrets, viper.GetString("ai.api_key"),
				secrets.OpenAIAPIKey, "OPENAI_API_KEY"),
			BaseURL:    viper.GetString("ai.base_url"),
			MaxRetries: viper.GetInt("ai.max_retries"),
		},
		OCR: types.OCRConfig{
			Language: viper.GetString("ocr.language"),
			Workers:  viper.GetInt("ocr.workers"),
			Image:    viper.GetString("ocr.image"),
		},
		UseLLM:         !viper.GetBool("convert.ocr_only"),
		Debug:          viper.GetBool("convert.debug"),
		DebugCount:     viper.GetInt("convert.debug_count"),
		NoteWorkers:    viper.GetInt("convert.note_workers"),
		SkipTrashed:    viper.GetBool("convert.skip_trashed"),
		InputDir:       viper.GetString("convert.input_dir"),
		AttachmentsDir: viper.GetString("convert.attachments_dir"),
		MarkdownDir:    viper.GetString("convert.markdown_dir"),
		HTMLDir:        viper.GetString("convert.html_dir"),
		CacheDir:       viper.GetString("convert.cache_dir"),
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg := convertConfig()
	if cfg.UseLLM && cfg.AI.APIKey == "" {
		return errors.New("no OpenAI API key: set OPENAI_API_KEY, add .secrets/openai-api-key, or pass --ocr-only")
	}
	cmd.SilenceUsage = true

	ctx, stop := signalContext()
	defer stop()

	engine, err := detectEngine(ctx, cfg.OCR)
	if err != nil {
		return err
	}

	ocrCache, err := cache.New(filepath.Join(cfg.CacheDir, "ocr"), "txt")
	if err != nil {
		return err
	}

	pipeline := &convert.Pipeline{
		OCR:    ocr.NewService(engine, ocrCache, cfg.OCR.Workers),
		Config: cfg,
	}

	if cfg.UseLLM {
		llmCache, err := cache.New(filepath.Join(cfg.CacheDir, "llm"), "md")
		if err != nil {
			return err
		}
		pipeline.Formatter = &llm.CachedFormatter{
			Formatter: &llm.OpenAIFormatter{
				APIKey:  cfg.AI.APIKey,
				Model:   cfg.AI.Model,
				BaseURL: cfg.AI.BaseURL,
				Client:  &http.Client{Timeout: viper.GetDuration("ai.timeout")},
			},
			Cache:      llmCache,
			MaxRetries: cfg.AI.MaxRetries,
		}
	}

	result, err := pipeline.ProcessAll(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d note(s) failed to convert", result.Failed)
	}
	return nil
}
