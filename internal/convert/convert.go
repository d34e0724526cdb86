// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns exported Keep notes into Markdown and HTML files.
// Each note's image attachments are recognized, optionally cleaned up by a
// language model, and rendered beside the note text.
package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/keepnotion/internal/keep"
	"github.com/pdiddy/keepnotion/internal/render"
	"github.com/pdiddy/keepnotion/pkg/types"
)

const (
	// DefaultDebugCount is the number of notes processed in debug mode.
	DefaultDebugCount = 15
	// DefaultNoteWorkers bounds concurrently processed notes.
	DefaultNoteWorkers = 8
)

// Recognizer extracts text from an image file. Failures are logged by the
// Recognizer and reported as empty text.
type Recognizer interface {
	OCRTolerant(ctx context.Context, path string) string
}

// Formatter cleans up recognized text. key identifies the attachment.
type Formatter interface {
	FormatKey(ctx context.Context, key, raw string) (string, error)
}

// Pipeline converts notes. A nil Formatter means OCR only.
type Pipeline struct {
	OCR       Recognizer
	Formatter Formatter
	Config    types.ConvertConfig
}

// Result describes one processed note.
type Result struct {
	Title        string
	MarkdownPath string
	HTMLPath     string
	Attachments  int
	Skipped      bool
}

// BatchResult holds counts from a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the number of notes processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any note failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ProcessNote converts the note at jsonPath and writes
// <MarkdownDir>/<labels>/<title>.md and <HTMLDir>/<labels>/<title>.html.
// Recognition and formatting failures degrade to empty or raw text; only
// load, render, and write failures are returned.
func (p *Pipeline) ProcessNote(ctx context.Context, jsonPath string) (Result, error) {
	note, err := keep.Load(jsonPath)
	if err != nil {
		return Result{}, err
	}
	res := Result{Title: note.DisplayTitle()}
	if p.Config.SkipTrashed && note.IsTrashed {
		res.Skipped = true
		return res, nil
	}

	paths := note.AttachmentPaths(p.Config.AttachmentsDir)
	res.Attachments = len(paths)

	doc := render.NewDocument(note, p.Formatter != nil)
	doc.Attachments, err = p.processAttachments(ctx, paths)
	if err != nil {
		return res, err
	}

	html, err := render.HTML(doc)
	if err != nil {
		return res, err
	}

	stem := outputStem(note, jsonPath)
	folder := note.LabelFolder()
	res.MarkdownPath = filepath.Join(p.Config.MarkdownDir, folder, stem+".md")
	res.HTMLPath = filepath.Join(p.Config.HTMLDir, folder, stem+".html")

	if err := writeOutput(res.MarkdownPath, render.Markdown(doc)); err != nil {
		return res, err
	}
	if err := writeOutput(res.HTMLPath, html); err != nil {
		return res, err
	}
	return res, nil
}

// processAttachments recognizes and formats all attachments concurrently,
// keeping export order. OCR concurrency is bounded by the Recognizer.
func (p *Pipeline) processAttachments(ctx context.Context, paths []string) ([]render.Attachment, error) {
	out := make([]render.Attachment, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			out[i] = p.processAttachment(gctx, path)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) processAttachment(ctx context.Context, path string) render.Attachment {
	a := render.Attachment{Path: path}
	text := p.OCR.OCRTolerant(ctx, path)
	a.OCR = text
	a.Formatted = text

	if p.Formatter == nil || strings.TrimSpace(text) == "" {
		return a
	}
	formatted, err := p.Formatter.FormatKey(ctx, filepath.Base(path), text)
	if err != nil {
		slog.ErrorContext(ctx, "formatting failed", "file", path, "error", err)
		return a
	}
	a.Formatted = formatted
	return a
}

// outputStem names the output files after the note title, falling back to
// the export file name for untitled notes so they do not overwrite each other.
func outputStem(n *keep.Note, jsonPath string) string {
	if stem := keep.SanitizeFilename(n.Title); stem != "" {
		return stem
	}
	base := strings.TrimSuffix(filepath.Base(jsonPath), filepath.Ext(jsonPath))
	if stem := keep.SanitizeFilename(base); stem != "" {
		return stem
	}
	return keep.UntitledNote
}

// writeOutput replaces path atomically, so notes that share an output path
// leave one whole note behind rather than a mix of several.
func writeOutput(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ListNotes returns the note JSON files in dir in lexical order.
func ListNotes(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// ProcessAll converts every note in the input directory, printing per-note
// status to w and returning a summary. In debug mode only the first
// DebugCount notes are processed, one at a time; otherwise up to
// NoteWorkers notes run concurrently. Note failures are counted, not
// returned. On cancellation no further notes start, in-flight notes finish
// or fail, the summary is still printed, and the context error is returned.
func (p *Pipeline) ProcessAll(ctx context.Context, w io.Writer) (BatchResult, error) {
	paths, err := ListNotes(p.Config.InputDir)
	if err != nil {
		return BatchResult{}, err
	}

	var (
		mu     sync.Mutex
		result BatchResult
	)
	record := func(path string, res Result, err error) {
		mu.Lock()
		defer mu.Unlock()
		name := filepath.Base(path)
		switch {
		case err != nil:
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			result.Failed++
		case res.Skipped:
			fmt.Fprintf(w, "skipped %s (trashed)\n", name)
			result.Skipped++
		default:
			fmt.Fprintf(w, "converted %s -> %s\n", name, res.MarkdownPath)
			result.Converted++
		}
	}

	if p.Config.Debug {
		count := p.Config.DebugCount
		if count <= 0 {
			count = DefaultDebugCount
		}
		if len(paths) > count {
			paths = paths[:count]
		}
		slog.InfoContext(ctx, "debug mode: processing notes sequentially", "count", len(paths))
		for _, path := range paths {
			if ctx.Err() != nil {
				break
			}
			res, err := p.ProcessNote(ctx, path)
			record(path, res, err)
		}
	} else {
		workers := p.Config.NoteWorkers
		if workers <= 0 {
			workers = DefaultNoteWorkers
		}
		var g errgroup.Group
		g.SetLimit(workers)
		for _, path := range paths {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				res, err := p.ProcessNote(ctx, path)
				record(path, res, err)
				return nil
			})
		}
		g.Wait()
	}

	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result, ctx.Err()
}
