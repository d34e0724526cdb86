// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package upload mirrors a directory tree of text files into a tree of
// workspace pages. Directories become empty parent pages; accepted files
// become child pages whose content is the block conversion of their text.
// The walk is sequential and in lexical order.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/keepnotion/internal/blocks"
	"github.com/pdiddy/keepnotion/internal/manifest"
	"github.com/pdiddy/keepnotion/internal/notion"
	"github.com/pdiddy/keepnotion/pkg/types"
)

// DefaultExtensions are the file extensions uploaded when none are configured.
var DefaultExtensions = []string{".md", ".txt"}

// ErrNotDirectory is returned when the source is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// dryRunPageID stands in for pages that a dry run would create.
const dryRunPageID = "(dry-run)"

// PageCreator creates and archives pages. notion.Client implements it.
type PageCreator interface {
	CreatePage(ctx context.Context, parentID, title string, icon *notion.Icon, children []notion.Block) (*notion.Page, error)
	ArchivePage(ctx context.Context, id string) error
}

// Ledger remembers uploaded pages between runs. manifest.Store implements it.
type Ledger interface {
	Lookup(ctx context.Context, sourcePath string) (manifest.Entry, bool, error)
	Record(ctx context.Context, e manifest.Entry) error
}

// Summary holds counts from an upload run.
type Summary struct {
	Pages       int
	Directories int
	Skipped     int
	Failed      int
}

// Total returns the number of entries processed.
func (s Summary) Total() int {
	return s.Pages + s.Directories + s.Skipped + s.Failed
}

// HasFailures reports whether any entry failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

type mirror struct {
	creator PageCreator
	ledger  Ledger
	cfg     types.UploadConfig
	exts    map[string]bool
	w       io.Writer
	summary Summary
}

// Mirror uploads cfg.SourceDir under cfg.ParentPageID, printing per-entry
// status to w. A nil ledger disables resume. File failures are counted and
// the walk continues; a directory failure skips its subtree. The returned
// error is reserved for invalid input and cancellation.
func Mirror(ctx context.Context, creator PageCreator, ledger Ledger, cfg types.UploadConfig, w io.Writer) (Summary, error) {
	info, err := os.Stat(cfg.SourceDir)
	if err != nil {
		return Summary{}, fmt.Errorf("source %s: %w", cfg.SourceDir, err)
	}
	if !info.IsDir() {
		return Summary{}, fmt.Errorf("source %s: %w", cfg.SourceDir, ErrNotDirectory)
	}
	parentID, err := notion.NormalizeID(cfg.ParentPageID)
	if err != nil {
		return Summary{}, err
	}

	m := &mirror{creator: creator, ledger: ledger, cfg: cfg, exts: extensionSet(cfg.Extensions), w: w}

	if cfg.RootPage {
		root, err := filepath.Abs(cfg.SourceDir)
		if err != nil {
			return Summary{}, fmt.Errorf("resolving source: %w", err)
		}
		id, ok := m.directory(ctx, filepath.Base(root), ".", parentID)
		if !ok {
			m.printSummary()
			return m.summary, ctx.Err()
		}
		parentID = id
	}

	err = m.walk(ctx, cfg.SourceDir, "", parentID)
	m.printSummary()
	return m.summary, err
}

func extensionSet(exts []string) map[string]bool {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return set
}

// walk mirrors the entries of dir under parentID. rel is dir relative to
// the source root, in slash form, "" for the root itself.
func (m *mirror) walk(ctx context.Context, dir, rel, parentID string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		m.failed(relDir(rel), err)
		return nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		childRel := joinRel(rel, name)

		if entry.IsDir() {
			id, ok := m.directory(ctx, name, childRel, parentID)
			if !ok {
				continue
			}
			if err := m.walk(ctx, path, childRel, id); err != nil {
				return err
			}
			continue
		}

		if !m.exts[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		m.file(ctx, path, childRel, parentID)
	}
	return nil
}

// directory returns the page for a directory, creating it unless the
// ledger already holds one under the same parent.
func (m *mirror) directory(ctx context.Context, name, rel, parentID string) (string, bool) {
	label := relDir(rel)
	if prev, ok := m.lookup(ctx, rel); ok && prev.Kind == manifest.KindDirectory && prev.ParentID == parentID {
		fmt.Fprintf(m.w, "skipped %s (exists)\n", label)
		m.summary.Skipped++
		return prev.PageID, true
	}

	if m.cfg.DryRun {
		fmt.Fprintf(m.w, "would create %s\n", label)
		m.summary.Directories++
		return dryRunPageID, true
	}

	page, err := m.creator.CreatePage(ctx, parentID, name, nil, nil)
	if err != nil {
		m.failed(label, err)
		return "", false
	}
	m.record(ctx, manifest.Entry{SourcePath: rel, PageID: page.ID, ParentID: parentID, Kind: manifest.KindDirectory})
	fmt.Fprintf(m.w, "created %s\n", label)
	m.summary.Directories++
	return page.ID, true
}

// file uploads one file. An unchanged file already in the ledger is
// skipped; a changed one gets a new page and its old page is archived.
func (m *mirror) file(ctx context.Context, path, rel, parentID string) {
	info, err := os.Stat(path)
	if err != nil {
		m.failed(rel, err)
		return
	}
	modTime := manifest.FormatModTime(info.ModTime())

	prev, found := m.lookup(ctx, rel)
	if found && prev.Kind == manifest.KindFile && prev.ParentID == parentID && prev.ModTime == modTime {
		fmt.Fprintf(m.w, "skipped %s (unchanged)\n", rel)
		m.summary.Skipped++
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		m.failed(rel, err)
		return
	}
	fm, body := splitFrontmatter(string(data))
	title := fm.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	children := blocks.Convert(body)

	if m.cfg.DryRun {
		fmt.Fprintf(m.w, "would create %s (%d blocks)\n", rel, len(children))
		m.summary.Pages++
		return
	}

	page, err := m.creator.CreatePage(ctx, parentID, title, notion.EmojiIcon(fm.Icon), children)
	if err != nil {
		if page != nil {
			m.archive(ctx, page.ID, "incomplete page")
		}
		m.failed(rel, err)
		return
	}
	m.record(ctx, manifest.Entry{SourcePath: rel, PageID: page.ID, ParentID: parentID, Kind: manifest.KindFile, ModTime: modTime})

	if found && prev.Kind == manifest.KindFile && prev.PageID != page.ID {
		m.archive(ctx, prev.PageID, "previous version")
		fmt.Fprintf(m.w, "replaced %s (%d blocks)\n", rel, len(children))
	} else {
		fmt.Fprintf(m.w, "created %s (%d blocks)\n", rel, len(children))
	}
	m.summary.Pages++
}

func (m *mirror) lookup(ctx context.Context, rel string) (manifest.Entry, bool) {
	if m.ledger == nil {
		return manifest.Entry{}, false
	}
	e, ok, err := m.ledger.Lookup(ctx, rel)
	if err != nil {
		slog.WarnContext(ctx, "manifest lookup failed", "path", rel, "error", err)
		return manifest.Entry{}, false
	}
	return e, ok
}

func (m *mirror) record(ctx context.Context, e manifest.Entry) {
	if m.ledger == nil {
		return
	}
	if err := m.ledger.Record(ctx, e); err != nil {
		slog.WarnContext(ctx, "manifest record failed", "path", e.SourcePath, "error", err)
	}
}

func (m *mirror) archive(ctx context.Context, pageID, reason string) {
	if err := m.creator.ArchivePage(ctx, pageID); err != nil {
		slog.WarnContext(ctx, "archiving page failed", "page", pageID, "reason", reason, "error", err)
	}
}

func (m *mirror) failed(label string, err error) {
	if notion.IsRateLimited(err) {
		fmt.Fprintf(m.w, "failed  %s: rate limited after retries: %v\n", label, err)
	} else {
		fmt.Fprintf(m.w, "failed  %s: %v\n", label, err)
	}
	m.summary.Failed++
}

func (m *mirror) printSummary() {
	s := m.summary
	fmt.Fprintf(m.w, "\nUpload summary: %d pages, %d directories, %d skipped, %d failed (total: %d)\n",
		s.Pages, s.Directories, s.Skipped, s.Failed, s.Total())
}

func joinRel(rel, name string) string {
	if rel == "" {
		return name
	}
	return rel + "/" + name
}

// relDir labels a directory in status lines.
func relDir(rel string) string {
	if rel == "" || rel == "." {
		return "./"
	}
	return rel + "/"
}
