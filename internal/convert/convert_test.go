// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/keepnotion/pkg/types"
)

// fakeOCR returns canned text per attachment file name.
type fakeOCR struct {
	mu    sync.Mutex
	texts map[string]string
	errs  map[string]error
	seen  []string
}

func (f *fakeOCR) OCRTolerant(_ context.Context, path string) string {
	name := filepath.Base(path)
	f.mu.Lock()
	f.seen = append(f.seen, name)
	f.mu.Unlock()
	if f.errs[name] != nil {
		return ""
	}
	return f.texts[name]
}

// fakeFormatter upper-cases its input.
type fakeFormatter struct {
	err error
}

func (f *fakeFormatter) FormatKey(_ context.Context, _ string, raw string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return strings.ToUpper(raw), nil
}

type fixture struct {
	cfg types.ConvertConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := types.ConvertConfig{
		InputDir:       filepath.Join(root, "Keep"),
		AttachmentsDir: filepath.Join(root, "Keep"),
		MarkdownDir:    filepath.Join(root, "output_markdown"),
		HTMLDir:        filepath.Join(root, "output_html"),
	}
	require.NoError(t, os.MkdirAll(cfg.InputDir, 0o755))
	return &fixture{cfg: cfg}
}

func (f *fixture) note(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(f.cfg.InputDir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func (f *fixture) attachment(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.cfg.AttachmentsDir, name), []byte("img"), 0o644))
}

const receiptNote = `{
  "title": "Receipt: March",
  "textContent": "Lunch",
  "labels": [{"name": "Finance"}, {"name": "2024"}],
  "attachments": [{"filePath": "r1.jpg"}, {"filePath": "r2.png"}, {"filePath": "missing.png"}],
  "createdTimestampUsec": 1700000000000000,
  "userEditedTimestampUsec": 1700000000000000
}`

func TestProcessNote(t *testing.T) {
	fx := newFixture(t)
	path := fx.note(t, "receipt.json", receiptNote)
	fx.attachment(t, "r1.jpg")
	fx.attachment(t, "r2.png")

	ocr := &fakeOCR{texts: map[string]string{"r1.jpg": "total 12", "r2.png": "tip 2"}}
	p := &Pipeline{OCR: ocr, Formatter: &fakeFormatter{}, Config: fx.cfg}

	res, err := p.ProcessNote(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Receipt: March", res.Title)
	assert.Equal(t, 2, res.Attachments)
	assert.Equal(t, filepath.Join(fx.cfg.MarkdownDir, "Finance_2024", "Receipt_ March.md"), res.MarkdownPath)
	assert.Equal(t, filepath.Join(fx.cfg.HTMLDir, "Finance_2024", "Receipt_ March.html"), res.HTMLPath)
	assert.ElementsMatch(t, []string{"r1.jpg", "r2.png"}, ocr.seen)

	md, err := os.ReadFile(res.MarkdownPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Receipt: March\n")
	assert.Contains(t, string(md), "**Labels:** Finance, 2024")
	assert.Contains(t, string(md), "### Attachment 1\n\n#### Raw OCR Output:\n```\ntotal 12\n```\n\n#### LLM Output:\nTOTAL 12\n")
	assert.Contains(t, string(md), "### Attachment 2\n\n#### Raw OCR Output:\n```\ntip 2\n```")

	html, err := os.ReadFile(res.HTMLPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "data:image/jpeg;base64,")
	assert.Contains(t, string(html), "data:image/png;base64,")
	assert.Contains(t, string(html), "<p>TOTAL 12</p>")
}

func TestProcessNoteOCROnly(t *testing.T) {
	fx := newFixture(t)
	path := fx.note(t, "receipt.json", receiptNote)
	fx.attachment(t, "r1.jpg")

	p := &Pipeline{OCR: &fakeOCR{texts: map[string]string{"r1.jpg": "total 12"}}, Config: fx.cfg}
	res, err := p.ProcessNote(context.Background(), path)
	require.NoError(t, err)

	md, err := os.ReadFile(res.MarkdownPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "total 12")
	assert.NotContains(t, string(md), "LLM Output")
}

func TestProcessNoteDegradesOnAttachmentErrors(t *testing.T) {
	fx := newFixture(t)
	path := fx.note(t, "receipt.json", receiptNote)
	fx.attachment(t, "r1.jpg")
	fx.attachment(t, "r2.png")

	ocr := &fakeOCR{
		texts: map[string]string{"r2.png": "tip 2"},
		errs:  map[string]error{"r1.jpg": errors.New("engine crashed")},
	}
	p := &Pipeline{OCR: ocr, Formatter: &fakeFormatter{err: errors.New("quota")}, Config: fx.cfg}

	res, err := p.ProcessNote(context.Background(), path)
	require.NoError(t, err)

	md, err := os.ReadFile(res.MarkdownPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "### Attachment 1\n\n#### Raw OCR Output:\n```\n\n```")
	assert.Contains(t, string(md), "tip 2")
	assert.NotContains(t, string(md), "LLM Output")
}

func TestProcessNoteSkipTrashed(t *testing.T) {
	fx := newFixture(t)
	path := fx.note(t, "old.json", `{"title": "Old", "isTrashed": true}`)
	fx.cfg.SkipTrashed = true

	p := &Pipeline{OCR: &fakeOCR{}, Config: fx.cfg}
	res, err := p.ProcessNote(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.NoDirExists(t, fx.cfg.MarkdownDir)
}

func TestProcessNoteUntitledUsesExportName(t *testing.T) {
	fx := newFixture(t)
	path := fx.note(t, "2024-03-01T10_00_00.000-05_00.json", `{"textContent": "hello"}`)

	p := &Pipeline{OCR: &fakeOCR{}, Config: fx.cfg}
	res, err := p.ProcessNote(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Untitled", res.Title)
	assert.Equal(t, filepath.Join(fx.cfg.MarkdownDir, "Unlabeled", "2024-03-01T10_00_00.000-05_00.md"), res.MarkdownPath)
	md, err := os.ReadFile(res.MarkdownPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "# Untitled\n"))
}

func TestProcessNoteBadJSON(t *testing.T) {
	fx := newFixture(t)
	path := fx.note(t, "bad.json", "{")

	p := &Pipeline{OCR: &fakeOCR{}, Config: fx.cfg}
	_, err := p.ProcessNote(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing note")
}

func TestListNotes(t *testing.T) {
	fx := newFixture(t)
	fx.note(t, "b.json", "{}")
	fx.note(t, "a.JSON", "{}")
	fx.note(t, "c.txt", "")
	require.NoError(t, os.Mkdir(filepath.Join(fx.cfg.InputDir, "d.json"), 0o755))

	got, err := ListNotes(fx.cfg.InputDir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(fx.cfg.InputDir, "a.JSON"),
		filepath.Join(fx.cfg.InputDir, "b.json"),
	}, got)

	_, err = ListNotes(filepath.Join(fx.cfg.InputDir, "nope"))
	assert.Error(t, err)
}

func TestProcessAll(t *testing.T) {
	fx := newFixture(t)
	fx.note(t, "a.json", `{"title": "Alpha", "textContent": "one"}`)
	fx.note(t, "b.json", `{"title": "Beta", "isTrashed": true}`)
	fx.note(t, "c.json", "{broken")
	fx.note(t, "d.json", `{"title": "Delta", "labels": [{"name": "Work"}]}`)
	fx.cfg.SkipTrashed = true
	fx.cfg.NoteWorkers = 2

	var out bytes.Buffer
	p := &Pipeline{OCR: &fakeOCR{}, Config: fx.cfg}
	result, err := p.ProcessAll(context.Background(), &out)
	require.NoError(t, err)

	assert.Equal(t, BatchResult{Converted: 2, Skipped: 1, Failed: 1}, result)
	assert.Equal(t, 4, result.Total())
	assert.True(t, result.HasFailures())

	log := out.String()
	assert.Contains(t, log, "skipped b.json (trashed)")
	assert.Contains(t, log, "failed  c.json:")
	assert.Contains(t, log, "converted a.json -> "+filepath.Join(fx.cfg.MarkdownDir, "Unlabeled", "Alpha.md"))
	assert.Contains(t, log, "Batch summary: 2 converted, 1 skipped, 1 failed (total: 4)")
	assert.FileExists(t, filepath.Join(fx.cfg.HTMLDir, "Work", "Delta.html"))
}

func TestProcessAllDebugLimitsCount(t *testing.T) {
	fx := newFixture(t)
	for _, name := range []string{"c.json", "a.json", "b.json"} {
		fx.note(t, name, `{"title": "`+strings.TrimSuffix(name, ".json")+`"}`)
	}
	fx.cfg.Debug = true
	fx.cfg.DebugCount = 2

	var out bytes.Buffer
	p := &Pipeline{OCR: &fakeOCR{}, Config: fx.cfg}
	result, err := p.ProcessAll(context.Background(), &out)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Converted)
	assert.False(t, result.HasFailures())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[0], "converted a.json"))
	assert.True(t, strings.HasPrefix(lines[1], "converted b.json"))
	assert.NotContains(t, out.String(), "c.json")
}

func TestProcessAllMissingInput(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.InputDir = filepath.Join(fx.cfg.InputDir, "absent")
	p := &Pipeline{OCR: &fakeOCR{}, Config: fx.cfg}
	_, err := p.ProcessAll(context.Background(), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestProcessAllCancelled(t *testing.T) {
	fx := newFixture(t)
	fx.note(t, "a.json", `{"title": "A"}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	p := &Pipeline{OCR: &fakeOCR{}, Config: fx.cfg}
	result, err := p.ProcessAll(ctx, &out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.Total())
	assert.Contains(t, out.String(), "Batch summary: 0 converted, 0 skipped, 0 failed (total: 0)")
}

// cancellingOCR cancels the run the first time it is called.
type cancellingOCR struct {
	cancel context.CancelFunc
}

func (c *cancellingOCR) OCRTolerant(context.Context, string) string {
	c.cancel()
	return ""
}

func TestProcessAllCancelledMidRunPrintsSummary(t *testing.T) {
	for _, debug := range []bool{true, false} {
		t.Run(map[bool]string{true: "debug", false: "concurrent"}[debug], func(t *testing.T) {
			fx := newFixture(t)
			fx.note(t, "a.json", `{"title": "A", "attachments": [{"filePath": "a.png"}]}`)
			fx.note(t, "b.json", `{"title": "B"}`)
			fx.note(t, "c.json", `{"title": "C"}`)
			fx.attachment(t, "a.png")
			fx.cfg.Debug = debug
			fx.cfg.NoteWorkers = 1

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var out bytes.Buffer
			p := &Pipeline{OCR: &cancellingOCR{cancel: cancel}, Config: fx.cfg}
			result, err := p.ProcessAll(ctx, &out)
			assert.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, 1, result.Total())
			assert.Contains(t, out.String(), "a.json")
			assert.NotContains(t, out.String(), "b.json")
			assert.Contains(t, out.String(), "Batch summary:")
		})
	}
}

func TestProcessAllSameTitleLeavesOneWholeNote(t *testing.T) {
	fx := newFixture(t)
	bodies := make(map[string]bool)
	for i := range 200 {
		body := strings.Repeat(fmt.Sprintf("note%03d ", i), 50+i*7)
		bodies[strings.TrimSpace(body)] = true
		fx.note(t, fmt.Sprintf("n%03d.json", i), fmt.Sprintf(`{"title": "Same", "textContent": %q}`, body))
	}
	fx.cfg.NoteWorkers = 16

	p := &Pipeline{OCR: &fakeOCR{}, Config: fx.cfg}
	result, err := p.ProcessAll(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 200, result.Converted)

	md, err := os.ReadFile(filepath.Join(fx.cfg.MarkdownDir, "Unlabeled", "Same.md"))
	require.NoError(t, err)
	_, content, found := strings.Cut(string(md), "## Note Content\n\n")
	require.True(t, found)
	assert.True(t, bodies[strings.TrimSpace(content)], "output mixes several notes")

	entries, err := os.ReadDir(filepath.Join(fx.cfg.MarkdownDir, "Unlabeled"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}
