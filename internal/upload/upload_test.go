// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/keepnotion/internal/manifest"
	"github.com/pdiddy/keepnotion/internal/notion"
	"github.com/pdiddy/keepnotion/pkg/types"
)

const (
	rawParent  = "0123456789abcdef0123456789abcdef"
	rootParent = "01234567-89ab-cdef-0123-456789abcdef"
)

type createdPage struct {
	ID     string
	Parent string
	Title  string
	Icon   string
	Blocks int
}

// fakeCreator records page creation and fails on request by title.
type fakeCreator struct {
	created  []createdPage
	archived []string
	fail     map[string]error
	partial  map[string]bool
	n        int
}

func (f *fakeCreator) CreatePage(_ context.Context, parentID, title string, icon *notion.Icon, children []notion.Block) (*notion.Page, error) {
	if err := f.fail[title]; err != nil {
		return nil, err
	}
	f.n++
	id := fmt.Sprintf("page-%d", f.n)
	p := createdPage{ID: id, Parent: parentID, Title: title, Blocks: len(children)}
	if icon != nil {
		p.Icon = icon.Emoji
	}
	f.created = append(f.created, p)
	if f.partial[title] {
		return &notion.Page{ID: id}, errors.New("content incomplete")
	}
	return &notion.Page{ID: id}, nil
}

func (f *fakeCreator) ArchivePage(_ context.Context, id string) error {
	f.archived = append(f.archived, id)
	return nil
}

func (f *fakeCreator) titles() []string {
	var out []string
	for _, p := range f.created {
		out = append(out, p.Title)
	}
	return out
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		if content == "<dir>" {
			require.NoError(t, os.MkdirAll(p, 0o755))
			continue
		}
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func sampleTree(t *testing.T) string {
	return writeTree(t, map[string]string{
		"a.md":        "# A\ntext",
		"b.txt":       "plain",
		"c.pdf":       "%PDF",
		".hidden.md":  "secret",
		".git/config": "x",
		"empty":       "<dir>",
		"sub/d.md":    "---\ntitle: Dee\nicon: \"📝\"\n---\n- one\n- two\n- three",
	})
}

func TestMirror(t *testing.T) {
	src := sampleTree(t)
	fc := &fakeCreator{}
	var out bytes.Buffer

	sum, err := Mirror(context.Background(), fc, nil, types.UploadConfig{SourceDir: src, ParentPageID: rawParent}, &out)
	require.NoError(t, err)

	assert.Equal(t, Summary{Pages: 3, Directories: 2}, sum)
	assert.False(t, sum.HasFailures())
	assert.Equal(t, []createdPage{
		{ID: "page-1", Parent: rootParent, Title: "a", Blocks: 2},
		{ID: "page-2", Parent: rootParent, Title: "b", Blocks: 1},
		{ID: "page-3", Parent: rootParent, Title: "empty"},
		{ID: "page-4", Parent: rootParent, Title: "sub"},
		{ID: "page-5", Parent: "page-4", Title: "Dee", Icon: "📝", Blocks: 3},
	}, fc.created)

	log := out.String()
	assert.Contains(t, log, "created a.md (2 blocks)\n")
	assert.Contains(t, log, "created sub/\n")
	assert.Contains(t, log, "created sub/d.md (3 blocks)\n")
	assert.NotContains(t, log, "hidden")
	assert.Contains(t, log, "Upload summary: 3 pages, 2 directories, 0 skipped, 0 failed (total: 5)")
}

func TestMirrorDryRun(t *testing.T) {
	src := sampleTree(t)
	fc := &fakeCreator{}
	var out bytes.Buffer

	sum, err := Mirror(context.Background(), fc, nil, types.UploadConfig{SourceDir: src, ParentPageID: rawParent, DryRun: true}, &out)
	require.NoError(t, err)

	assert.Empty(t, fc.created)
	assert.Equal(t, Summary{Pages: 3, Directories: 2}, sum)
	assert.Contains(t, out.String(), "would create sub/\n")
	assert.Contains(t, out.String(), "would create sub/d.md (3 blocks)\n")
}

func TestMirrorRootPage(t *testing.T) {
	src := writeTree(t, map[string]string{"note.md": "hi"})
	fc := &fakeCreator{}

	_, err := Mirror(context.Background(), fc, nil, types.UploadConfig{SourceDir: src, ParentPageID: rawParent, RootPage: true}, &bytes.Buffer{})
	require.NoError(t, err)

	require.Len(t, fc.created, 2)
	assert.Equal(t, filepath.Base(src), fc.created[0].Title)
	assert.Equal(t, rootParent, fc.created[0].Parent)
	assert.Equal(t, "page-1", fc.created[1].Parent)
}

func TestMirrorFileFailureContinues(t *testing.T) {
	src := sampleTree(t)
	fc := &fakeCreator{fail: map[string]error{"a": errors.New("validation_error: bad block")}}
	var out bytes.Buffer

	sum, err := Mirror(context.Background(), fc, nil, types.UploadConfig{SourceDir: src, ParentPageID: rawParent}, &out)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 2, sum.Pages)
	assert.True(t, sum.HasFailures())
	assert.Contains(t, out.String(), "failed  a.md: validation_error: bad block")
	assert.Equal(t, []string{"b", "empty", "sub", "Dee"}, fc.titles())
}

func TestMirrorDirectoryFailureSkipsSubtree(t *testing.T) {
	src := sampleTree(t)
	fc := &fakeCreator{fail: map[string]error{"sub": errors.New("boom")}}
	var out bytes.Buffer

	sum, err := Mirror(context.Background(), fc, nil, types.UploadConfig{SourceDir: src, ParentPageID: rawParent}, &out)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Failed)
	assert.NotContains(t, fc.titles(), "Dee")
	assert.Contains(t, out.String(), "failed  sub/: boom")
}

func TestMirrorRateLimitedFailure(t *testing.T) {
	src := writeTree(t, map[string]string{"a.md": "x"})
	fc := &fakeCreator{fail: map[string]error{"a": &notion.Error{Status: 429, Code: "rate_limited", Message: "slow down"}}}
	var out bytes.Buffer

	sum, err := Mirror(context.Background(), fc, nil, types.UploadConfig{SourceDir: src, ParentPageID: rawParent}, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Contains(t, out.String(), "failed  a.md: rate limited after retries: rate_limited: slow down")
}

func TestMirrorPartialPageArchived(t *testing.T) {
	src := writeTree(t, map[string]string{"big.md": "x"})
	fc := &fakeCreator{partial: map[string]bool{"big": true}}

	sum, err := Mirror(context.Background(), fc, nil, types.UploadConfig{SourceDir: src, ParentPageID: rawParent}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, []string{"page-1"}, fc.archived)
}

func TestMirrorExtensions(t *testing.T) {
	src := sampleTree(t)
	fc := &fakeCreator{}

	sum, err := Mirror(context.Background(), fc, nil, types.UploadConfig{SourceDir: src, ParentPageID: rawParent, Extensions: []string{"PDF"}}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Pages)
	assert.Equal(t, []string{"c", "empty", "sub"}, fc.titles())
}

func TestMirrorResumesFromManifest(t *testing.T) {
	src := sampleTree(t)
	store, err := manifest.Open(filepath.Join(t.TempDir(), "manifest.db"))
	require.NoError(t, err)
	defer store.Close()
	cfg := types.UploadConfig{SourceDir: src, ParentPageID: rawParent}
	ctx := context.Background()

	fc := &fakeCreator{}
	_, err = Mirror(ctx, fc, store, cfg, &bytes.Buffer{})
	require.NoError(t, err)
	require.Len(t, fc.created, 5)

	// Second run: nothing changed.
	fc2 := &fakeCreator{n: 100}
	var out bytes.Buffer
	sum, err := Mirror(ctx, fc2, store, cfg, &out)
	require.NoError(t, err)
	assert.Empty(t, fc2.created)
	assert.Equal(t, Summary{Skipped: 5}, sum)
	assert.Contains(t, out.String(), "skipped a.md (unchanged)")
	assert.Contains(t, out.String(), "skipped sub/ (exists)")

	// Third run: a.md changed.
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.md"), []byte("# A\nnew text\nmore"), 0o644))
	require.NoError(t, os.Chtimes(filepath.Join(src, "a.md"), later, later))

	fc3 := &fakeCreator{n: 200}
	out.Reset()
	sum, err = Mirror(ctx, fc3, store, cfg, &out)
	require.NoError(t, err)
	assert.Equal(t, Summary{Pages: 1, Skipped: 4}, sum)
	require.Len(t, fc3.created, 1)
	assert.Equal(t, "a", fc3.created[0].Title)
	assert.Equal(t, []string{"page-1"}, fc3.archived)
	assert.Contains(t, out.String(), "replaced a.md (3 blocks)")

	e, ok, err := store.Lookup(ctx, "a.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "page-201", e.PageID)

	e, ok, err = store.Lookup(ctx, "sub/d.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "page-4", e.ParentID)
}

func TestMirrorDryRunWritesNothing(t *testing.T) {
	src := sampleTree(t)
	store, err := manifest.Open(filepath.Join(t.TempDir(), "manifest.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = Mirror(context.Background(), &fakeCreator{}, store, types.UploadConfig{SourceDir: src, ParentPageID: rawParent, DryRun: true}, &bytes.Buffer{})
	require.NoError(t, err)

	entries, err := store.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMirrorInvalidInput(t *testing.T) {
	src := sampleTree(t)

	_, err := Mirror(context.Background(), &fakeCreator{}, nil, types.UploadConfig{SourceDir: filepath.Join(src, "a.md"), ParentPageID: rawParent}, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = Mirror(context.Background(), &fakeCreator{}, nil, types.UploadConfig{SourceDir: filepath.Join(src, "nope"), ParentPageID: rawParent}, &bytes.Buffer{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Mirror(context.Background(), &fakeCreator{}, nil, types.UploadConfig{SourceDir: src, ParentPageID: "not-a-page"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, notion.ErrInvalidPageID)
}

func TestMirrorCancelled(t *testing.T) {
	src := sampleTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fc := &fakeCreator{}
	_, err := Mirror(ctx, fc, nil, types.UploadConfig{SourceDir: src, ParentPageID: rawParent}, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fc.created)
}

func TestSplitFrontmatter(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantTitle string
		wantIcon  string
		wantBody  string
	}{
		{name: "none", in: "# Title\nbody", wantBody: "# Title\nbody"},
		{name: "title and icon", in: "---\ntitle: Hello\nicon: \"🚀\"\n---\nbody", wantTitle: "Hello", wantIcon: "🚀", wantBody: "body"},
		{name: "crlf", in: "---\r\ntitle: Win\r\n---\r\nbody", wantTitle: "Win", wantBody: "body"},
		{name: "empty header", in: "---\n---\nbody", wantBody: "body"},
		{name: "header only", in: "---\ntitle: Only\n---", wantTitle: "Only", wantBody: ""},
		{name: "unterminated", in: "---\ntitle: X\nbody", wantBody: "---\ntitle: X\nbody"},
		{name: "divider not yaml", in: "---\nJust text\n---\nmore", wantBody: "---\nJust text\n---\nmore"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body := splitFrontmatter(tt.in)
			assert.Equal(t, tt.wantTitle, fm.Title)
			assert.Equal(t, tt.wantIcon, fm.Icon)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}
