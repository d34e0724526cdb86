// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package keep models notes exported by Google Takeout for Keep.
// Each note is one JSON file; attachments sit beside it and are referenced
// by relative filePath.
package keep

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// UntitledNote is used when a note has no title.
	UntitledNote = "Untitled"
	// UnlabeledFolder groups notes without labels.
	UnlabeledFolder = "Unlabeled"
	// TimestampLayout is how note timestamps are displayed.
	TimestampLayout = "2006-01-02 15:04:05"

	maxFilenameBytes = 255
)

// Label is a user label attached to a note.
type Label struct {
	Name string `json:"name"`
}

// Attachment is a file referenced by a note, usually an image.
type Attachment struct {
	FilePath string `json:"filePath"`
	MimeType string `json:"mimetype"`
}

// ListItem is one line of a checklist note.
type ListItem struct {
	Text      string `json:"text"`
	IsChecked bool   `json:"isChecked"`
}

// Note is one exported note.
type Note struct {
	Title                   string       `json:"title"`
	TextContent             string       `json:"textContent"`
	TextContentHTML         string       `json:"textContentHtml"`
	Labels                  []Label      `json:"labels"`
	Attachments             []Attachment `json:"attachments"`
	ListContent             []ListItem   `json:"listContent"`
	CreatedTimestampUsec    int64        `json:"createdTimestampUsec"`
	UserEditedTimestampUsec int64        `json:"userEditedTimestampUsec"`
	IsTrashed               bool         `json:"isTrashed"`
	IsArchived              bool         `json:"isArchived"`
	IsPinned                bool         `json:"isPinned"`
	Color                   string       `json:"color"`
}

// Load reads and decodes a note JSON file.
func Load(path string) (*Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading note %s: %w", path, err)
	}
	var n Note
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parsing note %s: %w", path, err)
	}
	return &n, nil
}

// DisplayTitle returns the note title, or UntitledNote when empty.
func (n *Note) DisplayTitle() string {
	if strings.TrimSpace(n.Title) == "" {
		return UntitledNote
	}
	return n.Title
}

// labelNames returns the label names in export order.
func (n *Note) labelNames() []string {
	names := make([]string, 0, len(n.Labels))
	for _, l := range n.Labels {
		names = append(names, l.Name)
	}
	return names
}

// LabelFolder is the output folder for the note: label names joined by
// "_", or UnlabeledFolder. The result is safe as a single path element.
func (n *Note) LabelFolder() string {
	if len(n.Labels) == 0 {
		return UnlabeledFolder
	}
	folder := SanitizeFilename(strings.Join(n.labelNames(), "_"))
	if folder == "" || folder == "." || folder == ".." {
		return UnlabeledFolder
	}
	return folder
}

// LabelList returns the label names joined by ", " for display.
func (n *Note) LabelList() string {
	return strings.Join(n.labelNames(), ", ")
}

// Created returns the creation time formatted with TimestampLayout.
func (n *Note) Created() string { return FormatTimestamp(n.CreatedTimestampUsec) }

// Edited returns the last user edit time formatted with TimestampLayout.
func (n *Note) Edited() string { return FormatTimestamp(n.UserEditedTimestampUsec) }

// AttachmentPaths joins each attachment's filePath onto dir and returns
// those that exist, preserving export order.
func (n *Note) AttachmentPaths(dir string) []string {
	var paths []string
	for _, a := range n.Attachments {
		if a.FilePath == "" {
			continue
		}
		p := filepath.Join(dir, a.FilePath)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			paths = append(paths, p)
		}
	}
	return paths
}

// FormatTimestamp renders a microsecond Unix timestamp in local time.
func FormatTimestamp(usec int64) string {
	return time.UnixMicro(usec).Format(TimestampLayout)
}

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFilename makes name safe as a single path element: reserved
// characters become "_", surrounding spaces and underscores are trimmed,
// and the result is cut to 255 bytes without splitting a character.
func SanitizeFilename(name string) string {
	s := unsafeFilenameChars.ReplaceAllString(name, "_")
	s = strings.Trim(strings.TrimSpace(s), "_")
	if len(s) <= maxFilenameBytes {
		return s
	}
	cut := maxFilenameBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
