// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package upload

import (
	"strings"

	"go.yaml.in/yaml/v3"
)

// frontmatter is the optional YAML header of an uploaded file.
type frontmatter struct {
	Title string `yaml:"title"`
	Icon  string `yaml:"icon"`
}

// splitFrontmatter separates a leading "---" delimited YAML block from the
// body. Text without a well-formed header is returned unchanged as body.
func splitFrontmatter(text string) (frontmatter, string) {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return frontmatter{}, text
	}
	rest := text[len("---\n"):]

	var header string
	switch {
	case strings.HasPrefix(rest, "---\n") || rest == "---":
		header, rest = "", strings.TrimPrefix(strings.TrimPrefix(rest, "---"), "\n")
	default:
		end := strings.Index(rest, "\n---\n")
		if end < 0 {
			if !strings.HasSuffix(rest, "\n---") {
				return frontmatter{}, text
			}
			end = len(rest) - len("\n---")
			header, rest = rest[:end], ""
		} else {
			header, rest = rest[:end], rest[end+len("\n---\n"):]
		}
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return frontmatter{}, text
	}
	fm.Title = strings.TrimSpace(fm.Title)
	fm.Icon = strings.TrimSpace(fm.Icon)
	return fm, rest
}
