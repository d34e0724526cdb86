// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package blocks

import "strings"

// PlainTextLanguage is the code block language used when a fence names
// nothing the workspace knows.
const PlainTextLanguage = "plain text"

// languages lists the code block languages the workspace accepts.
var languages = map[string]bool{
	"abap": true, "arduino": true, "bash": true, "basic": true, "c": true,
	"clojure": true, "coffeescript": true, "c++": true, "c#": true, "css": true,
	"dart": true, "diff": true, "docker": true, "elixir": true, "elm": true,
	"erlang": true, "flow": true, "fortran": true, "f#": true, "gherkin": true,
	"glsl": true, "go": true, "graphql": true, "groovy": true, "haskell": true,
	"html": true, "java": true, "javascript": true, "json": true, "julia": true,
	"kotlin": true, "latex": true, "less": true, "lisp": true, "livescript": true,
	"lua": true, "makefile": true, "markdown": true, "markup": true, "matlab": true,
	"mermaid": true, "nix": true, "objective-c": true, "ocaml": true, "pascal": true,
	"perl": true, "php": true, "plain text": true, "powershell": true, "prolog": true,
	"protobuf": true, "python": true, "r": true, "reason": true, "ruby": true,
	"rust": true, "sass": true, "scala": true, "scheme": true, "scss": true,
	"shell": true, "solidity": true, "sql": true, "swift": true, "typescript": true,
	"vb.net": true, "verilog": true, "vhdl": true, "visual basic": true,
	"webassembly": true, "xml": true, "yaml": true,
}

// languageAliases maps common fence tags to workspace language names.
var languageAliases = map[string]string{
	"js":         "javascript",
	"jsx":        "javascript",
	"ts":         "typescript",
	"tsx":        "typescript",
	"py":         "python",
	"sh":         "shell",
	"zsh":        "shell",
	"console":    "shell",
	"yml":        "yaml",
	"cpp":        "c++",
	"cc":         "c++",
	"cs":         "c#",
	"csharp":     "c#",
	"fsharp":     "f#",
	"rb":         "ruby",
	"rs":         "rust",
	"golang":     "go",
	"dockerfile": "docker",
	"md":         "markdown",
	"kt":         "kotlin",
	"objc":       "objective-c",
	"ps1":        "powershell",
	"proto":      "protobuf",
	"tex":        "latex",
	"text":       PlainTextLanguage,
	"txt":        PlainTextLanguage,
}

// Language maps a fence info string to a workspace code language.
func Language(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if alias, ok := languageAliases[tag]; ok {
		return alias
	}
	if languages[tag] {
		return tag
	}
	return PlainTextLanguage
}
