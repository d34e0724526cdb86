//go:build mage

package main

import (
	"os"
	"strings"

	"github.com/magefile/mage/sh"
)

// Convert builds the CLI and converts the Keep export in ./Keep. Extra
// flags may be passed in KEEPNOTION_FLAGS, e.g. "--ocr-only --debug".
func Convert() error {
	ensureBuilt()
	args := append([]string{"convert"}, strings.Fields(os.Getenv("KEEPNOTION_FLAGS"))...)
	return sh.RunV(binPath, args...)
}

// Upload builds the CLI and mirrors output_markdown. The parent page comes
// from KEEPNOTION_UPLOAD_PARENT or the config file.
func Upload() error {
	ensureBuilt()
	args := append([]string{"upload", "output_markdown"}, strings.Fields(os.Getenv("KEEPNOTION_FLAGS"))...)
	return sh.RunV(binPath, args...)
}
