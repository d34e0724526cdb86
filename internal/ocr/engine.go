// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/pdiddy/keepnotion/internal/container"
	"github.com/pdiddy/keepnotion/pkg/types"
)

const (
	binTesseract = "tesseract"

	// DefaultLanguage is the recognition language.
	DefaultLanguage = "eng"
	// DefaultImage is the container image used when tesseract is not installed.
	DefaultImage = "docker.io/jitesoft/tesseract-ocr:latest"
)

// Engine recognizes text in an image.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// runner abstracts command execution for testing.
type runner interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error
}

type osRunner struct{}

func (osRunner) LookPath(file string) (string, error) { return exec.LookPath(file) }

func (osRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// tesseractArgs reads the image from stdin and writes text to stdout.
func tesseractArgs(lang string) []string {
	return []string{"stdin", "stdout", "-l", lang}
}

func encodePNG(img image.Image) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	return &buf, nil
}

// TesseractEngine runs a locally installed tesseract binary.
type TesseractEngine struct {
	Lang string
	run  runner
}

// Recognize implements Engine.
func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	in, err := encodePNG(img)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := e.run.Run(ctx, binTesseract, tesseractArgs(e.Lang), in, &out); err != nil {
		return "", fmt.Errorf("running tesseract: %w", err)
	}
	return out.String(), nil
}

// ContainerEngine runs tesseract inside a container image.
type ContainerEngine struct {
	Runtime container.Runtime
	Image   string
	Lang    string
}

// Recognize implements Engine.
func (e *ContainerEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	in, err := encodePNG(img)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	opts := container.RunOptions{Entrypoint: binTesseract, Args: tesseractArgs(e.Lang)}
	if err := e.Runtime.Run(ctx, e.Image, opts, in, &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

// DetectEngine prefers a native tesseract binary and falls back to running
// cfg.Image under docker or podman.
func DetectEngine(ctx context.Context, cfg types.OCRConfig) (Engine, error) {
	return detectEngine(ctx, cfg, osRunner{}, container.DetectRuntime)
}

func detectEngine(ctx context.Context, cfg types.OCRConfig, run runner, detectRuntime func(context.Context) (container.Runtime, error)) (Engine, error) {
	lang := cfg.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	if _, err := run.LookPath(binTesseract); err == nil {
		slog.DebugContext(ctx, "using native OCR engine", "lang", lang)
		return &TesseractEngine{Lang: lang, run: run}, nil
	}

	rt, err := detectRuntime(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s not on PATH and %w", binTesseract, err)
	}
	ref := cfg.Image
	if ref == "" {
		ref = DefaultImage
	}
	if err := rt.ImageExists(ctx, ref); err != nil {
		slog.WarnContext(ctx, "OCR image not present locally, first run will pull it", "image", ref, "runtime", rt.Name())
	}
	slog.DebugContext(ctx, "using container OCR engine", "runtime", rt.Name(), "image", ref, "lang", lang)
	return &ContainerEngine{Runtime: rt, Image: ref, Lang: lang}, nil
}
