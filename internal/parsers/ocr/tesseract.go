// Package ocr recognises text in images using the tesseract CLI, and
// provides the parser plugin for image uploads.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// ErrTesseractNotFound indicates the tesseract binary is not installed.
var ErrTesseractNotFound = fmt.Errorf("%w: tesseract not found in PATH", domain.ErrOCRUnavailable)

const binary = "tesseract"

// CommandRunner executes external commands.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands through os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Engine recognises text in a single image.
type Engine interface {
	// Recognize returns the text found in image.
	Recognize(ctx context.Context, image []byte) (string, error)

	// Available reports whether the engine can run.
	Available() error
}

// Tesseract is an Engine backed by the tesseract command.
type Tesseract struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
	language string
}

// Ensure Tesseract implements the interface.
var _ Engine = (*Tesseract)(nil)

// TesseractOption configures the engine.
type TesseractOption func(*Tesseract)

// WithRunner replaces the command runner.
func WithRunner(r CommandRunner) TesseractOption {
	return func(t *Tesseract) {
		t.runner = r
		// an injected runner does not need a real binary
		t.lookPath = func(string) (string, error) { return binary, nil }
	}
}

// WithLanguage sets the tesseract language pack (default "eng").
func WithLanguage(lang string) TesseractOption {
	return func(t *Tesseract) {
		if lang != "" {
			t.language = lang
		}
	}
}

// NewTesseract creates a tesseract engine.
func NewTesseract(opts ...TesseractOption) *Tesseract {
	t := &Tesseract{
		runner:   execRunner{},
		lookPath: exec.LookPath,
		language: "eng",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Available checks that tesseract is installed.
func (t *Tesseract) Available() error {
	if _, err := t.lookPath(binary); err != nil {
		return ErrTesseractNotFound
	}
	return nil
}

// Recognize writes image to a scratch directory and runs tesseract on it.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := t.Available(); err != nil {
		return "", err
	}

	dir, err := os.MkdirTemp("", "sercha-ocr-*")
	if err != nil {
		return "", fmt.Errorf("%w: scratch dir: %v", domain.ErrOCRUnavailable, err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "page")
	if err := os.WriteFile(input, image, 0o600); err != nil {
		return "", fmt.Errorf("%w: write scratch image: %v", domain.ErrOCRUnavailable, err)
	}

	out, err := t.runner.Run(ctx, binary, input, "stdout", "-l", t.language, "--psm", "3")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", domain.NewParseError("tesseract failed: " + strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", domain.NewParseError("tesseract failed: " + err.Error())
	}

	return strings.TrimSpace(string(out)), nil
}

// InstallInstructions returns platform-specific installation instructions.
func InstallInstructions() string {
	return `OCR requires tesseract.

Install it with:
  macOS:         brew install tesseract
  Ubuntu/Debian: sudo apt install tesseract-ocr
  Fedora:        sudo dnf install tesseract
  Arch:          sudo pacman -S tesseract`
}
