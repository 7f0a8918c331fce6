// Package pdf loads application/pdf documents using the pdftotext tool from
// poppler, one segment per page.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

const toolName = "pdftotext"

var pdfMagic = []byte("%PDF-")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

// Loader handles PDF documents.
type Loader struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

// New creates a PDF loader that shells out to pdftotext.
func New() *Loader {
	return NewWithRunner(execRunner{})
}

// NewWithRunner creates a PDF loader with a custom command runner.
func NewWithRunner(runner CommandRunner) *Loader {
	return &Loader{runner: runner, lookPath: exec.LookPath}
}

// CheckAvailable reports whether pdftotext can be found.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns how to install pdftotext.
func InstallInstructions() string {
	return `PDF support requires pdftotext (part of poppler):
  macOS:         brew install poppler
  Debian/Ubuntu: apt install poppler-utils
  Fedora:        dnf install poppler-utils`
}

// SupportedMediaTypes returns the media types this loader handles.
func (l *Loader) SupportedMediaTypes() []domain.MediaType {
	return []domain.MediaType{domain.MediaTypePDF}
}

// Load extracts text page by page. Pages with no text are skipped.
func (l *Loader) Load(ctx context.Context, file *domain.RawFile) ([]domain.Segment, error) {
	if file == nil {
		return nil, domain.ErrInvalidInput
	}
	if !bytes.HasPrefix(bytes.TrimLeft(file.Content, "\x00\t\r\n "), pdfMagic) {
		return nil, domain.NewLoadError(domain.MediaTypePDF, "not a PDF file", nil)
	}
	if _, err := l.lookPath(toolName); err != nil {
		return nil, domain.NewLoadError(domain.MediaTypePDF, "pdftotext unavailable", ErrPDFToolNotFound)
	}

	tmp, err := os.CreateTemp("", "docchat-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(file.Content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	out, err := l.runner.Run(ctx, toolName, "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewLoadError(domain.MediaTypePDF, "pdftotext failed", err)
	}

	return pages(string(out), file.URL), nil
}

// pages splits pdftotext output on form feeds into 1-based page segments.
func pages(text, source string) []domain.Segment {
	var segments []domain.Segment
	for i, page := range strings.Split(text, "\f") {
		if strings.TrimSpace(page) == "" {
			continue
		}
		segments = append(segments, domain.Segment{
			Text: strings.TrimRight(page, "\n"),
			Metadata: map[string]any{
				"source": source,
				"page":   i + 1,
			},
		})
	}
	return segments
}
