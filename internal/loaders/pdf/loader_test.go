package pdf

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	args   []string
	input  []byte
}

func (m *mockRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	m.args = args
	// The input path precedes the trailing "-" for stdout.
	if len(args) >= 2 {
		m.input, _ = os.ReadFile(args[len(args)-2])
	}
	return m.output, m.err
}

func newTestLoader(runner CommandRunner) *Loader {
	l := NewWithRunner(runner)
	l.lookPath = func(string) (string, error) { return "/usr/bin/pdftotext", nil }
	return l
}

func pdfFile(content string) *domain.RawFile {
	return &domain.RawFile{
		URL:       "https://files.example.com/report.pdf",
		MediaType: domain.MediaTypePDF,
		Content:   []byte(content),
	}
}

func TestSupportedMediaTypes(t *testing.T) {
	assert.Equal(t, []domain.MediaType{domain.MediaTypePDF}, New().SupportedMediaTypes())
}

func TestLoad_SplitsPages(t *testing.T) {
	runner := &mockRunner{output: []byte("Page one text\n\fPage two text\n\f\n\fPage four\n")}
	l := newTestLoader(runner)

	segments, err := l.Load(context.Background(), pdfFile("%PDF-1.4 fake"))

	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.Equal(t, "Page one text", segments[0].Text)
	assert.Equal(t, 1, segments[0].Metadata["page"])
	assert.Equal(t, "Page two text", segments[1].Text)
	assert.Equal(t, 2, segments[1].Metadata["page"])
	assert.Equal(t, 4, segments[2].Metadata["page"])
	assert.Equal(t, "https://files.example.com/report.pdf", segments[2].Metadata["source"])

	assert.Equal(t, []string{"-layout", "-enc", "UTF-8"}, runner.args[:3])
	assert.Equal(t, "%PDF-1.4 fake", string(runner.input))
}

func TestLoad_NotAPDF(t *testing.T) {
	runner := &mockRunner{}
	l := newTestLoader(runner)

	_, err := l.Load(context.Background(), pdfFile("hello"))

	var loadErr *domain.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "not a PDF")
	assert.Nil(t, runner.args)
}

func TestLoad_ToolMissing(t *testing.T) {
	l := NewWithRunner(&mockRunner{})
	l.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	_, err := l.Load(context.Background(), pdfFile("%PDF-1.7"))

	var loadErr *domain.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, ErrPDFToolNotFound)
}

func TestLoad_RunnerError(t *testing.T) {
	l := newTestLoader(&mockRunner{err: errors.New("pdftotext crashed")})

	_, err := l.Load(context.Background(), pdfFile("%PDF-1.4"))

	var loadErr *domain.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestLoad_NoText(t *testing.T) {
	l := newTestLoader(&mockRunner{output: []byte("\f\f  \n")})

	segments, err := l.Load(context.Background(), pdfFile("%PDF-1.4"))

	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestLoad_NilFile(t *testing.T) {
	_, err := newTestLoader(&mockRunner{}).Load(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}

// Integration test - only runs if pdftotext is available.
func TestLoad_Integration(t *testing.T) {
	if err := CheckAvailable(); err != nil {
		t.Skip("pdftotext not available, skipping integration test")
	}
	t.Skip("integration test requires sample PDF file")
}
