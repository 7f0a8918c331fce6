// Package fetcher retrieves uploaded documents over HTTP(S) or from the local
// filesystem and reports their declared media type.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/adapters/driven/httperr"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

const (
	// DefaultTimeout bounds a single download.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxBytes is the largest accepted document (50MB).
	DefaultMaxBytes = 50 * 1024 * 1024
)

// Ensure Fetcher implements the interface.
var _ driven.FileFetcher = (*Fetcher)(nil)

// ErrTooLarge is returned when a document exceeds the size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// Config holds configuration for the fetcher.
type Config struct {
	// Timeout bounds each HTTP download (default 60s).
	Timeout time.Duration

	// MaxBytes caps the document size (default 50MB).
	MaxBytes int64

	// AllowFiles enables file:// URLs. Off for network-facing entry points.
	AllowFiles bool

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Fetcher downloads documents by URL.
type Fetcher struct {
	client     *http.Client
	maxBytes   int64
	allowFiles bool
}

// New creates a fetcher with defaults applied.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{
		client:     client,
		maxBytes:   cfg.MaxBytes,
		allowFiles: cfg.AllowFiles,
	}
}

// Fetch retrieves rawURL. The media type comes from the Content-Type header,
// falling back to the file extension and then to content sniffing.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.RawFile, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", domain.ErrInvalidInput)
	}

	switch u.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, u)
	case "file":
		if !f.allowFiles {
			return nil, fmt.Errorf("file urls are disabled: %w", domain.ErrInvalidInput)
		}
		return f.fetchFile(ctx, u)
	default:
		return nil, fmt.Errorf("unsupported scheme %q: %w", u.Scheme, domain.ErrInvalidInput)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, u *url.URL) (*domain.RawFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, httperr.FromTransport(ctx, "fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, httperr.FromResponse("fetch", resp, body, "")
	}
	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%d bytes: %w", resp.ContentLength, ErrTooLarge)
	}

	content, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, err
	}

	mediaType := domain.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = detectMediaType(path.Base(u.Path), content)
	}

	return &domain.RawFile{URL: u.String(), MediaType: mediaType, Content: content}, nil
}

func (f *Fetcher) fetchFile(ctx context.Context, u *url.URL) (*domain.RawFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// file:///abs/path and file://relative/path both resolve to a local path.
	p := u.Path
	if u.Host != "" && u.Host != "localhost" {
		p = filepath.Join(u.Host, u.Path)
	}
	if p == "" {
		return nil, fmt.Errorf("empty file path: %w", domain.ErrInvalidInput)
	}

	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", p, domain.ErrInvalidInput)
	}
	if info.Size() > f.maxBytes {
		return nil, fmt.Errorf("%s: %d bytes: %w", p, info.Size(), ErrTooLarge)
	}

	file, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer file.Close()

	content, err := f.readLimited(file)
	if err != nil {
		return nil, err
	}

	return &domain.RawFile{
		URL:       u.String(),
		MediaType: detectMediaType(filepath.Base(p), content),
		Content:   content,
	}, nil
}

func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(content)) > f.maxBytes {
		return nil, fmt.Errorf("more than %d bytes: %w", f.maxBytes, ErrTooLarge)
	}
	return content, nil
}

// extensionTypes covers extensions the platform mime table may not know.
var extensionTypes = map[string]domain.MediaType{
	".txt":  domain.MediaTypeText,
	".text": domain.MediaTypeText,
	".log":  domain.MediaTypeText,
	".csv":  domain.MediaTypeCSV,
	".pdf":  domain.MediaTypePDF,
	".md":   "text/markdown",
}

// detectMediaType resolves a media type from a file name, sniffing the
// content when the extension is missing or unknown.
func detectMediaType(name string, content []byte) domain.MediaType {
	ext := strings.ToLower(filepath.Ext(name))
	if mt, ok := extensionTypes[ext]; ok {
		return mt
	}
	if ext != "" {
		if mt := mime.TypeByExtension(ext); mt != "" {
			return domain.ParseMediaType(mt)
		}
	}
	return domain.ParseMediaType(http.DetectContentType(content))
}
