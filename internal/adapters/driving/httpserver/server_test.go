package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

type mockIngestion struct {
	mu  sync.Mutex
	got domain.IngestRequest
	err error
}

func (m *mockIngestion) Ingest(_ context.Context, req domain.IngestRequest) (string, error) {
	m.mu.Lock()
	m.got = req
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return domain.StatusDocumentStored, nil
}

func (m *mockIngestion) IngestFile(context.Context, string, *domain.RawFile) (*domain.IngestionReport, error) {
	return nil, errors.New("not used")
}

type mockChat struct {
	mu          sync.Mutex
	got         domain.ChatRequest
	hasDeadline bool
	tokens      []domain.Token
	err         error
	ctxErr      chan error
}

func (m *mockChat) Chat(ctx context.Context, req domain.ChatRequest) (<-chan domain.Token, error) {
	m.mu.Lock()
	m.got = req
	_, m.hasDeadline = ctx.Deadline()
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan domain.Token)
	go func() {
		defer close(ch)
		for _, tok := range m.tokens {
			select {
			case ch <- tok:
			case <-ctx.Done():
				if m.ctxErr != nil {
					m.ctxErr <- ctx.Err()
				}
				return
			}
		}
	}()
	return ch, nil
}

func newTestServer(t *testing.T, ing *mockIngestion, chat *mockChat) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(ing, chat, Config{}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (int, string, http.Header) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data), resp.Header
}

func TestNew_Defaults(t *testing.T) {
	s := New(&mockIngestion{}, &mockChat{}, Config{})

	assert.Equal(t, DefaultAddr, s.Addr())
	assert.Equal(t, DefaultChatTimeout, s.cfg.ChatTimeout)
	assert.Equal(t, int64(DefaultMaxBodyBytes), s.cfg.MaxBodyBytes)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &mockIngestion{}, &mockChat{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestEmbed_Success(t *testing.T) {
	ing := &mockIngestion{}
	srv := newTestServer(t, ing, &mockChat{})

	code, body, header := post(t, srv.URL+"/api/embed", `{"fileUrl":"https://files.example/a.pdf","fileId":"f-1"}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `"DOCUMENT_STORED"`+"\n", body)
	assert.Equal(t, "application/json", header.Get("Content-Type"))
	ing.mu.Lock()
	defer ing.mu.Unlock()
	assert.Equal(t, domain.IngestRequest{FileURL: "https://files.example/a.pdf", FileID: "f-1"}, ing.got)
}

func TestEmbed_Errors(t *testing.T) {
	partial := &domain.PartialIngestionError{Report: &domain.IngestionReport{}}
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantBody string
	}{
		{name: "malformed json", body: `{"fileUrl":`, wantCode: http.StatusBadRequest, wantBody: "invalid JSON body"},
		{name: "missing id", body: `{}`, err: domain.ErrMissingDocumentID, wantCode: http.StatusBadRequest},
		{name: "bad url", body: `{}`, err: fmt.Errorf("fetch: %w", domain.ErrInvalidInput), wantCode: http.StatusBadRequest},
		{
			name:     "unsupported type",
			body:     `{}`,
			err:      domain.NewLoadError(domain.MediaType("image/png"), "unsupported media type", domain.ErrUnsupportedType),
			wantCode: http.StatusUnsupportedMediaType,
		},
		{name: "partial", body: `{}`, err: partial, wantCode: http.StatusBadGateway, wantBody: "PARTIAL_INGESTION"},
		{name: "other", body: `{}`, err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantBody: "Error uploading file to vectorDB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &mockIngestion{err: tt.err}, &mockChat{})

			code, body, _ := post(t, srv.URL+"/api/embed", tt.body)

			assert.Equal(t, tt.wantCode, code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, strings.TrimSpace(body))
			}
		})
	}
}

func TestEmbed_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(New(&mockIngestion{}, &mockChat{}, Config{MaxBodyBytes: 16}).Handler())
	defer srv.Close()

	code, _, _ := post(t, srv.URL+"/api/embed", `{"fileUrl":"https://files.example/long-name.pdf","fileId":"x"}`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
}

func TestEmbed_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &mockIngestion{}, &mockChat{})

	resp, err := http.Get(srv.URL + "/api/embed")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestChat_Streams(t *testing.T) {
	chat := &mockChat{tokens: []domain.Token{{Text: "The total "}, {Text: "is "}, {Text: "$42."}}}
	srv := newTestServer(t, &mockIngestion{}, chat)

	code, body, header := post(t, srv.URL+"/api/chat",
		`{"fileId":"f-1","messages":[{"role":"user","content":"What is the total?"}]}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "The total is $42.", body)
	assert.Equal(t, "text/plain; charset=utf-8", header.Get("Content-Type"))
	chat.mu.Lock()
	defer chat.mu.Unlock()
	assert.Equal(t, "f-1", chat.got.FileID)
	require.Len(t, chat.got.Messages, 1)
	assert.Equal(t, domain.RoleUser, chat.got.Messages[0].Role)
	assert.True(t, chat.hasDeadline, "chat context must carry a deadline")
}

func TestChat_StopsAtErrorToken(t *testing.T) {
	chat := &mockChat{tokens: []domain.Token{{Text: "partial"}, {Err: errors.New("upstream reset")}, {Text: "never"}}}
	srv := newTestServer(t, &mockIngestion{}, chat)

	code, body, _ := post(t, srv.URL+"/api/chat",
		`{"fileId":"f-1","messages":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "partial", body)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{name: "empty conversation", err: domain.ErrEmptyConversation, wantCode: http.StatusBadRequest},
		{name: "last not user", err: domain.ErrLastMessageNotUser, wantCode: http.StatusBadRequest},
		{name: "rate limited", err: fmt.Errorf("start stream: %w", domain.ErrRateLimited), wantCode: http.StatusTooManyRequests},
		{name: "timeout", err: fmt.Errorf("retrieve: %w", context.DeadlineExceeded), wantCode: http.StatusGatewayTimeout},
		{name: "other", err: errors.New("secret detail"), wantCode: http.StatusInternalServerError, wantBody: "Error generating response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &mockIngestion{}, &mockChat{err: tt.err})

			code, body, _ := post(t, srv.URL+"/api/chat", `{"fileId":"f","messages":[]}`)

			assert.Equal(t, tt.wantCode, code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, strings.TrimSpace(body))
			}
		})
	}
}

func TestChat_Timeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	ctxErr := make(chan error, 1)
	chat := &mockChat{tokens: []domain.Token{{Text: "a"}, {Text: "b"}, {Text: "c"}}, ctxErr: ctxErr}
	s := New(&mockIngestion{}, chat, Config{ChatTimeout: 50 * time.Millisecond})

	// A writer that never accepts the second token forces the deadline.
	rec := &slowRecorder{ResponseRecorder: httptest.NewRecorder(), block: block}
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"fileId":"f","messages":[{"role":"user","content":"hi"}]}`))

	go s.Handler().ServeHTTP(rec, req)

	select {
	case err := <-ctxErr:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("chat context was not cancelled")
	}
}

// slowRecorder blocks on the second write.
type slowRecorder struct {
	*httptest.ResponseRecorder
	block  chan struct{}
	writes int
}

func (r *slowRecorder) Write(p []byte) (int, error) {
	r.writes++
	if r.writes > 1 {
		<-r.block
	}
	return r.ResponseRecorder.Write(p)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := New(&mockIngestion{}, &mockChat{}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
