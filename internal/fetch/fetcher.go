// Package fetch retrieves result pages and converts them to markdown for
// content enrichment.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/search"
	"github.com/Aman-CERP/amansearch/pkg/version"
)

// Defaults for DirectFetcher.
const (
	DefaultTimeout         = 15 * time.Second
	DefaultMaxBodyBytes    = 2 << 20
	DefaultMaxContentChars = 20000
	DefaultRequestsPerHost = 2.0
	maxRedirects           = 5
)

// Config configures a DirectFetcher.
type Config struct {
	Timeout         time.Duration
	MaxBodyBytes    int64
	MaxContentChars int
	// RequestsPerHost limits fetches per second to a single host. Zero disables.
	RequestsPerHost float64
	// AllowPrivate permits loopback and private targets. Tests only.
	AllowPrivate bool
}

// DefaultConfig returns the production fetch settings.
func DefaultConfig() Config {
	return Config{
		Timeout:         DefaultTimeout,
		MaxBodyBytes:    DefaultMaxBodyBytes,
		MaxContentChars: DefaultMaxContentChars,
		RequestsPerHost: DefaultRequestsPerHost,
	}
}

// DirectFetcher downloads pages over HTTP and returns readable text.
type DirectFetcher struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Ensure DirectFetcher implements search.ContentFetcher.
var _ search.ContentFetcher = (*DirectFetcher)(nil)

// Option configures a DirectFetcher.
type Option func(*DirectFetcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *DirectFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithHTTPClient replaces the HTTP client. The SSRF dial guard is bypassed.
func WithHTTPClient(client *http.Client) Option {
	return func(f *DirectFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// New creates a DirectFetcher. Zero config values select defaults.
func New(cfg Config, opts ...Option) *DirectFetcher {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.MaxContentChars <= 0 {
		cfg.MaxContentChars = def.MaxContentChars
	}

	f := &DirectFetcher{
		cfg:      cfg,
		logger:   slog.Default(),
		limiters: make(map[string]*rate.Limiter),
	}
	allowPrivate := cfg.AllowPrivate
	f.client = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: newSafeTransport(allowPrivate),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			_, err := validateURL(req.URL.String(), allowPrivate)
			return err
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements search.ContentFetcher. HTML is converted to markdown;
// plain text, markdown and JSON pass through. Content is capped at
// MaxContentChars runes.
func (f *DirectFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := validateURL(rawURL, f.cfg.AllowPrivate)
	if err != nil {
		return "", err
	}
	if err := f.wait(ctx, u.Hostname()); err != nil {
		return "", amerrors.FetchFailed(rawURL, "rate limit wait", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", amerrors.FetchFailed(rawURL, "build request", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,application/json;q=0.8,*/*;q=0.5")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", amerrors.FetchFailed(rawURL, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", amerrors.FetchFailed(rawURL, fmt.Sprintf("http %d", resp.StatusCode), nil).
			WithDetail(amerrors.DetailStatus, fmt.Sprint(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return "", amerrors.FetchFailed(rawURL, "read body", err)
	}

	content, err := f.render(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return "", amerrors.FetchFailed(rawURL, err.Error(), err)
	}
	content = capRunes(content, f.cfg.MaxContentChars)

	f.logger.Debug("page_fetched",
		slog.String("url", rawURL),
		slog.Int("bytes", len(body)),
		slog.Int("chars", utf8.RuneCountInString(content)),
		slog.Duration("duration", time.Since(start)))
	return content, nil
}

func (f *DirectFetcher) render(contentType string, body []byte) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "" {
		mediaType = http.DetectContentType(body)
		mediaType, _, _ = mime.ParseMediaType(mediaType)
	}
	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return HTMLToMarkdown(string(body))
	case strings.HasPrefix(mediaType, "text/"),
		mediaType == "application/json",
		strings.HasSuffix(mediaType, "+json"):
		return strings.TrimSpace(string(body)), nil
	default:
		return "", fmt.Errorf("unsupported content type %q", mediaType)
	}
}

func (f *DirectFetcher) wait(ctx context.Context, host string) error {
	if f.cfg.RequestsPerHost <= 0 {
		return nil
	}
	f.mu.Lock()
	limiter, ok := f.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(f.cfg.RequestsPerHost), 1)
		f.limiters[host] = limiter
	}
	f.mu.Unlock()
	return limiter.Wait(ctx)
}

func capRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
