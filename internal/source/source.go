// Package source reads raw source bytes from a local file or an http(s) URL,
// optionally through a shared Redis mirror.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mohammed-shakir/br-emissions/internal/cache/keys"
	"github.com/mohammed-shakir/br-emissions/internal/core/httpclient"
	"github.com/mohammed-shakir/br-emissions/internal/core/observability"
)

// MaxBytes bounds a single source read.
const MaxBytes = 64 << 20

var ErrTooLarge = errors.New("source exceeds size limit")

// Mirror is a shared byte store consulted before the origin.
type Mirror interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type Fetcher struct {
	client    *http.Client
	mirror    Mirror
	mirrorTTL time.Duration
	timeout   time.Duration
	log       *slog.Logger
}

type Option func(*Fetcher)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithMirror enables the shared mirror; ttl 0 keeps entries until deleted.
func WithMirror(m Mirror, ttl time.Duration) Option {
	return func(f *Fetcher) {
		f.mirror = m
		f.mirrorTTL = ttl
	}
}

func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

func New(opts ...Option) *Fetcher {
	f := &Fetcher{timeout: 30 * time.Second}
	for _, o := range opts {
		o(f)
	}
	if f.client == nil {
		f.client = httpclient.NewOutbound(f.timeout)
	}
	if f.log == nil {
		f.log = slog.New(slog.DiscardHandler)
	}
	return f
}

// Fetch returns the bytes of src. Mirror failures are logged and the origin
// is read instead.
func (f *Fetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, errors.New("empty source")
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	key := keys.Source("raw", src)
	if f.mirror != nil {
		b, ok, err := f.mirror.Get(ctx, key)
		switch {
		case err != nil:
			f.log.Warn("source mirror get failed", "source", src, "err", err)
		case ok:
			f.log.Debug("source served from mirror", "source", src, "bytes", len(b))
			return b, nil
		}
	}

	origin := Origin(src)
	start := time.Now()
	b, err := f.readOrigin(ctx, origin, src)
	observability.ObserveSourceFetch(origin, err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	f.log.Info("source loaded", "source", src, "origin", origin, "bytes", len(b))

	if f.mirror != nil {
		if err := f.mirror.Set(ctx, key, b, f.mirrorTTL); err != nil {
			f.log.Warn("source mirror set failed", "source", src, "err", err)
		}
	}
	return b, nil
}

// Origin classifies src as "http" or "file".
func Origin(src string) string {
	u, err := url.Parse(src)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return "http"
	}
	return "file"
}

func (f *Fetcher) readOrigin(ctx context.Context, origin, src string) ([]byte, error) {
	if origin == "http" {
		return f.readHTTP(ctx, src)
	}
	return readFile(strings.TrimPrefix(src, "file://"))
}

func (f *Fetcher) readHTTP(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %q: %w", src, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", src, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %q: unexpected status %d", src, resp.StatusCode)
	}
	return readLimited(resp.Body, src)
}

func readFile(path string) ([]byte, error) {
	fh, err := os.Open(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer func() { _ = fh.Close() }()
	return readLimited(fh, path)
}

func readLimited(r io.Reader, src string) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", src, err)
	}
	if len(b) > MaxBytes {
		return nil, fmt.Errorf("read %q: %w", src, ErrTooLarge)
	}
	return b, nil
}
