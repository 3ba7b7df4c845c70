package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"BulletScreen/internal/domain"
	"BulletScreen/internal/logging"
	"BulletScreen/internal/ports"
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"

	acceptEncoding = "gzip, deflate, br"
)

// Options tunes a Fetcher. Zero values fall back to defaults.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// Plain and Secure replace the default clients, mainly for tests.
	Plain  *http.Client
	Secure *http.Client
}

// Fetcher downloads comment documents over plaintext or TLS transport chosen by URL scheme.
type Fetcher struct {
	plain     *http.Client
	secure    *http.Client
	userAgent string
	logger    *slog.Logger
}

var _ ports.CommentFetcher = (*Fetcher)(nil)

// NewFetcher wires one client per transport. Both disable transparent
// decompression so the declared Content-Encoding reaches Decompress.
func NewFetcher(opts Options, logger *slog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = logging.Discard()
	}

	plain := opts.Plain
	if plain == nil {
		plain = &http.Client{
			Timeout:   opts.Timeout,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment, DisableCompression: true},
		}
	}

	secure := opts.Secure
	if secure == nil {
		secure = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DisableCompression:  true,
				ForceAttemptHTTP2:   true,
				TLSHandshakeTimeout: opts.Timeout,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			},
		}
	}

	return &Fetcher{
		plain:     plain,
		secure:    secure,
		userAgent: opts.UserAgent,
		logger:    logger,
	}
}

// Fetch issues a GET, buffers the whole body and decompresses it. Every
// failure, including an unsupported scheme or an undecodable body, is
// returned wrapped in domain.ErrTransport. The HTTP status does not fail the fetch.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (domain.Document, error) {
	client, err := f.clientFor(rawURL)
	if err != nil {
		return domain.Document{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: build request: %v", domain.ErrTransport, err)
	}
	req.Header.Set("Accept-Encoding", acceptEncoding)
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: request: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: read body: %v", domain.ErrTransport, err)
	}

	declared := resp.Header.Get("Content-Encoding")
	body, err := Decompress(declared, raw)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: decompress %q: %v", domain.ErrTransport, declared, err)
	}

	enc, known := outermostEncoding(declared)
	if !known {
		f.logger.Warn("unrecognized content encoding, passing body through", "encoding", declared)
	}
	f.logger.Debug("comment document fetched",
		"status", resp.StatusCode,
		"encoding", declared,
		"raw_bytes", len(raw),
		"bytes", len(body))

	return domain.Document{
		Body:       body,
		Encoding:   enc,
		Header:     resp.Header,
		StatusCode: resp.StatusCode,
	}, nil
}

func (f *Fetcher) clientFor(rawURL string) (*http.Client, error) {
	scheme, _, found := strings.Cut(rawURL, ":")
	if !found {
		return nil, fmt.Errorf("%w: missing scheme in %q", domain.ErrTransport, rawURL)
	}

	switch strings.ToLower(scheme) {
	case schemeHTTP:
		return f.plain, nil
	case schemeHTTPS:
		return f.secure, nil
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", domain.ErrTransport, scheme)
	}
}
