package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Cache stores fetched remote bodies by URL.
type Cache interface {
	CachedSource(url string) ([]byte, bool, error)
	PutSource(url string, body []byte) error
}

// Remote fetches URL specifiers with HTTP GET.
type Remote struct {
	client *http.Client
	cache  Cache
	logger *slog.Logger
}

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithHTTPClient sets the client used for fetches.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) {
		r.client = c
	}
}

// WithCache serves repeated fetches from c and stores new bodies in it.
func WithCache(c Cache) RemoteOption {
	return func(r *Remote) {
		r.cache = c
	}
}

// WithRemoteLogger sets the logger for cache diagnostics.
func WithRemoteLogger(l *slog.Logger) RemoteOption {
	return func(r *Remote) {
		r.logger = l
	}
}

// NewRemote returns a Remote using http.DefaultClient unless configured.
func NewRemote(opts ...RemoteOption) *Remote {
	r := &Remote{
		client: http.DefaultClient,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Remote) ReadText(ctx context.Context, spec string) (string, error) {
	b, err := r.ReadBinary(ctx, spec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Remote) ReadBinary(ctx context.Context, spec string) ([]byte, error) {
	if r.cache != nil {
		body, ok, err := r.cache.CachedSource(spec)
		if err != nil {
			r.logger.Warn("remote cache lookup failed", "url", spec, "error", err)
		} else if ok {
			return body, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, spec, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: fetch %s: %w", spec, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: %s", ErrNotFound, spec, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("source: fetch %s: %w", spec, err)
	}

	if r.cache != nil {
		if err := r.cache.PutSource(spec, body); err != nil {
			r.logger.Warn("remote cache store failed", "url", spec, "error", err)
		}
	}
	return body, nil
}
