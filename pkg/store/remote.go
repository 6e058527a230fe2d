package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultRequestTimeout = 5 * time.Second
	defaultMaxElapsed     = 15 * time.Second
	maxRecordSize         = 64 << 20 // 64MB
)

// RemoteStore is an HTTP client for the remote key/value service.
// Records live at {endpoint}/records/{url-escaped key}. Transient failures
// (5xx, network errors) are retried with exponential backoff; a 404 is
// reported as ErrKeyNotFound without retrying.
type RemoteStore struct {
	endpoint   string
	client     *http.Client
	maxElapsed time.Duration
}

// RemoteStoreConfig holds configuration for RemoteStore.
type RemoteStoreConfig struct {
	Endpoint       string        // Base URL of the KV service (required)
	RequestTimeout time.Duration // Per-attempt timeout (default 5s)
	MaxElapsed     time.Duration // Total retry budget (default 15s)
}

// NewRemoteStore creates a client for the remote KV service.
func NewRemoteStore(cfg RemoteStoreConfig) (*RemoteStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("store: remote endpoint is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = defaultMaxElapsed
	}
	return &RemoteStore{
		endpoint:   cfg.Endpoint,
		client:     &http.Client{Timeout: cfg.RequestTimeout},
		maxElapsed: cfg.MaxElapsed,
	}, nil
}

func (s *RemoteStore) recordURL(key string) string {
	return s.endpoint + "/records/" + url.PathEscape(key)
}

func (s *RemoteStore) Read(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.recordURL(key), nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("store: build request: %w", err))
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("store: read %s: %w", key, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err := io.ReadAll(io.LimitReader(resp.Body, maxRecordSize))
			if err != nil {
				return fmt.Errorf("store: read body: %w", err)
			}
			value = body
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrKeyNotFound)
		case resp.StatusCode >= 500:
			return fmt.Errorf("store: read %s: status %d", key, resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("store: read %s: status %d", key, resp.StatusCode))
		}
	}

	if err := backoff.Retry(operation, s.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return value, nil
}

func (s *RemoteStore) Put(ctx context.Context, key string, value []byte) error {
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.recordURL(key), bytes.NewReader(value))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("store: build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/octet-stream")

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("store: put %s: %w", key, err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 500 {
			return fmt.Errorf("store: put %s: status %d", key, resp.StatusCode)
		}
		if resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("store: put %s: status %d", key, resp.StatusCode))
		}
		return nil
	}

	return backoff.Retry(operation, s.newBackOff(ctx))
}

func (s *RemoteStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Read(ctx, key)
	if err == nil {
		return true, nil
	}
	if err == ErrKeyNotFound {
		return false, nil
	}
	return false, err
}

func (s *RemoteStore) newBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = s.maxElapsed
	return backoff.WithContext(b, ctx)
}
