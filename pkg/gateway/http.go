package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/canopysites/canopy/pkg/build"
	"github.com/canopysites/canopy/pkg/contentcrypto"
	"github.com/canopysites/canopy/pkg/protocol"
)

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	// OwnerKey serves a single owner's site on every hostname.
	OwnerKey string

	// DomainRouting enables per-hostname lookup through the domain
	// registry. Takes precedence over OwnerKey when both are set.
	DomainRouting bool

	// PreviewEnabled allows ?build=<id> query previews.
	PreviewEnabled bool
}

// Metrics receives per-request RED measurements.
// *observability.Provider implements it.
type Metrics interface {
	RecordRequest(ctx context.Context, attrs ...attribute.KeyValue)
	RecordError(ctx context.Context, err error, attrs ...attribute.KeyValue)
	RecordDuration(ctx context.Context, duration time.Duration, attrs ...attribute.KeyValue)
}

// Server is the HTTP front of the gateway.
type Server struct {
	orchestrator *Orchestrator
	cfg          ServerConfig
	logger       *slog.Logger
	metrics      Metrics
}

// NewServer creates the HTTP layer over an orchestrator.
func NewServer(o *Orchestrator, cfg ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{orchestrator: o, cfg: cfg, logger: logger}
}

// WithMetrics attaches a metrics recorder; every content request then
// counts toward rate, errors, and duration.
func (s *Server) WithMetrics(m Metrics) *Server {
	s.metrics = m
	return s
}

// Router builds the chi router with the gateway's middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/*", s.handleContent)
	r.Head("/*", s.handleContent)

	return r
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	base, ok := s.serveBase(ctx, w, r)
	if !ok {
		return
	}

	acceptGzip := strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
	content, err := s.orchestrator.ServeContent(ctx, base, r.URL.Path, acceptGzip)
	if err != nil {
		status := s.writeError(w, r, err)
		s.observe(ctx, start, status, err)
		return
	}

	if content.RedirectLocation != "" {
		http.Redirect(w, r, content.RedirectLocation, http.StatusMovedPermanently)
		s.observe(ctx, start, http.StatusMovedPermanently, nil)
		return
	}

	w.Header().Set("Content-Type", content.ContentType)
	w.Header().Set("Cache-Control", content.CacheControl)
	if content.ContentEncoding != "" {
		w.Header().Set("Content-Encoding", content.ContentEncoding)
	}
	if content.IsFallback {
		w.Header().Set("X-Canopy-Fallback", "1")
	}
	if r.Method != http.MethodHead {
		_, _ = w.Write(content.Body)
	}
	s.observe(ctx, start, http.StatusOK, nil)
}

// observe records one request's RED measurements, if a recorder is attached.
func (s *Server) observe(ctx context.Context, start time.Time, status int, err error) {
	if s.metrics == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.Int("http.status_code", status)}
	s.metrics.RecordRequest(ctx, attrs...)
	s.metrics.RecordDuration(ctx, time.Since(start), attrs...)
	if err != nil {
		s.metrics.RecordError(ctx, err, attrs...)
	}
}

// serveBase determines where this request is served from: the domain
// registry when enabled, else the configured owner. Previews ride on a
// query parameter.
func (s *Server) serveBase(ctx context.Context, w http.ResponseWriter, r *http.Request) (ServeBase, bool) {
	var base ServeBase

	switch {
	case s.cfg.DomainRouting:
		host := r.Host
		if h, _, err := net.SplitHostPort(r.Host); err == nil {
			host = h
		}
		mapping, err := s.orchestrator.ResolveDomain(ctx, host)
		if err != nil {
			if errors.Is(err, protocol.ErrNotFound) {
				http.Error(w, "unknown domain", http.StatusNotFound)
			} else {
				s.writeError(w, r, err)
			}
			return ServeBase{}, false
		}
		base = BaseFromDomain(mapping)
	case s.cfg.OwnerKey != "":
		base = ServeBase{OwnerKey: s.cfg.OwnerKey}
	default:
		http.Error(w, "gateway has no serving configuration", http.StatusServiceUnavailable)
		return ServeBase{}, false
	}

	if s.cfg.PreviewEnabled {
		base.BuildID = r.URL.Query().Get("build")
	}
	return base, true
}

// writeError maps core error kinds to transport status and returns the
// status it wrote. Response bodies never reveal which stage failed; the
// specific kind is logged internally.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) int {
	status := statusForError(err)

	s.logger.Error("request failed",
		"path", r.URL.Path,
		"host", r.Host,
		"status", status,
		"request_id", w.Header().Get("X-Request-ID"),
		"err", err,
	)

	http.Error(w, http.StatusText(status), status)
	return status
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, protocol.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, protocol.ErrLoopDetected):
		return http.StatusLoopDetected
	case errors.Is(err, build.ErrNoTarget),
		errors.Is(err, build.ErrNoManifest),
		errors.Is(err, protocol.ErrMalformedLink),
		errors.Is(err, protocol.ErrBadSignature):
		return http.StatusServiceUnavailable
	case errors.Is(err, contentcrypto.ErrNoKeyForHost),
		errors.Is(err, contentcrypto.ErrUnwrapFailed),
		errors.Is(err, contentcrypto.ErrDecryptFailed):
		return http.StatusInternalServerError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"host", r.Host,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", ww.Header().Get("X-Request-ID"),
		)
	})
}
