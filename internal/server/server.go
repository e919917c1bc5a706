// Package server is the HTTP transport of the transcoder. It maps requests
// onto the transcoding service and writes its responses.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/geoknoesis/ldproxy/internal/codec"
	errs "github.com/geoknoesis/ldproxy/internal/errors"
	"github.com/geoknoesis/ldproxy/internal/metric"
	"github.com/geoknoesis/ldproxy/internal/transcode"
)

const (
	echoPrefix  = "/echo/"
	proxyPrefix = "/proxy/"

	// RequestIDHeader carries the request identifier in both directions.
	RequestIDHeader = "X-Request-ID"
)

// Config holds the transport settings.
type Config struct {
	ListenAddress string
	// PublicBaseURL is the externally visible root of the server, ending
	// in "/". When empty it is derived from each request.
	PublicBaseURL string
	Gzip          bool
	// MaxBodyBytes bounds request bodies; 0 means no limit.
	MaxBodyBytes int64
	Logger       *zap.Logger
}

// Server serves the transcoding routes.
type Server struct {
	service       *transcode.Service
	registry      *codec.Registry
	metrics       *metric.Metrics
	publicBaseURL string
	maxBodyBytes  int64
	logger        *zap.Logger
	handler       http.Handler
	httpServer    *http.Server
}

// New creates a server. metrics may be nil, in which case /metrics is not
// served.
func New(cfg Config, service *transcode.Service, registry *codec.Registry, metrics *metric.Registry) (*Server, error) {
	if service == nil || registry == nil {
		return nil, errs.WrapFatal(fmt.Errorf("%w: service and registry are required", errs.ErrInvalidConfig),
			"Server", "New", "dependency check")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		service:       service,
		registry:      registry,
		publicBaseURL: cfg.PublicBaseURL,
		maxBodyBytes:  cfg.MaxBodyBytes,
		logger:        logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("PUT "+echoPrefix, s.instrument("echo", s.handleEcho))
	mux.HandleFunc("POST "+echoPrefix, s.instrument("echo", s.handleEcho))
	mux.HandleFunc("GET /formats", s.handleFormats)
	mux.HandleFunc("GET /healthz", handleHealth)
	if metrics != nil {
		s.metrics = metrics.Metrics()
		mux.Handle("GET /metrics", metrics.Handler())
	}

	proxy := s.instrument("proxy", s.handleProxy)
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Proxy targets contain "//", which the mux would clean and redirect.
		if strings.HasPrefix(r.URL.Path, proxyPrefix) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				w.Header().Set("Allow", "GET, HEAD")
				writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			proxy(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})
	if cfg.Gzip {
		handler = gzhttp.GzipHandler(handler)
	}
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("address", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errs.WrapFatal(err, "Server", "ListenAndServe", "listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(err, "Server", "ListenAndServe", "shutdown")
	}
	return nil
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, requestID string) int

// instrument assigns the request ID and records the outcome of route.
func (s *Server) instrument(route string, h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		status := h(w, r, requestID)

		if s.metrics != nil {
			s.metrics.ObserveRequest(route, outcomeOf(status), time.Since(start))
		}
		s.logger.Debug("Request handled",
			zap.String("route", route),
			zap.String("request_id", requestID),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request, requestID string) int {
	body := io.Reader(r.Body)
	if s.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return writeJSONError(w, http.StatusRequestEntityTooLarge, err.Error())
		}
		return writeJSONError(w, http.StatusBadRequest, err.Error())
	}

	req := s.newRequest(r, requestID)
	req.ContentType = r.Header.Get("Content-Type")
	req.Body = data

	resp, err := s.service.Transcode(r.Context(), req)
	return s.respond(w, resp, err)
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request, requestID string) int {
	target := strings.TrimPrefix(r.URL.Path, proxyPrefix)
	req := s.newRequest(r, requestID)
	req.ProxyBase = s.proxyBase(r)

	resp, err := s.service.Proxy(r.Context(), target, req)
	return s.respond(w, resp, err)
}

func (s *Server) handleFormats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Codecs())
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) newRequest(r *http.Request, requestID string) transcode.Request {
	query := r.URL.Query()
	req := transcode.Request{
		Accept:    r.Header.Get("Accept"),
		Override:  query.Get("format"),
		BaseURL:   requestURL(r),
		RequestID: requestID,
	}
	if v, err := strconv.ParseBool(query.Get("prettyprint")); err == nil {
		req.Prettyprint = &v
	}
	if v, err := strconv.ParseBool(query.Get("keep_context")); err == nil {
		req.KeepContext = v
	}
	if v, err := strconv.ParseBool(query.Get("drop_context")); err == nil {
		req.DropContext = v
	}
	return req
}

func (s *Server) proxyBase(r *http.Request) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + strings.TrimPrefix(proxyPrefix, "/")
	}
	scheme, host := origin(r)
	return scheme + "://" + host + proxyPrefix
}

func (s *Server) respond(w http.ResponseWriter, resp *transcode.Response, err error) int {
	if err != nil {
		var failure *transcode.Failure
		if !errors.As(err, &failure) {
			failure = &transcode.Failure{Status: transcode.StatusOf(err), Err: err}
		}
		if failure.Status >= http.StatusInternalServerError {
			s.logger.Warn("Request failed", zap.Int("status", failure.Status), zap.Error(err))
		}
		resp = failure.Response()
	}
	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(resp.Status)
	if _, err := w.Write(resp.Body); err != nil {
		s.logger.Debug("Failed to write response", zap.Error(err))
	}
	return resp.Status
}

// origin returns the scheme and host the client used, honouring the
// X-Forwarded-Proto and X-Forwarded-Host headers of a reverse proxy.
func origin(r *http.Request) (scheme, host string) {
	scheme = "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	host = r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme, host
}

func requestURL(r *http.Request) string {
	scheme, host := origin(r)
	return scheme + "://" + host + r.URL.EscapedPath()
}

func outcomeOf(status int) string {
	switch {
	case status < 400:
		return metric.OutcomeOK
	case status == http.StatusNotAcceptable, status == http.StatusUnsupportedMediaType:
		return metric.OutcomeNotAcceptable
	case status == http.StatusBadGateway, status == http.StatusGatewayTimeout:
		return metric.OutcomeUpstreamError
	case status < 500:
		return metric.OutcomeClientError
	default:
		return metric.OutcomeServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, message string) int {
	writeJSON(w, status, map[string]string{"error": message})
	return status
}
