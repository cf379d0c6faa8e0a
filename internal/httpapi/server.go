package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vulnd/internal/detector"
	"vulnd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Info() types.ServiceInfo
	Health() types.HealthResponse
	Stats() types.StatsResponse
	Ready() bool
	Analyze(ctx context.Context, code string) (detector.Result, error)
}

// serverBaseCtx is a process-level context that can be canceled on shutdown.
// Defaults to Background if not set.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context that is canceled when either a or b is done.
// The returned cancel func must be called to release the goroutine when handler ends.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		}
	}()
	return ctx, cancel
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "X-Log-Level"},
			AllowCredentials: true,
		}))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Info())
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Health())
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Stats())
	})

	r.Post("/analyze", func(w http.ResponseWriter, r *http.Request) {
		// Precondition: reject before reading the body when the model
		// resource never became ready. No server-side retry.
		if !svc.Ready() {
			writeJSONError(w, http.StatusServiceUnavailable, "model not loaded, please retry later")
			return
		}
		// Content-Type check
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		// Limit body size (configurable, default 1MiB)
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			// Oversized bodies also land here; keep the message size-agnostic.
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Code) == "" {
			writeJSONError(w, http.StatusBadRequest, "code is required")
			return
		}
		if req.Filename == "" {
			req.Filename = types.DefaultFilename
		}

		start := time.Now()
		lvl := requestLogLevel(r)
		if lvl >= LevelInfo && zlog != nil {
			z := zlog.Info().Str("path", r.URL.Path).Str("filename", req.Filename).Int("code_bytes", len(req.Code))
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("analyze start")
		}

		// Join server base context with request context so shutdown cancels work too.
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		res, err := svc.Analyze(joinedCtx, req.Code)
		if err != nil {
			// If context was canceled (client disconnect), just return.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status := analyzeErrorStatus(err)
			msg := err.Error()
			if status == http.StatusInternalServerError {
				// Internal details go to the log, not the caller.
				msg = "analysis failed"
			}
			writeJSONError(w, status, msg)
			if lvl >= LevelError && zlog != nil {
				z := zlog.Error().Int("status", status).Dur("dur", time.Since(start)).Str("filename", req.Filename).Int("code_bytes", len(req.Code))
				if rid := middleware.GetReqID(r.Context()); rid != "" {
					z = z.Str("request_id", rid)
				}
				z.Err(err).Msg("analyze end")
			}
			return
		}

		countVerdict(res.Label)
		writeJSON(w, types.AnalyzeResponse{
			IsVulnerable: res.Vulnerable,
			Confidence:   res.Confidence,
			Prediction:   res.Label,
			Filename:     req.Filename,
		})
		if lvl >= LevelInfo && zlog != nil {
			z := zlog.Info().Int("status", http.StatusOK).Str("prediction", res.Label).Float64("confidence", res.Confidence).Dur("dur", time.Since(start))
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("analyze end")
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// analyzeErrorStatus maps well-known detector errors to HTTP status codes.
func analyzeErrorStatus(err error) int {
	switch {
	case detector.IsNotReady(err):
		return http.StatusServiceUnavailable
	case detector.IsInvalidInput(err):
		return http.StatusBadRequest
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}
