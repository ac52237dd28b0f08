package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appanalysis "github.com/bryanwahyu/docimpact/internal/application/analysis"
	appchat "github.com/bryanwahyu/docimpact/internal/application/chat"
	appdocs "github.com/bryanwahyu/docimpact/internal/application/documents"
	apptasks "github.com/bryanwahyu/docimpact/internal/application/tasks"
	domai "github.com/bryanwahyu/docimpact/internal/domain/ai"
	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/domain/chat"
	"github.com/bryanwahyu/docimpact/internal/domain/documents"
	"github.com/bryanwahyu/docimpact/internal/domain/tasks"
	"github.com/bryanwahyu/docimpact/internal/logger"
	"github.com/bryanwahyu/docimpact/internal/middleware"
)

type Services struct {
	Documents *appdocs.Service
	Analysis  *appanalysis.Service
	Chat      *appchat.Service
	Tasks     *apptasks.Service
}

type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	RateLimiter    *middleware.RateLimiter // nil disables rate limiting
	HealthCheckers map[string]middleware.HealthChecker
	Metrics        http.Handler // nil hides /metrics
}

type Router struct {
	svc       Services
	maxUpload int64
}

func NewRouter(svc Services, opts Options) http.Handler {
	r := &Router{svc: svc, maxUpload: opts.MaxUploadBytes}
	if r.maxUpload <= 0 {
		r.maxUpload = documents.DefaultMaxUploadBytes
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(chimw.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	if opts.RateLimiter != nil {
		mux.Use(middleware.RateLimitMiddleware(opts.RateLimiter))
	}

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/ready", middleware.ReadinessHandler(opts.HealthCheckers))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/stats", middleware.StatsHandler)
	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	mux.Route("/api", func(rt chi.Router) {
		rt.Post("/documents/upload", r.wrap(r.handleUpload))
		rt.Get("/documents", r.wrap(r.handleListDocuments))

		rt.Route("/documents/{id}", func(doc chi.Router) {
			doc.Get("/", r.wrap(r.handleGetDocument))

			doc.Get("/analysis", r.wrap(r.handleGetAnalysis))
			doc.Post("/analysis", r.wrap(r.handleRetryAnalysis))
			doc.Get("/analysis/errors", r.wrap(r.handleAnalysisErrors))

			doc.Post("/chat", r.wrap(r.handlePostMessage))
			doc.Get("/chat", r.wrap(r.handleHistory))
			doc.Get("/chat/respond", r.wrap(r.handleRespond))
			doc.Post("/chat/respond", r.wrap(r.handleRespond))

			doc.Get("/tasks", r.wrap(r.handleListTasks))
		})

		// sesi chat tanpa dokumen
		rt.Post("/chat", r.wrap(r.handlePostMessage))
		rt.Get("/chat", r.wrap(r.handleHistory))
		rt.Get("/chat/respond", r.wrap(r.handleRespond))
		rt.Post("/chat/respond", r.wrap(r.handleRespond))

		rt.Post("/tasks", r.wrap(r.handleCreateTask))
		rt.Patch("/tasks/{taskID}", r.wrap(r.handleUpdateTask))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// errInvalidRequest marks malformed input caught in the transport.
var errInvalidRequest = errors.New("invalid request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, fmt.Sprintf(format, args...))
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status, code := classify(err)
			if status >= http.StatusInternalServerError {
				logger.Error("request failed",
					zap.String("method", req.Method),
					zap.String("path", req.URL.Path),
					zap.String("request_id", chimw.GetReqID(req.Context())),
					zap.Error(err))
			}
			msg := err.Error()
			if status == http.StatusInternalServerError {
				msg = "internal server error"
			}
			writeJSON(w, status, errorBody{Error: code, Message: msg})
		}
	}
}

// classify maps domain errors to a status and an error code. Quota is
// checked before generation failure because the latter wraps it.
func classify(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, documents.ErrDocumentNotFound):
		return http.StatusNotFound, "document_not_found"
	case errors.Is(err, tasks.ErrTaskNotFound):
		return http.StatusNotFound, "task_not_found"
	case errors.Is(err, analysis.ErrAlreadyAnalyzed):
		return http.StatusConflict, "already_analyzed"
	case errors.Is(err, analysis.ErrInvalidAnalysisPayload):
		return http.StatusUnprocessableEntity, "invalid_analysis_payload"
	case errors.Is(err, chat.ErrNoMessageToRespondTo):
		return http.StatusBadRequest, "no_message_to_respond_to"
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "quota_exceeded"
	case errors.Is(err, chat.ErrGenerationFailure):
		return http.StatusBadGateway, "generation_failure"
	case errors.Is(err, documents.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, documents.ErrMissingFile),
		errors.Is(err, documents.ErrUnsupportedFileType),
		errors.Is(err, tasks.ErrInvalidTask):
		return http.StatusBadRequest, "invalid_request"
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, req *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return badRequest("malformed JSON body: %v", err)
	}
	return nil
}

func pathID(req *http.Request, name string) (int64, error) {
	id, err := middleware.ParseID(chi.URLParam(req, name))
	if err != nil {
		return 0, badRequest("%v", err)
	}
	return id, nil
}

// documentID returns nil on the document-less chat routes.
func documentID(req *http.Request) (*int64, error) {
	if chi.URLParam(req, "id") == "" {
		return nil, nil
	}
	id, err := pathID(req, "id")
	if err != nil {
		return nil, err
	}
	return &id, nil
}
