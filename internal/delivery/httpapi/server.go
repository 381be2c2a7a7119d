package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"adcheck/internal/bootstrap/logging"
	"adcheck/internal/usecase/check"
)

// CheckService is the slice of the check usecase the HTTP layer consumes.
type CheckService interface {
	SubmitCheck(ctx context.Context, in check.SubmitCheckInput) (check.SubmitCheckResult, error)
	GetCheck(ctx context.Context, checkID string) (check.CheckDetail, error)
	QueueStatus(ctx context.Context, organizationID string) (check.QueueStatusDetail, error)
}

type Server struct {
	svc CheckService
}

func NewServer(svc CheckService) *Server {
	return &Server{svc: svc}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/checks", s.handleSubmitCheck)
		r.Get("/checks/{checkID}", s.handleGetCheck)
		r.Get("/organizations/{organizationID}/queue", s.handleQueueStatus)
	})

	return r
}

// requestLogger emits one structured line per request once the response is
// written, tagged with chi's request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		ctx := logging.WithAttrs(r.Context(),
			slog.String("component", "httpapi"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		next.ServeHTTP(ww, r.WithContext(ctx))

		logging.Info(ctx, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("elapsed", time.Since(started)),
		)
	})
}
