// Package server exposes the assessment service over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/abhisek/assessd/internal/assessment"
	"github.com/abhisek/assessd/internal/auth"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP handler.
type Options struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	svc  *assessment.Service
	auth *auth.Service
	db   Pinger
	log  *slog.Logger
}

// New builds the router.
func New(svc *assessment.Service, authSvc *auth.Service, db Pinger, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{svc: svc, auth: authSvc, db: db, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, accessLog(log), middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(auth.Middleware(authSvc))

		api.Post("/quizzes/generate", s.generateQuiz)
		api.Get("/attempts", s.listAttempts)
		api.Get("/attempts/{attemptID}", s.getAttempt)
		api.Post("/attempts/{attemptID}/submit", s.submitQuiz)

		api.Post("/courses/{courseID}/quizzes", s.createInstructorQuiz)
		api.Get("/courses/{courseID}/quizzes", s.listCourseQuizzes)
		api.Get("/quizzes/{quizID}", s.getInstructorQuiz)
		api.Post("/quizzes/{quizID}/attempts", s.startInstructorAttempt)
		api.Post("/quizzes/{quizID}/submit", s.submitInstructorAttempt)
		api.Get("/quiz-attempts/{attemptID}", s.getInstructorAttempt)

		api.Post("/lessons/{lessonID}/quiz/generate", s.generateLessonQuiz)
		api.Get("/lessons/{lessonID}/quiz", s.getLessonQuiz)
		api.Post("/lessons/{lessonID}/quiz/submit", s.submitLessonQuiz)
		api.Get("/lessons/{lessonID}/quiz/attempts", s.listLessonAttempts)

		api.Get("/me/readiness", s.getReadiness)
	})

	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.log.WarnContext(r.Context(), "readiness check failed", slog.Any("error", err))
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "database unavailable"})
		return
	}
	w.WriteHeader(http.StatusOK)
}

// accessLog logs one line per request.
func accessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.InfoContext(r.Context(), "http request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
					slog.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
