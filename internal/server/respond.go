package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/abhisek/assessd/internal/quiz"
)

const maxBodyBytes = 1 << 20

const unavailableMessage = "Quiz generation is temporarily unavailable. Please try again in a moment."

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, r, quiz.Invalid("malformed JSON body: %v", err))
		return false
	}
	return true
}

// statusFor maps a service error to an HTTP status, a client message and
// a kind label.
func statusFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, quiz.ErrInputInvalid):
		return http.StatusBadRequest, err.Error(), "input_invalid"
	case errors.Is(err, quiz.ErrForbidden):
		return http.StatusForbidden, "forbidden", "forbidden"
	case errors.Is(err, quiz.ErrNotEnrolled):
		return http.StatusForbidden, "not enrolled in course", "not_enrolled"
	case errors.Is(err, quiz.ErrQuizChanged):
		return http.StatusConflict, err.Error(), "quiz_changed"
	case errors.Is(err, quiz.ErrAttemptNotFound):
		return http.StatusNotFound, "attempt not found", "attempt_not_found"
	case errors.Is(err, quiz.ErrQuizNotFound):
		return http.StatusNotFound, "quiz not found", "quiz_not_found"
	case errors.Is(err, quiz.ErrLessonNotFound):
		return http.StatusNotFound, "lesson not found", "lesson_not_found"
	case errors.Is(err, quiz.ErrCourseNotFound):
		return http.StatusNotFound, "course not found", "course_not_found"
	case errors.Is(err, quiz.ErrOutputNotJSON):
		return http.StatusServiceUnavailable, unavailableMessage, "output_not_json"
	case errors.Is(err, quiz.ErrOutputSchemaMismatch):
		return http.StatusServiceUnavailable, unavailableMessage, "output_schema_mismatch"
	case errors.Is(err, quiz.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, unavailableMessage, "provider_unavailable"
	case errors.Is(err, quiz.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "service temporarily unavailable", "store_unavailable"
	}
	return http.StatusInternalServerError, "internal error", ""
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg, kind := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("kind", kind),
			slog.Any("error", err))
	}
	writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}
