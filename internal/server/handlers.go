package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/assessd/internal/assessment"
	"github.com/abhisek/assessd/internal/auth"
	"github.com/abhisek/assessd/internal/quiz"
)

// answersBody carries one entry per question. A null entry is a skipped
// question.
type answersBody struct {
	Answers []*int `json:"answers"`
}

// lessonAnswersBody adds the quiz version the learner loaded. Zero means
// the current quiz.
type lessonAnswersBody struct {
	answersBody
	Version int `json:"version"`
}

func (b answersBody) values() []int {
	if b.Answers == nil {
		return nil
	}
	out := make([]int, len(b.Answers))
	for i, a := range b.Answers {
		out[i] = quiz.Unanswered
		if a != nil {
			out[i] = *a
		}
	}
	return out
}

func principal(r *http.Request) string {
	p, _ := auth.FromContext(r.Context())
	return p.UserID
}

func (s *Server) generateQuiz(w http.ResponseWriter, r *http.Request) {
	var in assessment.GenerateQuizInput
	if !s.decode(w, r, &in) {
		return
	}
	out, err := s.svc.GenerateQuiz(r.Context(), principal(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var body answersBody
	if !s.decode(w, r, &body) {
		return
	}
	out, err := s.svc.SubmitQuiz(r.Context(), principal(r), chi.URLParam(r, "attemptID"), body.values())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listAttempts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, quiz.Invalid("limit must be an integer"))
			return
		}
		limit = n
	}
	out, err := s.svc.ListAttempts(r.Context(), principal(r), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getAttempt(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.GetAttempt(r.Context(), principal(r), chi.URLParam(r, "attemptID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createInstructorQuiz(w http.ResponseWriter, r *http.Request) {
	var in assessment.CreateQuizInput
	if !s.decode(w, r, &in) {
		return
	}
	in.CourseID = chi.URLParam(r, "courseID")
	out, err := s.svc.CreateInstructorQuiz(r.Context(), principal(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) listCourseQuizzes(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.ListCourseQuizzes(r.Context(), principal(r), chi.URLParam(r, "courseID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getInstructorQuiz(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.GetInstructorQuiz(r.Context(), principal(r), chi.URLParam(r, "quizID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) startInstructorAttempt(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.StartInstructorQuizAttempt(r.Context(), principal(r), chi.URLParam(r, "quizID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) submitInstructorAttempt(w http.ResponseWriter, r *http.Request) {
	var body answersBody
	if !s.decode(w, r, &body) {
		return
	}
	out, err := s.svc.SubmitInstructorQuizAttempt(r.Context(), principal(r), chi.URLParam(r, "quizID"), body.values())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) generateLessonQuiz(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.GenerateLessonQuiz(r.Context(), principal(r), chi.URLParam(r, "lessonID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) getLessonQuiz(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.GetLessonQuiz(r.Context(), principal(r), chi.URLParam(r, "lessonID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) submitLessonQuiz(w http.ResponseWriter, r *http.Request) {
	var body lessonAnswersBody
	if !s.decode(w, r, &body) {
		return
	}
	out, err := s.svc.SubmitLessonQuiz(r.Context(), principal(r), chi.URLParam(r, "lessonID"), body.Version, body.values())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listLessonAttempts(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.ListLessonAttempts(r.Context(), principal(r), chi.URLParam(r, "lessonID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getInstructorAttempt(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.GetInstructorQuizAttempt(r.Context(), principal(r), chi.URLParam(r, "attemptID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getReadiness(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.GetReadiness(r.Context(), principal(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
