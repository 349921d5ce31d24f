// Package server is the thin HTTP adapter over the drill engine. It owns no
// business logic beyond the one policy the engine deliberately leaves to
// callers: refusing STAR steps submitted out of order.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/r-fujimoto/grind/pkg/model"
	"github.com/r-fujimoto/grind/pkg/repository"
	"github.com/r-fujimoto/grind/pkg/usecase/generate"
	"github.com/r-fujimoto/grind/pkg/usecase/history"
	"github.com/r-fujimoto/grind/pkg/usecase/validate"
	"github.com/r-fujimoto/grind/pkg/utils/logging"
)

// timeNow is the clock used for defaulting the date key. Overridable in
// tests.
var timeNow = time.Now

type Server struct {
	cache     repository.QuizCache
	generator *generate.UseCase
	validator *validate.UseCase
}

func New(cache repository.QuizCache, generator *generate.UseCase, validator *validate.UseCase) *Server {
	return &Server{
		cache:     cache,
		generator: generator,
		validator: validator,
	}
}

// Handler returns the HTTP routing table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Route("/api/quiz", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Get("/", s.handleList)
		r.Get("/{date}", s.handleGet)
		r.Post("/{date}/star", s.handleStar)
		r.Post("/{date}/code", s.handleCode)
		r.Post("/{date}/feedback", s.handleFeedback)
	})

	return r
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date  model.DateKey `json:"date"`
		Force bool          `json:"force"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Date == "" {
		req.Date = model.NewDateKey(timeNow())
	}

	quiz, err := s.generator.Generate(r.Context(), req.Date, req.Force)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quiz)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	date := model.DateKey(chi.URLParam(r, "date"))
	if err := date.Validate(); err != nil {
		respondError(w, r, err)
		return
	}

	quiz, err := s.cache.Get(r.Context(), date)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quiz)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, r, goerr.New("days must be an integer", goerr.V("days", v)))
			return
		}
		days = n
	}

	quizzes, err := history.List(r.Context(), s.cache, days)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"quizzes": quizzes})
}

func (s *Server) handleStar(w http.ResponseWriter, r *http.Request) {
	date := model.DateKey(chi.URLParam(r, "date"))
	var req struct {
		QuestionIndex int            `json:"questionIndex"`
		Step          model.StarStep `json:"step"`
		Answer        string         `json:"answer"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	quiz, err := s.cache.Get(r.Context(), date)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if req.QuestionIndex < 0 || req.QuestionIndex >= len(quiz.Resume.StarQuestions) {
		respondError(w, r, goerr.New("star question index out of range", goerr.V("index", req.QuestionIndex)))
		return
	}

	// Caller-side gate: the validator grades anything, so order is enforced
	// here before it runs.
	question := quiz.Resume.StarQuestions[req.QuestionIndex]
	if err := question.CanSubmit(req.Step); err != nil {
		respondError(w, r, err)
		return
	}

	segment, err := s.validator.ValidateStep(r.Context(), validate.StepInput{
		DateKey:       date,
		QuestionIndex: req.QuestionIndex,
		Step:          req.Step,
		Question:      question.Question,
		Answer:        req.Answer,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, segment)
}

func (s *Server) handleCode(w http.ResponseWriter, r *http.Request) {
	date := model.DateKey(chi.URLParam(r, "date"))
	var req struct {
		QuestionIndex int    `json:"questionIndex"`
		Answer        string `json:"answer"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	quiz, err := s.cache.Get(r.Context(), date)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if req.QuestionIndex < 0 || req.QuestionIndex >= len(quiz.Technical.CodingQuestions) {
		respondError(w, r, goerr.New("coding question index out of range", goerr.V("index", req.QuestionIndex)))
		return
	}

	question := quiz.Technical.CodingQuestions[req.QuestionIndex]
	result, err := s.validator.ValidateCode(r.Context(), validate.CodeInput{
		DateKey:       date,
		QuestionIndex: req.QuestionIndex,
		Question:      question.Description,
		Language:      question.Language,
		Answer:        req.Answer,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	date := model.DateKey(chi.URLParam(r, "date"))
	var req struct {
		Section  model.Section `json:"section"`
		Question string        `json:"question"`
		Answer   string        `json:"answer"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	feedback, err := s.validator.ValidateAnswer(r.Context(), validate.FeedbackInput{
		DateKey:  date,
		Section:  req.Section,
		Question: req.Question,
		Answer:   req.Answer,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, feedback)
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.New("invalid request body", goerr.V("cause", err.Error()))
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError maps the engine's error taxonomy onto HTTP statuses.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	kind := "invalid_request"

	switch {
	case errors.Is(err, model.ErrQuizNotFound):
		status, kind = http.StatusNotFound, "quiz_not_found"
	case errors.Is(err, model.ErrStepLocked):
		status, kind = http.StatusConflict, "step_locked"
	case errors.Is(err, model.ErrInsufficientContext):
		status, kind = http.StatusUnprocessableEntity, "insufficient_context"
	case errors.Is(err, model.ErrMalformedModelOutput):
		status, kind = http.StatusBadGateway, "malformed_model_output"
	case goerr.HasTag(err, model.TagEmbeddingUnavailable),
		goerr.HasTag(err, model.TagCompletionUnavailable),
		goerr.HasTag(err, model.TagStoreUnavailable),
		goerr.HasTag(err, model.TagCacheUnavailable):
		status, kind = http.StatusServiceUnavailable, "dependency_unavailable"
	}

	if status >= 500 {
		logging.From(r.Context()).Error("request failed", "kind", kind, "error", err)
	}

	respondJSON(w, status, map[string]any{
		"error": map[string]any{
			"kind":    kind,
			"message": err.Error(),
		},
	})
}
