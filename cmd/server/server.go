package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/learnquest/learnquest/internal/curriculum"
	"github.com/learnquest/learnquest/internal/generator"
	"github.com/learnquest/learnquest/internal/leaderboard"
	"github.com/learnquest/learnquest/internal/progress"
	"github.com/learnquest/learnquest/internal/resolver"
	"github.com/learnquest/learnquest/internal/syllabus"
)

// server holds the wired application and exposes the HTTP API.
type server struct {
	repo      curriculum.Repository
	store     progress.Store
	resolver  *resolver.Resolver
	evaluator *progress.Evaluator
	board     leaderboard.Board
	syllabus  *syllabus.Service
	buddy     http.Handler
	ready     func(ctx context.Context) error
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /api/curriculums", s.handleListCurriculums)
	mux.HandleFunc("POST /api/curriculums", s.handleCreateCurriculum)
	mux.HandleFunc("GET /api/curriculums/{id}/roadmap", s.handleRoadmap)
	mux.HandleFunc("GET /api/topics", s.handleTopic)

	mux.HandleFunc("POST /api/profiles", s.handleCreateProfile)
	mux.HandleFunc("GET /api/profiles/{id}", s.handleGetProfile)
	mux.HandleFunc("POST /api/attempts", s.handleAttempt)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)

	mux.Handle("GET /ws/studybuddy", s.buddy)
	return mux
}

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.ready(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *server) handleListCurriculums(w http.ResponseWriter, r *http.Request) {
	list, err := s.repo.List(r.Context())
	if err != nil {
		s.serverError(w, "list curriculums", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"curriculums": list})
}

func (s *server) handleCreateCurriculum(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Board    string `json:"board"`
		Class    string `json:"class"`
		Subject  string `json:"subject"`
		Syllabus string `json:"syllabus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := s.syllabus.Build(r.Context(), req.Board, req.Class, req.Subject, req.Syllabus)
	if err != nil {
		switch {
		case errors.Is(err, generator.ErrMalformed):
			writeError(w, http.StatusBadGateway, "syllabus generation returned an unusable structure")
		case req.Board == "" || req.Class == "" || req.Subject == "":
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.serverError(w, "build curriculum", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// roadmapTopic is one topic on the learner's roadmap.
type roadmapTopic struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
	Status   string `json:"status"`
	XP       int    `json:"xp"`
}

func (s *server) handleRoadmap(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user query parameter is required")
		return
	}

	c, err := s.repo.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, curriculum.ErrNotFound) {
			writeError(w, http.StatusNotFound, "curriculum not found")
			return
		}
		s.serverError(w, "get curriculum", err)
		return
	}

	rec, err := s.store.GetRecord(r.Context(), userID, c.ID)
	if err != nil {
		s.serverError(w, "get progress record", err)
		return
	}
	statuses := progress.Classify(c.TopicCount(), rec)

	type roadmapUnit struct {
		Title  string         `json:"title"`
		Topics []roadmapTopic `json:"topics"`
	}
	units := make([]roadmapUnit, 0, len(c.Units))
	pos := 0
	for _, u := range c.Units {
		ru := roadmapUnit{Title: u.Title}
		for _, topic := range u.Topics {
			ru.Topics = append(ru.Topics, roadmapTopic{
				Name:     topic.Name,
				Position: pos,
				Status:   statuses[pos].String(),
				XP:       topic.XPValue(),
			})
			pos++
		}
		units = append(units, ru)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"curriculumId":    c.ID,
		"currentPosition": rec.CurrentPosition,
		"completed":       len(rec.CompletedPositions),
		"units":           units,
	})
}

func (s *server) handleTopic(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	curriculumID := q.Get("curriculum")
	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		sessionID = q.Get("session")
	}
	if curriculumID == "" || sessionID == "" {
		writeError(w, http.StatusBadRequest, "curriculum and session are required")
		return
	}
	unitIdx, err1 := strconv.Atoi(q.Get("unit"))
	topicIdx, err2 := strconv.Atoi(q.Get("topic"))
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "unit and topic must be integers")
		return
	}

	resolved, err := s.resolver.Resolve(r.Context(), sessionID, curriculumID, unitIdx, topicIdx)
	if err != nil {
		switch {
		case errors.Is(err, curriculum.ErrNotFound):
			writeError(w, http.StatusNotFound, "topic not found")
		case errors.Is(err, resolver.ErrNotesGeneration), errors.Is(err, resolver.ErrQuizGeneration):
			slog.Warn("topic resolution failed", "curriculum_id", curriculumID, "error", err)
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			s.serverError(w, "resolve topic", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

func (s *server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID       string `json:"userId"`
		CurriculumID string `json:"curriculumId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	if err := s.store.CreateProfile(r.Context(), progress.NewProfile(req.UserID)); err != nil {
		s.serverError(w, "create profile", err)
		return
	}
	if req.CurriculumID != "" {
		if err := s.store.Subscribe(r.Context(), req.UserID, req.CurriculumID); err != nil {
			s.serverError(w, "subscribe", err)
			return
		}
	}

	p, err := s.store.GetProfile(r.Context(), req.UserID)
	if err != nil {
		s.serverError(w, "get profile", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, progress.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		s.serverError(w, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleAttempt(w http.ResponseWriter, r *http.Request) {
	var attempt progress.Attempt
	if err := json.NewDecoder(r.Body).Decode(&attempt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if attempt.UserID == "" || attempt.CurriculumID == "" {
		writeError(w, http.StatusBadRequest, "userId and curriculumId are required")
		return
	}

	outcome, err := s.evaluator.Evaluate(r.Context(), attempt)
	if err != nil {
		switch {
		case errors.Is(err, progress.ErrProfileNotFound):
			writeError(w, http.StatusNotFound, "profile not found")
		case attempt.Total <= 0, attempt.Correct < 0, attempt.Correct > attempt.Total, attempt.Position < 0:
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.serverError(w, "evaluate attempt", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	n := 10
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = parsed
	}

	if r.URL.Query().Get("format") == "xlsx" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="leaderboard.xlsx"`)
		if err := leaderboard.ExportXLSX(r.Context(), s.board, n, w); err != nil {
			slog.Error("leaderboard export failed", "error", err)
		}
		return
	}

	entries, err := s.board.Top(r.Context(), n)
	if err != nil {
		s.serverError(w, "leaderboard", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *server) serverError(w http.ResponseWriter, op string, err error) {
	slog.Error(op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
