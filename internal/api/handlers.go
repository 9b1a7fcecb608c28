package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/becoming/becoming/internal/core"
	"github.com/becoming/becoming/internal/insight"
	"github.com/becoming/becoming/internal/metrics"
	"github.com/becoming/becoming/internal/reflection"
	"github.com/becoming/becoming/internal/state"
)

// The store is mechanism; tier limits and input validation are policy and
// live here at the API boundary. The store itself never rejects a
// well-typed mutation.

// --- State ---

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.store.State())
}

// updateStateRequest is the shallow-merge escape hatch for flag changes.
type updateStateRequest struct {
	HasCompletedOnboarding *bool      `json:"has_completed_onboarding,omitempty"`
	ActiveIntentions       *[]string  `json:"active_intentions,omitempty"`
	LastReflectionDate     *time.Time `json:"last_reflection_date,omitempty"`
}

func (s *Server) handleUpdateState(w http.ResponseWriter, r *http.Request) {
	var req updateStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.store.UpdateState(state.Partial{
		HasCompletedOnboarding: req.HasCompletedOnboarding,
		ActiveIntentions:       req.ActiveIntentions,
		LastReflectionDate:     req.LastReflectionDate,
	})
	s.respondJSON(w, http.StatusOK, s.store.State())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.store.ResetState()
	s.respondJSON(w, http.StatusOK, s.store.State())
}

// --- Wins ---

func (s *Server) handleGetWins(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.store.State().Wins)
}

type addWinRequest struct {
	Text string       `json:"text"`
	Type core.WinType `json:"type"`
}

func (s *Server) handleAddWin(w http.ResponseWriter, r *http.Request) {
	var req addWinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.Type == "" {
		req.Type = core.WinTypeText
	}

	win := core.Win{
		ID:        uuid.NewString(),
		Text:      req.Text,
		Type:      req.Type,
		Timestamp: time.Now(),
	}
	s.store.AddWin(win)
	s.respondJSON(w, http.StatusCreated, win)
}

// --- Practice logs ---

func (s *Server) handleGetPracticeLogs(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.store.State().PracticeLogs)
}

type logPracticeRequest struct {
	Practice string               `json:"practice"`
	Level    core.CompletionLevel `json:"level"`
}

func (s *Server) handleLogPractice(w http.ResponseWriter, r *http.Request) {
	var req logPracticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Practice == "" {
		s.respondError(w, http.StatusBadRequest, "practice is required")
		return
	}
	if !req.Level.Valid() {
		s.respondError(w, http.StatusBadRequest, "level must be yes, little, or not_today")
		return
	}

	log := core.PracticeLog{
		ID:        uuid.NewString(),
		Practice:  req.Practice,
		Level:     req.Level,
		Timestamp: time.Now(),
	}
	s.store.LogPractice(log)
	s.respondJSON(w, http.StatusCreated, log)
}

// --- Focus cycle ---

func (s *Server) handleGetFocusCycle(w http.ResponseWriter, r *http.Request) {
	snapshot := s.store.State()
	if snapshot.CurrentFocusCycle == nil {
		s.respondError(w, http.StatusNotFound, "no active focus cycle")
		return
	}
	s.respondJSON(w, http.StatusOK, snapshot.CurrentFocusCycle)
}

type setFocusCycleRequest struct {
	Intention string   `json:"intention"`
	Practices []string `json:"practices"`
}

func (s *Server) handleSetFocusCycle(w http.ResponseWriter, r *http.Request) {
	var req setFocusCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Intention == "" {
		s.respondError(w, http.StatusBadRequest, "intention is required")
		return
	}

	cycle := core.FocusCycle{
		Intention:     req.Intention,
		Practices:     req.Practices,
		WeekStartDate: time.Now(),
	}
	s.store.SetFocusCycle(cycle)
	s.respondJSON(w, http.StatusOK, cycle)
}

// handleClearFocusCycle abandons the cycle without a reflection. Pivoting a
// due reflection goes through /reflection/pivot instead.
func (s *Server) handleClearFocusCycle(w http.ResponseWriter, r *http.Request) {
	if s.store.State().CurrentFocusCycle == nil {
		s.respondError(w, http.StatusNotFound, "no active focus cycle")
		return
	}
	s.store.ClearFocusCycle()
	s.respondJSON(w, http.StatusOK, s.store.State())
}

// --- Identities ---

// identityCard is an identity with its derived score, as rendered on the
// identity card view.
type identityCard struct {
	core.IdentityDefinition
	Score int `json:"score"`
}

func (s *Server) handleGetIdentities(w http.ResponseWriter, r *http.Request) {
	snapshot := s.store.State()
	now := time.Now()

	cards := make([]identityCard, 0, len(snapshot.CustomIdentities))
	for _, ident := range snapshot.CustomIdentities {
		cards = append(cards, identityCard{
			IdentityDefinition: ident,
			Score:              metrics.ScoreFor(snapshot, ident, now),
		})
	}
	s.respondJSON(w, http.StatusOK, cards)
}

type addIdentityRequest struct {
	Intention string   `json:"intention"`
	Practices []string `json:"practices"`
}

func (s *Server) handleAddIdentity(w http.ResponseWriter, r *http.Request) {
	var req addIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Intention == "" {
		s.respondError(w, http.StatusBadRequest, "intention is required")
		return
	}
	if len(req.Practices) > core.MaxPracticesPerIdentity {
		s.respondError(w, http.StatusBadRequest, "too many practices for identity")
		return
	}

	identity := core.IdentityDefinition{
		ID:        uuid.NewString(),
		Intention: req.Intention,
		Practices: req.Practices,
	}
	s.store.AddCustomIdentity(identity)
	s.respondJSON(w, http.StatusCreated, identity)
}

func (s *Server) handleRemoveIdentity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "identityID")

	found := false
	for _, ident := range s.store.State().CustomIdentities {
		if ident.ID == id {
			found = true
			break
		}
	}
	if !found {
		s.respondError(w, http.StatusNotFound, "identity not found")
		return
	}

	s.store.RemoveCustomIdentity(id)
	s.respondJSON(w, http.StatusOK, s.store.State())
}

type toggleIntentionRequest struct {
	Label string `json:"label"`
}

func (s *Server) handleToggleIntention(w http.ResponseWriter, r *http.Request) {
	var req toggleIntentionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Label == "" {
		s.respondError(w, http.StatusBadRequest, "label is required")
		return
	}

	snapshot := s.store.State()
	if !snapshot.HasIntention(req.Label) && len(snapshot.ActiveIntentions) >= snapshot.IdentityLimit() {
		s.respondError(w, http.StatusForbidden, "active identity limit reached")
		return
	}

	s.store.ToggleIntention(req.Label)
	s.respondJSON(w, http.StatusOK, s.store.State())
}

// --- Settings ---

type setPremiumRequest struct {
	Premium bool `json:"premium"`
}

func (s *Server) handleSetPremium(w http.ResponseWriter, r *http.Request) {
	var req setPremiumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.store.SetPremium(req.Premium)
	s.respondJSON(w, http.StatusOK, s.store.State())
}

type setPersonalityRequest struct {
	Personality core.Personality `json:"personality"`
}

func (s *Server) handleSetPersonality(w http.ResponseWriter, r *http.Request) {
	var req setPersonalityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Personality.Valid() {
		s.respondError(w, http.StatusBadRequest, "unknown personality")
		return
	}

	// Personality selection is a premium entitlement; free tier keeps the
	// default voice.
	if !s.store.State().IsPremium && req.Personality != core.PersonalityWiseFriend {
		s.respondError(w, http.StatusForbidden, "personality selection requires premium")
		return
	}

	s.store.SetActivePersonality(req.Personality)
	s.respondJSON(w, http.StatusOK, s.store.State())
}

// --- Derived views ---

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, metrics.Summarize(s.store.State(), time.Now()))
}

// --- Reflection ---

type reflectionStatusResponse struct {
	Status reflection.Status `json:"status"`
}

func (s *Server) handleGetReflection(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, reflectionStatusResponse{
		Status: s.reflections.Status(time.Now()),
	})
}

func (s *Server) handleReflectionContinue(w http.ResponseWriter, r *http.Request) {
	if err := s.reflections.Continue(time.Now()); err != nil {
		s.respondError(w, http.StatusConflict, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, s.store.State())
}

func (s *Server) handleReflectionPivot(w http.ResponseWriter, r *http.Request) {
	if err := s.reflections.Pivot(); err != nil {
		s.respondError(w, http.StatusConflict, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, s.store.State())
}

// --- Insight ---

type insightResponse struct {
	Text string `json:"text"`
}

func (s *Server) handleGetInsight(w http.ResponseWriter, r *http.Request) {
	if s.insights == nil {
		s.respondJSON(w, http.StatusOK, insightResponse{Text: insight.Fallback})
		return
	}
	s.respondJSON(w, http.StatusOK, insightResponse{
		Text: s.insights.Generate(r.Context(), s.store.State()),
	})
}
