package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/becoming/becoming/internal/core"
	"github.com/becoming/becoming/internal/state"
	"github.com/becoming/becoming/internal/storage"
)

// testServer creates a server backed by an in-memory database
func testServer(t *testing.T) (*Server, *state.Store) {
	t.Helper()

	db, err := storage.Open(storage.Config{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	store := state.NewStore(storage.NewStateStore(db))
	srv := New(Config{Port: 0, Store: store})
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)
	return rr
}

// --- State ---

func TestAPI_GetState_Defaults(t *testing.T) {
	srv, _ := testServer(t)

	rr := doJSON(t, srv, "GET", "/api/v1/state", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var s core.UserState
	if err := json.Unmarshal(rr.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.HasCompletedOnboarding || s.IsPremium {
		t.Error("fresh install should serve default state")
	}
}

func TestAPI_UpdateState_Partial(t *testing.T) {
	srv, store := testServer(t)

	rr := doJSON(t, srv, "PATCH", "/api/v1/state", map[string]interface{}{
		"has_completed_onboarding": true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !store.State().HasCompletedOnboarding {
		t.Error("patch should set the onboarding flag")
	}
}

// --- Wins ---

func TestAPI_AddWin(t *testing.T) {
	srv, store := testServer(t)

	rr := doJSON(t, srv, "POST", "/api/v1/wins", map[string]string{"text": "spoke up in the meeting"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rr.Code)
	}

	var win core.Win
	json.Unmarshal(rr.Body.Bytes(), &win)
	if win.ID == "" {
		t.Error("server should generate the win ID")
	}
	if win.Type != core.WinTypeText {
		t.Errorf("type = %q, want default text", win.Type)
	}

	wins := store.State().Wins
	if len(wins) != 1 || wins[0].Text != "spoke up in the meeting" {
		t.Errorf("store wins = %v", wins)
	}
}

func TestAPI_AddWin_MissingText(t *testing.T) {
	srv, _ := testServer(t)

	rr := doJSON(t, srv, "POST", "/api/v1/wins", map[string]string{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

// --- Practice logs ---

func TestAPI_LogPractice(t *testing.T) {
	srv, store := testServer(t)

	rr := doJSON(t, srv, "POST", "/api/v1/practices", map[string]string{
		"practice": "evening walk",
		"level":    "little",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rr.Code)
	}

	logs := store.State().PracticeLogs
	if len(logs) != 1 || logs[0].Level != core.CompletionLittle {
		t.Errorf("store logs = %v", logs)
	}
}

func TestAPI_LogPractice_BadLevel(t *testing.T) {
	srv, _ := testServer(t)

	rr := doJSON(t, srv, "POST", "/api/v1/practices", map[string]string{
		"practice": "evening walk",
		"level":    "sort_of",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

// --- Focus cycle ---

func TestAPI_FocusCycle(t *testing.T) {
	srv, _ := testServer(t)

	rr := doJSON(t, srv, "GET", "/api/v1/focus-cycle", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status with no cycle = %d, want 404", rr.Code)
	}

	rr = doJSON(t, srv, "PUT", "/api/v1/focus-cycle", map[string]interface{}{
		"intention": "a generous mentor",
		"practices": []string{"one intro", "one review"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	rr = doJSON(t, srv, "GET", "/api/v1/focus-cycle", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status after set = %d, want 200", rr.Code)
	}

	var cycle core.FocusCycle
	json.Unmarshal(rr.Body.Bytes(), &cycle)
	if cycle.Intention != "a generous mentor" || len(cycle.Practices) != 2 {
		t.Errorf("cycle = %+v", cycle)
	}
	if cycle.WeekStartDate.IsZero() {
		t.Error("server should stamp the week start date")
	}
}

func TestAPI_ClearFocusCycle(t *testing.T) {
	srv, store := testServer(t)

	rr := doJSON(t, srv, "DELETE", "/api/v1/focus-cycle", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status with no cycle = %d, want 404", rr.Code)
	}

	store.SetFocusCycle(core.FocusCycle{Intention: "a runner", WeekStartDate: time.Now()})

	rr = doJSON(t, srv, "DELETE", "/api/v1/focus-cycle", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	s := store.State()
	if s.CurrentFocusCycle != nil {
		t.Error("cycle should be abandoned")
	}
	if s.LastReflectionDate != nil {
		t.Error("abandoning a cycle is not a reflection; no date stamped")
	}
}

// --- Identities and the tier limit ---

func TestAPI_ListIdentities_WithScores(t *testing.T) {
	srv, store := testServer(t)

	doJSON(t, srv, "POST", "/api/v1/identities", map[string]interface{}{
		"intention": "a runner",
		"practices": []string{"morning run"},
	})
	store.LogPractice(core.PracticeLog{ID: "l1", Practice: "morning run", Level: core.CompletionYes, Timestamp: time.Now()})

	rr := doJSON(t, srv, "GET", "/api/v1/identities", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var cards []struct {
		Intention string `json:"intention"`
		Score     int    `json:"score"`
	}
	json.Unmarshal(rr.Body.Bytes(), &cards)
	if len(cards) != 1 {
		t.Fatalf("len(cards) = %d, want 1", len(cards))
	}
	// One day, one completion, one-day streak: 5 + 2 + 3.
	if cards[0].Score != 10 {
		t.Errorf("score = %d, want 10", cards[0].Score)
	}
}

func TestAPI_ToggleIntention_FreeTierLimit(t *testing.T) {
	srv, store := testServer(t)

	for _, label := range []string{"a runner", "a writer"} {
		rr := doJSON(t, srv, "POST", "/api/v1/intentions/toggle", map[string]string{"label": label})
		if rr.Code != http.StatusOK {
			t.Fatalf("toggle %q status = %d, want 200", label, rr.Code)
		}
	}

	// Third activation exceeds the free limit.
	rr := doJSON(t, srv, "POST", "/api/v1/intentions/toggle", map[string]string{"label": "a painter"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 at the free limit", rr.Code)
	}

	// Deactivating past the limit is always allowed.
	rr = doJSON(t, srv, "POST", "/api/v1/intentions/toggle", map[string]string{"label": "a runner"})
	if rr.Code != http.StatusOK {
		t.Fatalf("deactivation status = %d, want 200", rr.Code)
	}

	// Premium raises the ceiling.
	store.SetPremium(true)
	rr = doJSON(t, srv, "POST", "/api/v1/intentions/toggle", map[string]string{"label": "a painter"})
	if rr.Code != http.StatusOK {
		t.Errorf("premium toggle status = %d, want 200", rr.Code)
	}
}

func TestAPI_AddIdentity_TooManyPractices(t *testing.T) {
	srv, _ := testServer(t)

	rr := doJSON(t, srv, "POST", "/api/v1/identities", map[string]interface{}{
		"intention": "a polymath",
		"practices": []string{"a", "b", "c", "d", "e"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for more than 4 practices", rr.Code)
	}
}

func TestAPI_RemoveIdentity(t *testing.T) {
	srv, store := testServer(t)

	rr := doJSON(t, srv, "POST", "/api/v1/identities", map[string]interface{}{
		"intention": "a patient parent",
	})
	var ident core.IdentityDefinition
	json.Unmarshal(rr.Body.Bytes(), &ident)

	doJSON(t, srv, "POST", "/api/v1/intentions/toggle", map[string]string{"label": "a patient parent"})

	rr = doJSON(t, srv, "DELETE", "/api/v1/identities/"+ident.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	s := store.State()
	if len(s.CustomIdentities) != 0 {
		t.Error("identity should be removed")
	}
	if s.HasIntention("a patient parent") {
		t.Error("its intention should be deactivated with it")
	}

	rr = doJSON(t, srv, "DELETE", "/api/v1/identities/no-such-id", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown identity", rr.Code)
	}
}

// --- Settings ---

func TestAPI_SetPersonality_PremiumGate(t *testing.T) {
	srv, store := testServer(t)

	rr := doJSON(t, srv, "PUT", "/api/v1/settings/personality", map[string]string{"personality": "muse"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 for free tier", rr.Code)
	}

	store.SetPremium(true)
	rr = doJSON(t, srv, "PUT", "/api/v1/settings/personality", map[string]string{"personality": "muse"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for premium", rr.Code)
	}
	if store.State().ActivePersonality != core.PersonalityMuse {
		t.Error("personality should be applied")
	}

	rr = doJSON(t, srv, "PUT", "/api/v1/settings/personality", map[string]string{"personality": "drill-sergeant"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown personality", rr.Code)
	}
}

// --- Stats ---

func TestAPI_GetStats(t *testing.T) {
	srv, store := testServer(t)

	store.AddWin(core.Win{ID: "w1", Text: "x", Type: core.WinTypeText, Timestamp: time.Now()})
	store.LogPractice(core.PracticeLog{ID: "l1", Practice: "run", Level: core.CompletionYes, Timestamp: time.Now()})

	rr := doJSON(t, srv, "GET", "/api/v1/stats", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var sum struct {
		CheckInDays int `json:"check_in_days"`
		TotalXP     int `json:"total_xp"`
		Level       int `json:"level"`
	}
	json.Unmarshal(rr.Body.Bytes(), &sum)
	if sum.CheckInDays != 1 || sum.TotalXP != 15 || sum.Level != 1 {
		t.Errorf("summary = %+v, want 1 day, 15 XP, level 1", sum)
	}
}

// --- Reflection ---

func TestAPI_Reflection_Flow(t *testing.T) {
	srv, store := testServer(t)

	rr := doJSON(t, srv, "GET", "/api/v1/reflection", nil)
	var status struct {
		Status string `json:"status"`
	}
	json.Unmarshal(rr.Body.Bytes(), &status)
	if status.Status != "no_active_cycle" {
		t.Errorf("status = %q, want no_active_cycle", status.Status)
	}

	rr = doJSON(t, srv, "POST", "/api/v1/reflection/continue", nil)
	if rr.Code != http.StatusConflict {
		t.Errorf("continue without cycle = %d, want 409", rr.Code)
	}

	oldStart := time.Now().Add(-8 * 24 * time.Hour)
	store.SetFocusCycle(core.FocusCycle{Intention: "a runner", WeekStartDate: oldStart})

	rr = doJSON(t, srv, "GET", "/api/v1/reflection", nil)
	json.Unmarshal(rr.Body.Bytes(), &status)
	if status.Status != "reflection_due" {
		t.Errorf("status = %q, want reflection_due", status.Status)
	}

	rr = doJSON(t, srv, "POST", "/api/v1/reflection/continue", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("continue status = %d, want 200", rr.Code)
	}

	rr = doJSON(t, srv, "GET", "/api/v1/reflection", nil)
	json.Unmarshal(rr.Body.Bytes(), &status)
	if status.Status != "cycle_active" {
		t.Errorf("status after continue = %q, want cycle_active", status.Status)
	}
}

// --- Reset ---

func TestAPI_Reset(t *testing.T) {
	srv, store := testServer(t)

	store.AddWin(core.Win{ID: "w1", Text: "x", Type: core.WinTypeText, Timestamp: time.Now()})

	rr := doJSON(t, srv, "POST", "/api/v1/reset", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(store.State().Wins) != 0 {
		t.Error("reset should restore defaults")
	}
}

// --- Insight ---

func TestAPI_GetInsight_NoClient(t *testing.T) {
	srv, _ := testServer(t)

	rr := doJSON(t, srv, "GET", "/api/v1/insight", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp struct {
		Text string `json:"text"`
	}
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Text == "" {
		t.Error("insight must always return text; fallback when no client is wired")
	}
}

// --- Health ---

func TestAPI_Health(t *testing.T) {
	srv, _ := testServer(t)

	rr := doJSON(t, srv, "GET", "/health", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}
