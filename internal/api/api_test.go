package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/bloom-health/bloom/internal/app/catalog"
	"github.com/bloom-health/bloom/internal/app/challenge"
	"github.com/bloom-health/bloom/internal/app/notify"
	"github.com/bloom-health/bloom/internal/app/progression"
	"github.com/bloom-health/bloom/internal/domain"
	"github.com/bloom-health/bloom/internal/infra/keylock"
	"github.com/bloom-health/bloom/internal/infra/sqlite"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	locks := keylock.New()
	clock := domain.SystemClock()

	prog := progression.NewService(db, catalog.New(catalog.Defaults()),
		progression.DefaultCurve(), progression.NewEvaluator(progression.DefaultBadges()), locks, clock)
	chal := challenge.NewService(db, locks, clock)
	chal.SetXPCrediter(prog)
	notif := notify.NewService(db, domain.NotificationPolicy{MaxPerDay: 10, QuietStart: "00:00", QuietEnd: "00:00"}, clock)
	prog.SetNotifier(notif)
	chal.SetNotifier(notif)

	if err := chal.Define(domain.Challenge{
		ID:           "calm_week",
		Name:         "Calm Week",
		DurationDays: 7,
		DailyPoints:  10,
	}); err != nil {
		t.Fatalf("define challenge: %v", err)
	}

	return NewServer(prog, chal, notif)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestAPI_CreditAndSnapshot(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doJSON(t, h, "POST", "/api/actions",
		`{"user_id":"alice","action_type":"mood_log","idempotency_key":"r1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("credit status = %d: %s", rec.Code, rec.Body)
	}
	var result domain.CreditResult
	decode(t, rec, &result)
	if result.XP != 15 { // 5 for mood_log + 10 for first_step
		t.Errorf("xp = %d, want 15", result.XP)
	}

	// Replay returns the same payload.
	rec = doJSON(t, h, "POST", "/api/actions",
		`{"user_id":"alice","action_type":"mood_log","idempotency_key":"r1"}`)
	var replay domain.CreditResult
	decode(t, rec, &replay)
	if !replay.Replayed || replay.XP != result.XP {
		t.Errorf("replay = %+v, want replay of %+v", replay, result)
	}

	rec = doJSON(t, h, "GET", "/api/users/alice/progression", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d", rec.Code)
	}
	var snap domain.ProgressionSnapshot
	decode(t, rec, &snap)
	if snap.XP != 15 || snap.CurrentStreak != 1 {
		t.Errorf("snapshot = %+v", snap.Progression)
	}
	if len(snap.Badges) != 1 {
		t.Errorf("badges = %v, want first_step", snap.Badges)
	}
}

func TestAPI_ErrorMapping(t *testing.T) {
	h := newTestServer(t).Handler()

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown action", "POST", "/api/actions", `{"user_id":"a","action_type":"nope"}`, http.StatusBadRequest},
		{"bad json", "POST", "/api/actions", `{`, http.StatusBadRequest},
		{"unknown challenge", "POST", "/api/challenges/ghost/join", `{"user_id":"a"}`, http.StatusNotFound},
		{"complete before join", "POST", "/api/challenges/calm_week/complete-day", `{"user_id":"a","day":1}`, http.StatusForbidden},
		{"certificate before join", "POST", "/api/challenges/calm_week/certificate", `{"user_id":"a"}`, http.StatusForbidden},
		{"unknown certificate", "GET", "/api/certificates/nope", "", http.StatusNotFound},
		{"progress missing user", "GET", "/api/challenges/calm_week/progress", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := doJSON(t, h, tc.method, tc.path, tc.body)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d (%s)", tc.name, rec.Code, tc.want, rec.Body)
		}
	}
}

func TestAPI_ChallengeFlow(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doJSON(t, h, "POST", "/api/challenges/calm_week/join", `{"user_id":"alice","display_name":"Alice"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("join status = %d: %s", rec.Code, rec.Body)
	}

	// Double join conflicts.
	rec = doJSON(t, h, "POST", "/api/challenges/calm_week/join", `{"user_id":"alice"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("double join status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, h, "POST", "/api/challenges/calm_week/complete-day", `{"user_id":"alice","day":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d: %s", rec.Code, rec.Body)
	}
	var result domain.CompleteDayResult
	decode(t, rec, &result)
	if result.PointsDelta != 10 {
		t.Errorf("delta = %d, want 10", result.PointsDelta)
	}

	// The completed task also lands in the XP ledger via challenge_task.
	rec = doJSON(t, h, "GET", "/api/users/alice/progression", "")
	var snap domain.ProgressionSnapshot
	decode(t, rec, &snap)
	if snap.XP == 0 {
		t.Error("challenge task did not reach the XP ledger")
	}

	rec = doJSON(t, h, "GET", "/api/challenges/calm_week/leaderboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard status = %d", rec.Code)
	}
	var board struct {
		Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
	}
	decode(t, rec, &board)
	if len(board.Leaderboard) != 1 || board.Leaderboard[0].UserID != "alice" {
		t.Errorf("leaderboard = %+v", board.Leaderboard)
	}

	rec = doJSON(t, h, "GET", "/api/challenges/calm_week/progress?user_id=alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("progress status = %d", rec.Code)
	}
	var p domain.ParticipantProgress
	decode(t, rec, &p)
	if p.TotalPoints != 10 || p.Status != domain.ParticipantActive {
		t.Errorf("progress = %+v", p)
	}
}

func TestAPI_Catalogs(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doJSON(t, h, "GET", "/api/actions/catalog", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("catalog status = %d", rec.Code)
	}
	var actions struct {
		Actions []domain.ActionDef `json:"actions"`
	}
	decode(t, rec, &actions)
	if len(actions.Actions) == 0 {
		t.Error("empty action catalog")
	}

	rec = doJSON(t, h, "GET", "/api/badges", "")
	var badges struct {
		Badges []domain.BadgeDef `json:"badges"`
	}
	decode(t, rec, &badges)
	if len(badges.Badges) == 0 {
		t.Error("empty badge catalog")
	}
}

func TestAPI_Notifications(t *testing.T) {
	h := newTestServer(t).Handler()

	// A credit that unlocks badges queues notifications.
	doJSON(t, h, "POST", "/api/actions", `{"user_id":"alice","action_type":"journal_entry"}`)

	rec := doJSON(t, h, "GET", "/api/users/alice/notifications", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("notifications status = %d", rec.Code)
	}
	var out struct {
		Notifications []domain.Notification `json:"notifications"`
	}
	decode(t, rec, &out)
	if len(out.Notifications) == 0 {
		t.Fatal("no notifications after badge unlock")
	}

	id := out.Notifications[0].ID
	rec = doJSON(t, h, "POST", "/api/notifications/"+strconv.FormatInt(id, 10)+"/shown", "")
	if rec.Code != http.StatusOK {
		t.Errorf("mark shown status = %d", rec.Code)
	}
}

func TestAPI_HealthWithoutChecker(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := doJSON(t, h, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}
