package notify

import (
	"testing"
	"time"

	"github.com/bloom-health/bloom/internal/domain"
	"github.com/bloom-health/bloom/internal/infra/sqlite"
)

func newTestService(t *testing.T, policy domain.NotificationPolicy, now time.Time) *Service {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	clock := domain.ClockFunc(func() time.Time { return now })
	return NewService(db, policy, clock)
}

func midday(day string) time.Time {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return t.Add(12 * time.Hour).UTC()
}

func TestCreate_StoresAndLists(t *testing.T) {
	s := newTestService(t, domain.DefaultNotificationPolicy(), midday("2025-07-01"))

	id, err := s.Create(domain.Notification{
		UserID: "alice",
		Type:   domain.NotifyLevelUp,
		Title:  "Level 2 reached",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == 0 {
		t.Fatal("suppressed, want stored")
	}

	pending, err := s.Pending("alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Title != "Level 2 reached" {
		t.Fatalf("pending = %+v", pending)
	}

	if err := s.MarkShown(pending[0].ID); err != nil {
		t.Fatal(err)
	}
	pending, err = s.Pending("alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after shown = %d, want 0", len(pending))
	}
}

func TestCreate_DailyCapPerUser(t *testing.T) {
	s := newTestService(t, domain.NotificationPolicy{MaxPerDay: 2, QuietStart: "23:00", QuietEnd: "23:01"}, midday("2025-07-01"))

	for i := 0; i < 2; i++ {
		id, err := s.Create(domain.Notification{UserID: "alice", Type: domain.NotifyBadge, Title: "badge"})
		if err != nil {
			t.Fatal(err)
		}
		if id == 0 {
			t.Fatalf("notification %d suppressed under cap", i)
		}
	}

	// Third hits the cap.
	id, err := s.Create(domain.Notification{UserID: "alice", Type: domain.NotifyBadge, Title: "badge"})
	if err != nil {
		t.Fatal(err)
	}
	if id != 0 {
		t.Error("third notification stored, want suppressed")
	}

	// The cap is per user, not global.
	id, err = s.Create(domain.Notification{UserID: "bob", Type: domain.NotifyBadge, Title: "badge"})
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Error("other user suppressed by alice's cap")
	}
}

func TestCreate_QuietHoursWrapMidnight(t *testing.T) {
	policy := domain.NotificationPolicy{MaxPerDay: 10, QuietStart: "21:00", QuietEnd: "09:00"}

	quiet := []time.Time{
		midday("2025-07-01").Add(10 * time.Hour),   // 22:00
		midday("2025-07-01").Add(-6 * time.Hour),   // 06:00
		midday("2025-07-01").Add(9 * time.Hour),    // 21:00 inclusive
	}
	for _, ts := range quiet {
		s := newTestService(t, policy, ts)
		id, err := s.Create(domain.Notification{UserID: "alice", Type: domain.NotifyBadge, Title: "x"})
		if err != nil {
			t.Fatal(err)
		}
		if id != 0 {
			t.Errorf("stored at %s, want suppressed", ts.Format("15:04"))
		}
	}

	loud := []time.Time{
		midday("2025-07-01"),                     // 12:00
		midday("2025-07-01").Add(-3 * time.Hour), // 09:00 boundary is allowed
	}
	for _, ts := range loud {
		s := newTestService(t, policy, ts)
		id, err := s.Create(domain.Notification{UserID: "alice", Type: domain.NotifyBadge, Title: "x"})
		if err != nil {
			t.Fatal(err)
		}
		if id == 0 {
			t.Errorf("suppressed at %s, want stored", ts.Format("15:04"))
		}
	}
}

func TestPending_OldestFirst(t *testing.T) {
	s := newTestService(t, domain.DefaultNotificationPolicy(), midday("2025-07-01"))

	for _, title := range []string{"first", "second", "third"} {
		if _, err := s.Create(domain.Notification{
			UserID: "alice",
			Type:   domain.NotifyLevelUp,
			Title:  title,
		}); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}

	pending, err := s.Pending("alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 3 {
		t.Fatalf("pending = %d, want 3", len(pending))
	}
	for i, want := range []string{"first", "second", "third"} {
		if pending[i].Title != want {
			t.Errorf("pending[%d] = %s, want %s", i, pending[i].Title, want)
		}
	}

	// A limited read drains from the front of the queue.
	pending, err = s.Pending("alice", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].Title != "first" || pending[1].Title != "second" {
		t.Errorf("limited read = %+v, want first and second", pending)
	}
}

func TestHooks_ComposeMessages(t *testing.T) {
	s := newTestService(t, domain.NotificationPolicy{MaxPerDay: 10, QuietStart: "23:00", QuietEnd: "23:01"}, midday("2025-07-01"))

	s.LeveledUp("alice", 3)
	s.BadgeUnlocked("alice", domain.BadgeDef{ID: "streak_7", Name: "Week of Calm", Icon: "🔥"})
	s.ChallengeCompleted("alice", domain.Challenge{ID: "mindful_march", Name: "Mindful March", DurationDays: 31})

	pending, err := s.Pending("alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 3 {
		t.Fatalf("pending = %d, want 3", len(pending))
	}
	types := map[domain.NotificationType]bool{}
	for _, n := range pending {
		types[n.Type] = true
	}
	for _, want := range []domain.NotificationType{domain.NotifyLevelUp, domain.NotifyBadge, domain.NotifyChallengeCompleted} {
		if !types[want] {
			t.Errorf("missing notification type %s", want)
		}
	}
}
