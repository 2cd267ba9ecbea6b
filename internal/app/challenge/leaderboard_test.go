package challenge

import (
	"testing"
	"time"

	"github.com/bloom-health/bloom/internal/domain"
)

func TestLeaderboard_OrderAndRanks(t *testing.T) {
	clock := &testClock{now: at("2025-03-01 09:00")}
	s := newTestService(t, clock)
	mustDefine(t, s, mindfulMarch(7))

	// Join order: alice, bob, carol (one minute apart).
	for i, user := range []string{"alice", "bob", "carol"} {
		clock.Set(at("2025-03-01 09:00").Add(time.Duration(i) * time.Minute))
		if _, err := s.Join(user, "mindful_march", ""); err != nil {
			t.Fatal(err)
		}
	}

	// alice completes days 1-3, bob days 1-2, carol nothing.
	for dayNum := 1; dayNum <= 3; dayNum++ {
		clock.Set(at("2025-03-01 12:00").AddDate(0, 0, dayNum-1))
		if _, err := s.CompleteDay("alice", "mindful_march", dayNum); err != nil {
			t.Fatal(err)
		}
		if dayNum <= 2 {
			if _, err := s.CompleteDay("bob", "mindful_march", dayNum); err != nil {
				t.Fatal(err)
			}
		}
	}

	board, err := s.Leaderboard("mindful_march", 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	wantOrder := []string{"alice", "bob", "carol"}
	if len(board) != len(wantOrder) {
		t.Fatalf("board size = %d, want %d", len(board), len(wantOrder))
	}
	for i, want := range wantOrder {
		if board[i].UserID != want {
			t.Errorf("rank %d = %s, want %s", i+1, board[i].UserID, want)
		}
		if board[i].Rank != i+1 {
			t.Errorf("rank field = %d, want %d", board[i].Rank, i+1)
		}
	}
	if board[0].TotalPoints != 30 || board[0].CompletedDays != 3 {
		t.Errorf("leader = %+v, want 30 points over 3 days", board[0])
	}
}

func TestLeaderboard_TiesBrokenByJoinThenUserID(t *testing.T) {
	clock := &testClock{now: at("2025-03-01 09:00")}
	s := newTestService(t, clock)
	mustDefine(t, s, mindfulMarch(7))

	// zed joins before amy; both at zero points. Earlier join ranks first.
	if _, err := s.Join("zed", "mindful_march", ""); err != nil {
		t.Fatal(err)
	}
	clock.Set(at("2025-03-01 10:00"))
	if _, err := s.Join("amy", "mindful_march", ""); err != nil {
		t.Fatal(err)
	}
	// bea and ben join at the same instant; user ID breaks the tie.
	clock.Set(at("2025-03-01 11:00"))
	if _, err := s.Join("ben", "mindful_march", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Join("bea", "mindful_march", ""); err != nil {
		t.Fatal(err)
	}

	board, err := s.Leaderboard("mindful_march", 0)
	if err != nil {
		t.Fatal(err)
	}
	wantOrder := []string{"zed", "amy", "bea", "ben"}
	for i, want := range wantOrder {
		if board[i].UserID != want {
			t.Errorf("rank %d = %s, want %s", i+1, board[i].UserID, want)
		}
	}

	// Determinism: a second render is identical.
	again, err := s.Leaderboard("mindful_march", 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := range board {
		if board[i] != again[i] {
			t.Errorf("rank %d differs between renders: %+v vs %+v", i+1, board[i], again[i])
		}
	}
}

func TestLeaderboard_KeepsAbandonedPoints(t *testing.T) {
	clock := &testClock{now: at("2025-03-01 09:00")}
	s := newTestService(t, clock)
	mustDefine(t, s, mindfulMarch(7))

	if _, err := s.Join("alice", "mindful_march", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Join("bob", "mindful_march", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CompleteDay("alice", "mindful_march", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Abandon("alice", "mindful_march"); err != nil {
		t.Fatal(err)
	}

	board, err := s.Leaderboard("mindful_march", 0)
	if err != nil {
		t.Fatal(err)
	}
	if board[0].UserID != "alice" || board[0].TotalPoints != 10 {
		t.Errorf("board[0] = %+v, want alice with 10 points kept", board[0])
	}
}

func TestLeaderboard_Limit(t *testing.T) {
	s := newTestService(t, domain.SystemClock())
	mustDefine(t, s, mindfulMarch(7))
	for _, user := range []string{"a", "b", "c", "d"} {
		if _, err := s.Join(user, "mindful_march", ""); err != nil {
			t.Fatal(err)
		}
	}
	board, err := s.Leaderboard("mindful_march", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(board) != 2 {
		t.Errorf("board size = %d, want 2", len(board))
	}
}
