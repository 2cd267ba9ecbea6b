package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDayOf_UTC(t *testing.T) {
	// 23:30 in UTC-5 is 04:30 next day UTC — the engine day is the UTC one.
	loc := time.FixedZone("EST", -5*3600)
	local := time.Date(2025, 7, 1, 23, 30, 0, 0, loc)
	if got := DayOf(local); got != Day("2025-07-02") {
		t.Errorf("DayOf = %s, want 2025-07-02", got)
	}
}

func TestDay_DaysUntil(t *testing.T) {
	tests := []struct {
		from, to Day
		want     int
	}{
		{"2025-07-01", "2025-07-01", 0},
		{"2025-07-01", "2025-07-02", 1},
		{"2025-07-01", "2025-07-08", 7},
		{"2025-07-08", "2025-07-01", -7},
		{"2025-06-30", "2025-07-01", 1}, // month boundary
		{"2024-12-31", "2025-01-01", 1}, // year boundary
	}
	for _, tt := range tests {
		if got := tt.from.DaysUntil(tt.to); got != tt.want {
			t.Errorf("DaysUntil(%s, %s) = %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestDay_Before(t *testing.T) {
	if !Day("2025-07-01").Before("2025-07-02") {
		t.Error("expected 07-01 before 07-02")
	}
	if Day("2025-07-02").Before("2025-07-02") {
		t.Error("same day should not be before itself")
	}
	var zero Day
	if zero.Before("2025-07-02") {
		t.Error("zero day should never compare before")
	}
}

func TestError_Kinds(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{Validationf("bad day %d", 99), KindValidation},
		{Conflictf("already joined"), KindStateConflict},
		{NotFoundf("no such challenge"), KindNotFound},
		{Permissionf("not a participant"), KindPermission},
		{Concurrencyf("lock timeout"), KindConcurrency},
		{Infra("insert event", errors.New("disk full")), KindInfrastructure},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestError_WrappedKindSurvives(t *testing.T) {
	inner := Conflictf("day 3 already completed")
	wrapped := fmt.Errorf("complete day: %w", inner)
	if KindOf(wrapped) != KindStateConflict {
		t.Error("kind should survive fmt.Errorf wrapping")
	}
}

func TestError_Retryable(t *testing.T) {
	if !IsRetryable(Concurrencyf("contended")) {
		t.Error("concurrency errors are retryable")
	}
	if !IsRetryable(Infra("write", errors.New("io"))) {
		t.Error("infrastructure errors are retryable")
	}
	if IsRetryable(Validationf("nope")) {
		t.Error("validation errors are not retryable")
	}
}

func TestParticipantStatus_Terminal(t *testing.T) {
	if ParticipantActive.Terminal() {
		t.Error("active is not terminal")
	}
	if !ParticipantCompleted.Terminal() || !ParticipantAbandoned.Terminal() {
		t.Error("completed and abandoned are terminal")
	}
}

func TestParticipant_HasDay(t *testing.T) {
	p := ParticipantProgress{CompletedTasks: []CompletedTask{{Day: 1}, {Day: 3}}}
	if !p.HasDay(1) || !p.HasDay(3) {
		t.Error("expected days 1 and 3 present")
	}
	if p.HasDay(2) {
		t.Error("day 2 should be absent")
	}
}
