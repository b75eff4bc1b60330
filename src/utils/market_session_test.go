package utils

import (
	"testing"
	"time"
)

// -----------------------------------------------------------------------------

// Fallback session constructed directly so the tests are independent of the
// calendar library's holiday data.
func fallbackSession() *VenueSession {
	return &VenueSession{Fallback: true, Timezone: time.UTC}
}

// -----------------------------------------------------------------------------

func TestFallbackWeekendIsClosed(t *testing.T) {
	s := fallbackSession()

	saturday := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	if s.IsTradingDay(saturday) {
		t.Fatal("Saturday must not be a trading day")
	}
	if s.IsOpen(saturday) {
		t.Fatal("Saturday must be closed")
	}
}

// -----------------------------------------------------------------------------

func TestFallbackWeekdayHours(t *testing.T) {
	s := fallbackSession()

	cases := []struct {
		hour, minute int
		open         bool
	}{
		{9, 29, false},
		{9, 30, true},
		{12, 0, true},
		{15, 59, true},
		{16, 0, false},
	}

	for _, tc := range cases {
		// Wednesday.
		at := time.Date(2026, 8, 26, tc.hour, tc.minute, 0, 0, time.UTC)
		if got := s.IsOpen(at); got != tc.open {
			t.Fatalf("IsOpen(%02d:%02d) = %v, want %v", tc.hour, tc.minute, got, tc.open)
		}
	}
}

// -----------------------------------------------------------------------------

func TestNewVenueSessionUnknownMICStillAnswers(t *testing.T) {
	// An unknown MIC falls back to a usable session rather than panicking.
	s := NewVenueSession("zzzz")
	if s == nil {
		t.Fatal("expected a session")
	}
	// Smoke check: some answer for an arbitrary instant.
	_ = s.IsOpen(time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC))
}
