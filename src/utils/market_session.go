package utils

import (
	"time"

	"github.com/scmhub/calendar"
)

// -----------------------------------------------------------------------------

// VenueSession answers whether the configured reference venue is currently
// in session, using scmhub/calendar by MIC code (ISO 10383). Purely
// informational: the broadcast and polling cadences never depend on it.
type VenueSession struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

func NewVenueSession(mic string) *VenueSession {
	if mic == "" {
		mic = "xnys"
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		cal = calendar.GetCalendar("xnys")
	}

	if cal == nil {
		// Simple fallback: Mon-Fri 09:30-16:00 New York.
		nyLoc, _ := time.LoadLocation("America/New_York")
		if nyLoc == nil {
			nyLoc = time.UTC
		}
		return &VenueSession{Fallback: true, Timezone: nyLoc}
	}

	return &VenueSession{Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

// IsTradingDay reports whether the venue trades at all on the given date.
func (s *VenueSession) IsTradingDay(date time.Time) bool {
	if s.Timezone != nil {
		date = date.In(s.Timezone)
	}

	if s.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return s.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpen reports whether the venue is open at the given instant.
func (s *VenueSession) IsOpen(t time.Time) bool {
	if s.Timezone != nil {
		t = t.In(s.Timezone)
	}

	if s.Fallback {
		if !s.IsTradingDay(t) {
			return false
		}

		hour := t.Hour()
		minute := t.Minute()
		return (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16
	}

	return s.Calendar.IsOpen(t)
}
