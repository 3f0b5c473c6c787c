package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage layout for defense dates.
const DateLayout = "2006-01-02"

// Schedule is the active date, time window and venue of a defense
type Schedule struct {
	Date      time.Time   `json:"date" db:"schedule_date" swaggertype:"string" example:"2025-03-01"`
	StartTime string      `json:"startTime" db:"start_time" example:"09:00"`
	EndTime   string      `json:"endTime,omitempty" db:"end_time" example:"10:00"`
	Mode      DefenseMode `json:"mode" db:"mode" example:"face-to-face"`
	Venue     string      `json:"venue" db:"venue" example:"Room 301"`
	Notes     string      `json:"notes,omitempty" db:"notes"`
}

// DateString returns the schedule date formatted with DateLayout.
func (s Schedule) DateString() string {
	return s.Date.Format(DateLayout)
}

// ParseClock parses a zero-padded "HH:MM" time of day into minutes after midnight.
func ParseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil || len(v) != 5 {
		return 0, fmt.Errorf("invalid time of day %q, want HH:MM", v)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes after midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Minutes returns the half-open [start, end) window in minutes after midnight.
// A missing end time is filled in with fallback.
func (s Schedule) Minutes(fallback time.Duration) (start, end int, err error) {
	start, err = ParseClock(s.StartTime)
	if err != nil {
		return 0, 0, err
	}
	if s.EndTime == "" {
		return start, start + int(fallback/time.Minute), nil
	}
	end, err = ParseClock(s.EndTime)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// EndsAt returns the instant the defense ends in loc.
func (s Schedule) EndsAt(loc *time.Location, fallback time.Duration) (time.Time, error) {
	_, end, err := s.Minutes(fallback)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := s.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(time.Duration(end) * time.Minute), nil
}
