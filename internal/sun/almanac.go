package sun

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"coop-door-backend/internal/parse"
)

// ErrScheduleGap is returned when an ordinal has no entry in the loaded schedule.
var ErrScheduleGap = errors.New("schedule gap")

// SunCouplet holds one day's sunrise and sunset as seconds since midnight.
type SunCouplet struct {
	Sunrise float64 `json:"sunrise"`
	Sunset  float64 `json:"sunset"`
}

type rawCouplet struct {
	Sunrise *parse.SecondsOfDay `json:"sunrise"`
	Sunset  *parse.SecondsOfDay `json:"sunset"`
}

// Almanac is the immutable per-day sunrise/sunset lookup. It is safe for
// concurrent use without locking.
type Almanac struct {
	days []SunCouplet
}

// NewAlmanac builds an almanac from couplets ordered by day; days[0] is ordinal 1.
func NewAlmanac(days []SunCouplet) (*Almanac, error) {
	if len(days) == 0 {
		return nil, errors.New("schedule is empty")
	}
	cp := make([]SunCouplet, len(days))
	copy(cp, days)
	return &Almanac{days: cp}, nil
}

// LoadAlmanac reads a JSON array of {"sunrise": ..., "sunset": ...} objects.
// Values may be seconds since midnight or "HH:MM[:SS]" strings.
func LoadAlmanac(path string) (*Almanac, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schedule %s: %w", path, err)
	}
	defer f.Close()

	var raw []rawCouplet
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode schedule %s: %w", path, err)
	}

	days := make([]SunCouplet, 0, len(raw))
	for i, r := range raw {
		if r.Sunrise == nil || r.Sunset == nil {
			return nil, fmt.Errorf("schedule entry for day %d is missing sunrise or sunset", i+1)
		}
		days = append(days, SunCouplet{Sunrise: float64(*r.Sunrise), Sunset: float64(*r.Sunset)})
	}
	return NewAlmanac(days)
}

// Len returns the number of days in the schedule.
func (a *Almanac) Len() int {
	return len(a.days)
}

// Lookup returns the couplet for a 1-based day-of-year ordinal.
func (a *Almanac) Lookup(ordinal int) (SunCouplet, error) {
	if ordinal < 1 || ordinal > len(a.days) {
		return SunCouplet{}, fmt.Errorf("%w: no entry for day %d (schedule has %d days)", ErrScheduleGap, ordinal, len(a.days))
	}
	return a.days[ordinal-1], nil
}
