package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}(?:\.\d+)?))?$`)

// SecondsPerDay is the length of a civil day in seconds.
const SecondsPerDay = 24 * 60 * 60

// ClockSeconds converts "HH:MM" or "HH:MM:SS[.frac]" into seconds since midnight.
func ClockSeconds(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("unable to parse clock time: %q", raw)
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	var seconds float64
	if m[3] != "" {
		seconds, _ = strconv.ParseFloat(m[3], 64)
	}
	if hours > 23 || minutes > 59 || seconds >= 60 {
		return 0, fmt.Errorf("clock time out of range: %q", raw)
	}

	return float64(hours*3600+minutes*60) + seconds, nil
}

// SecondsOfDay is a seconds-since-midnight value that unmarshals from either
// a JSON number or a clock string.
type SecondsOfDay float64

// UnmarshalJSON accepts 21600, 21600.5 or "06:00".
func (s *SecondsOfDay) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		v, err := ClockSeconds(raw)
		if err != nil {
			return err
		}
		*s = SecondsOfDay(v)
		return nil
	}

	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fmt.Errorf("unable to parse seconds of day: %s", trimmed)
	}
	if v < 0 || v > SecondsPerDay {
		return fmt.Errorf("seconds of day out of range: %v", v)
	}
	*s = SecondsOfDay(v)
	return nil
}

// FormatClock renders seconds since midnight as "HH:MM:SS", truncating fractions.
func FormatClock(secs float64) string {
	total := int(secs)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
