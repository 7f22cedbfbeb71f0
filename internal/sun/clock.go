package sun

import "time"

// LocalClock shifts now (taken as UTC) by hourOffset hours and returns the
// seconds since local midnight and the 1-based day-of-year.
func LocalClock(now time.Time, hourOffset int) (float64, int) {
	local := now.UTC().Add(time.Duration(hourOffset) * time.Hour)
	secs := float64(local.Hour()*3600+local.Minute()*60+local.Second()) + float64(local.Nanosecond())/1e9
	return secs, local.YearDay()
}
