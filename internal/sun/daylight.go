package sun

// Grace is how long after sunset the coop still counts as lit, in seconds.
const Grace = 1800.0

// IsDaylight reports whether now lies strictly after sunrise and strictly
// before sunset plus Grace. All values are seconds since midnight.
func IsDaylight(now, sunrise, sunset float64) bool {
	return WithinDaylight(now, sunrise, sunset, Grace)
}

// WithinDaylight is IsDaylight with an explicit grace period.
func WithinDaylight(now, sunrise, sunset, grace float64) bool {
	return now > sunrise && now < sunset+grace
}

// Daylight evaluates the predicate for a couplet.
func (c SunCouplet) Daylight(now, grace float64) bool {
	return WithinDaylight(now, c.Sunrise, c.Sunset, grace)
}
