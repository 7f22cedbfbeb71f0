package sun

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDaylight_Boundaries(t *testing.T) {
	const sunrise, sunset = 21600.0, 64800.0

	testCases := []struct {
		name     string
		now      float64
		expected bool
	}{
		{name: "Midnight", now: 0, expected: false},
		{name: "Just before sunrise", now: sunrise - 1, expected: false},
		{name: "Exactly sunrise", now: sunrise, expected: false},
		{name: "Just after sunrise", now: sunrise + 0.001, expected: true},
		{name: "Morning", now: 30000, expected: true},
		{name: "Exactly sunset", now: sunset, expected: true},
		{name: "Inside grace", now: sunset + Grace - 1, expected: true},
		{name: "Exactly end of grace", now: sunset + Grace, expected: false},
		{name: "After grace", now: sunset + Grace + 1, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsDaylight(tc.now, sunrise, sunset))
		})
	}
}

func TestWithinDaylight_Property(t *testing.T) {
	grids := []struct{ sunrise, sunset, grace float64 }{
		{18000, 72000, 1800},
		{25000.5, 60000.25, 3600},
		{0, 80000, 0},
	}
	for _, g := range grids {
		assert.False(t, WithinDaylight(g.sunrise, g.sunrise, g.sunset, g.grace))
		assert.False(t, WithinDaylight(g.sunset+g.grace, g.sunrise, g.sunset, g.grace))
		for now := g.sunrise + 1; now < g.sunset+g.grace; now += 997 {
			assert.True(t, WithinDaylight(now, g.sunrise, g.sunset, g.grace), "now=%v", now)
		}
	}
}

func TestAlmanac_Lookup(t *testing.T) {
	a, err := NewAlmanac([]SunCouplet{
		{Sunrise: 100, Sunset: 200},
		{Sunrise: 110, Sunset: 210},
		{Sunrise: 120, Sunset: 220},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, a.Len())

	c, err := a.Lookup(1)
	require.NoError(t, err)
	assert.Equal(t, SunCouplet{Sunrise: 100, Sunset: 200}, c)

	c, err = a.Lookup(3)
	require.NoError(t, err)
	assert.Equal(t, SunCouplet{Sunrise: 120, Sunset: 220}, c)

	_, err = a.Lookup(4)
	assert.ErrorIs(t, err, ErrScheduleGap)

	_, err = a.Lookup(0)
	assert.ErrorIs(t, err, ErrScheduleGap)
}

func TestNewAlmanac_Empty(t *testing.T) {
	_, err := NewAlmanac(nil)
	assert.Error(t, err)
}

func TestLoadAlmanac(t *testing.T) {
	dir := t.TempDir()

	t.Run("Mixed number and clock values", func(t *testing.T) {
		path := filepath.Join(dir, "schedule.json")
		require.NoError(t, os.WriteFile(path, []byte(`[
			{"sunrise": 21600, "sunset": 64800},
			{"sunrise": "06:01", "sunset": "17:59:30"}
		]`), 0o644))

		a, err := LoadAlmanac(path)
		require.NoError(t, err)
		assert.Equal(t, 2, a.Len())

		c, err := a.Lookup(2)
		require.NoError(t, err)
		assert.InDelta(t, 21660, c.Sunrise, 1e-9)
		assert.InDelta(t, 64770, c.Sunset, 1e-9)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := LoadAlmanac(filepath.Join(dir, "nope.json"))
		assert.Error(t, err)
	})

	t.Run("Missing sunset", func(t *testing.T) {
		path := filepath.Join(dir, "partial.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"sunrise": 21600}]`), 0o644))
		_, err := LoadAlmanac(path)
		assert.Error(t, err)
	})

	t.Run("Empty schedule", func(t *testing.T) {
		path := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))
		_, err := LoadAlmanac(path)
		assert.Error(t, err)
	})
}

func TestLocalClock(t *testing.T) {
	now := time.Date(2026, 4, 10, 8, 20, 0, 500_000_000, time.UTC)

	secs, ordinal := LocalClock(now, 0)
	assert.InDelta(t, 30000.5, secs, 1e-6)
	assert.Equal(t, 100, ordinal)

	secs, ordinal = LocalClock(now, -9)
	assert.InDelta(t, 84000.5, secs, 1e-6)
	assert.Equal(t, 99, ordinal)
}
