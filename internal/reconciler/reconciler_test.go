package reconciler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"coop-door-backend/config"
	"coop-door-backend/internal/door"
	"coop-door-backend/internal/model"
	"coop-door-backend/internal/store"
	"coop-door-backend/internal/sun"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingAlerter collects dispatched alerts.
type recordingAlerter struct {
	mu     sync.Mutex
	alerts []model.Alert
}

func (r *recordingAlerter) Dispatch(a model.Alert) {
	r.mu.Lock()
	r.alerts = append(r.alerts, a)
	r.mu.Unlock()
}

func (r *recordingAlerter) all() []model.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Alert(nil), r.alerts...)
}

// failingStore fails every write.
type failingStore struct {
	store.Store
	writes int
}

func (f *failingStore) ReplaceStatus(ctx context.Context, s model.DoorStatus) (model.DoorStatus, error) {
	f.writes++
	return model.DoorStatus{}, errors.New("disk full")
}

func testAlmanac(t *testing.T, days int) *sun.Almanac {
	t.Helper()
	couplets := make([]sun.SunCouplet, days)
	for i := range couplets {
		couplets[i] = sun.SunCouplet{Sunrise: 21600, Sunset: 64800}
	}
	a, err := sun.NewAlmanac(couplets)
	require.NoError(t, err)
	return a
}

func testConfig() *config.Config {
	return &config.Config{
		Door: config.DoorConfig{
			IntervalSeconds: 60,
			Interval:        time.Minute,
			GraceSeconds:    1800,
		},
	}
}

func newFileGateway(t *testing.T, initial model.DoorStatus) (*store.Gateway, store.Store) {
	t.Helper()
	s := store.NewFileStore(filepath.Join(t.TempDir(), "status.json"))
	_, err := s.ReplaceStatus(context.Background(), initial)
	require.NoError(t, err)
	return store.NewGateway(s), s
}

// 2026-04-10 is day 100; 08:20:00 is 30000 seconds after midnight.
var day100 = time.Date(2026, 4, 10, 8, 20, 0, 0, time.UTC)

func fixed(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestClock(t *testing.T) {
	tests := []struct {
		name    string
		offset  int
		now     time.Time
		secs    float64
		ordinal int
	}{
		{"UTC", 0, day100, 30000, 100},
		{"Positive offset", 2, day100, 30000 + 7200, 100},
		{"Offset crosses midnight backwards", -9, day100, 30000 - 32400 + 86400, 99},
		{"Offset crosses year end", 1, time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC), 1800, 1},
		{"Leap day 366", 0, time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC), 43200, 366},
		{"Non-UTC input is normalized", 0, day100.In(time.FixedZone("X", 5*3600)), 30000, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Door.HourOffset = tt.offset
			svc := NewService(cfg, testAlmanac(t, 366), nil, nil)

			secs, ordinal := svc.Clock(tt.now)
			assert.InDelta(t, tt.secs, secs, 1e-9)
			assert.Equal(t, tt.ordinal, ordinal)
		})
	}
}

func TestTickOnce_OpensAtDawn(t *testing.T) {
	gw, s := newFileGateway(t, model.DefaultDoorStatus())
	alerts := &recordingAlerter{}
	svc := NewService(testConfig(), testAlmanac(t, 366), gw, nil, WithClock(fixed(day100)), WithAlerters(alerts))

	d, err := svc.TickOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ActionOpen, d.Action)
	assert.True(t, d.Daylight)

	stored, err := s.ReadStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DoorStatus{Executed: 0, Up: 1, OverRide: 0, OverRideDay: 100}, stored)

	got := alerts.all()
	require.Len(t, got, 1)
	assert.Equal(t, model.AlertMotion, got[0].Kind)
	assert.Equal(t, model.ActionOpen, got[0].Action)

	// Nothing is confirmed yet: the next tick only waits.
	d, err = svc.TickOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ActionPass, d.Action)
	assert.Equal(t, door.WarnAwaitingOpen, d.Warning)
}

func TestTickOnce_ClosesAfterGrace(t *testing.T) {
	gw, s := newFileGateway(t, model.DoorStatus{Executed: 1, Up: 1, OverRideDay: 100})

	// Sunset 64800 + grace 1800 = 66600. One second before is still daylight.
	before := time.Date(2026, 4, 10, 18, 29, 59, 0, time.UTC)
	svc := NewService(testConfig(), testAlmanac(t, 366), gw, nil, WithClock(fixed(before)))
	d, err := svc.TickOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ActionPass, d.Action)
	assert.False(t, d.Changed())

	at := time.Date(2026, 4, 10, 18, 30, 0, 0, time.UTC)
	svc = NewService(testConfig(), testAlmanac(t, 366), gw, nil, WithClock(fixed(at)))
	d, err = svc.TickOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ActionClose, d.Action)

	stored, err := s.ReadStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DoorStatus{Executed: 0, Up: 0, OverRide: 0, OverRideDay: 100}, stored)
}

func TestTickOnce_OverrideSuppresses(t *testing.T) {
	gw, s := newFileGateway(t, model.DoorStatus{Executed: 1, Up: 0, OverRide: 1, OverRideDay: 100})
	alerts := &recordingAlerter{}
	svc := NewService(testConfig(), testAlmanac(t, 366), gw, nil, WithClock(fixed(day100)), WithAlerters(alerts))

	d, err := svc.TickOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, d.Suppressed)
	assert.Empty(t, alerts.all())

	stored, err := s.ReadStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DoorStatus{Executed: 1, Up: 0, OverRide: 1, OverRideDay: 100}, stored)

	// The next day the override is gone and the door opens.
	svc = NewService(testConfig(), testAlmanac(t, 366), gw, nil, WithClock(fixed(day100.Add(24*time.Hour))), WithAlerters(alerts))
	d, err = svc.TickOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, d.OverrideExpired)
	assert.Equal(t, model.ActionOpen, d.Action)

	stored, err = s.ReadStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DoorStatus{Executed: 0, Up: 1, OverRide: 0, OverRideDay: 101}, stored)
}

func TestTickOnce_StuckWarning(t *testing.T) {
	gw, _ := newFileGateway(t, model.DoorStatus{Executed: 0, Up: 0, OverRideDay: 100})
	alerts := &recordingAlerter{}
	svc := NewService(testConfig(), testAlmanac(t, 366), gw, nil, WithClock(fixed(day100)), WithAlerters(alerts))

	d, err := svc.TickOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, d.Stuck())
	assert.Equal(t, door.WarnShouldHaveOpened, d.Warning)

	got := alerts.all()
	require.Len(t, got, 1)
	assert.Equal(t, model.AlertWarning, got[0].Kind)
	assert.Equal(t, door.WarnShouldHaveOpened, got[0].Message)
}

func TestTickOnce_AwaitingConfirmationDoesNotAlert(t *testing.T) {
	gw, _ := newFileGateway(t, model.DefaultDoorStatus())
	alerts := &recordingAlerter{}
	svc := NewService(testConfig(), testAlmanac(t, 366), gw, nil, WithClock(fixed(day100)), WithAlerters(alerts))

	for i := 0; i < 5; i++ {
		d, err := svc.TickOnce(context.Background())
		require.NoError(t, err)
		if i > 0 {
			assert.Equal(t, model.StateOpening, d.State)
			assert.Equal(t, door.WarnAwaitingOpen, d.Warning)
			assert.True(t, d.Awaiting())
		}
	}

	got := alerts.all()
	require.Len(t, got, 1, "only the motion request is announced")
	assert.Equal(t, model.AlertMotion, got[0].Kind)
}

func TestTickOnce_UnknownStateAlerts(t *testing.T) {
	gw, _ := newFileGateway(t, model.DoorStatus{Executed: 2, Up: 1, OverRideDay: 100})
	alerts := &recordingAlerter{}
	svc := NewService(testConfig(), testAlmanac(t, 366), gw, nil, WithClock(fixed(day100)), WithAlerters(alerts))

	d, err := svc.TickOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StateUnknown, d.State)
	assert.Equal(t, model.ActionPass, d.Action)

	got := alerts.all()
	require.Len(t, got, 1)
	assert.Equal(t, model.AlertWarning, got[0].Kind)
	assert.Equal(t, door.WarnUnknownDoorStatus, got[0].Message)
}

func TestTickOnce_ScheduleGap(t *testing.T) {
	gw, s := newFileGateway(t, model.DefaultDoorStatus())
	svc := NewService(testConfig(), testAlmanac(t, 99), gw, nil, WithClock(fixed(day100)))

	_, err := svc.TickOnce(context.Background())
	assert.ErrorIs(t, err, sun.ErrScheduleGap)

	stored, err := s.ReadStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultDoorStatus(), stored, "a skipped tick must not write")
}

func TestTickOnce_PersistenceFailure(t *testing.T) {
	inner := store.NewFileStore(filepath.Join(t.TempDir(), "status.json"))
	_, err := store.Init(context.Background(), inner)
	require.NoError(t, err)
	failing := &failingStore{Store: inner}
	alerts := &recordingAlerter{}

	svc := NewService(testConfig(), testAlmanac(t, 366), store.NewGateway(failing), nil, WithClock(fixed(day100)), WithAlerters(alerts))
	_, err = svc.TickOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, failing.writes)
	assert.Empty(t, alerts.all(), "no motion is announced when the write failed")

	stored, err := inner.ReadStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultDoorStatus(), stored)
}

func TestPreview(t *testing.T) {
	gw, s := newFileGateway(t, model.DefaultDoorStatus())
	svc := NewService(testConfig(), testAlmanac(t, 366), gw, nil, WithClock(fixed(day100)))

	d, err := svc.Preview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ActionOpen, d.Action)

	stored, err := s.ReadStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultDoorStatus(), stored)
}

func TestRun(t *testing.T) {
	gw, _ := newFileGateway(t, model.DefaultDoorStatus())
	cfg := testConfig()
	cfg.Door.Interval = 10 * time.Millisecond

	var ticks sync.WaitGroup
	ticks.Add(1)
	var once sync.Once
	gw.Subscribe(func(model.DoorStatus) { once.Do(ticks.Done) })

	svc := NewService(cfg, testAlmanac(t, 366), gw, nil, WithClock(fixed(day100)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	ticks.Wait()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	status, err := gw.ReadStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StateOpening, status.State())
}

func TestRun_KeepsGoingAfterErrors(t *testing.T) {
	gw, _ := newFileGateway(t, model.DefaultDoorStatus())
	cfg := testConfig()
	cfg.Door.Interval = 5 * time.Millisecond

	var mu sync.Mutex
	calls := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return day100
	}

	// 99-day schedule: every tick fails with a gap.
	svc := NewService(cfg, testAlmanac(t, 99), gw, nil, WithClock(clock))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 3
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
