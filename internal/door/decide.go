// Package door holds the decision engine that turns the persisted door status,
// the daylight verdict and the current day into the next door status.
package door

import (
	"coop-door-backend/internal/model"
)

// Warning messages raised by Decide.
const (
	WarnShouldHaveOpened  = "The door should have been opened by now"
	WarnShouldHaveClosed  = "The door should have been closed by now"
	WarnAwaitingOpen      = "Door is opening but has not confirmed yet"
	WarnAwaitingClose     = "Door is closing but has not confirmed yet"
	WarnUnknownDoorStatus = "Door status is outside the known states"
)

// Decision is the outcome of one evaluation.
type Decision struct {
	// Previous is the status the decision started from.
	Previous model.DoorStatus
	// Status is the status to persist.
	Status model.DoorStatus
	// State is the door state derived from Previous.
	State model.DoorState

	Action   model.DoorAction
	Daylight bool
	Ordinal  int

	// Warning is non-empty when the door was caught stuck or in an ambiguous state.
	Warning string
	// OverrideExpired is set when a stale override was cleared on this evaluation.
	OverrideExpired bool
	// Suppressed is set when an override for today blocked any motion.
	Suppressed bool
}

// Changed reports whether Status differs from Previous and must be written.
func (d Decision) Changed() bool {
	return d.Status != d.Previous
}

// Decide computes the next status. Overrides expire at the day boundary
// before suppression is evaluated, and over_ride_day is always stamped with
// today. Motion is only requested from a confirmed Open or Closed state.
func Decide(status model.DoorStatus, daylight bool, today int) Decision {
	d := Decision{
		Previous: status,
		Status:   status,
		State:    status.State(),
		Action:   model.ActionPass,
		Daylight: daylight,
		Ordinal:  today,
	}

	if d.Status.OverRide == 1 && !d.Status.Overridden(today) {
		d.Status.OverRide = 0
		d.OverrideExpired = true
	}
	d.Status.OverRideDay = today

	if d.Status.Overridden(today) {
		d.Suppressed = true
		return d
	}

	switch d.State {
	case model.StateClosed:
		if daylight {
			d.Status.Up = 1
			d.Status.Executed = 0
			d.Action = model.ActionOpen
		}
	case model.StateOpen:
		if !daylight {
			d.Status.Up = 0
			d.Status.Executed = 0
			d.Action = model.ActionClose
		}
	case model.StateClosing:
		if daylight {
			d.Warning = WarnShouldHaveOpened
		} else {
			d.Warning = WarnAwaitingClose
		}
	case model.StateOpening:
		if daylight {
			d.Warning = WarnAwaitingOpen
		} else {
			d.Warning = WarnShouldHaveClosed
		}
	default:
		d.Warning = WarnUnknownDoorStatus
	}

	return d
}

// Awaiting reports whether the door is still moving toward the daylight
// target. This is the normal wait for the actuator to confirm, not a fault.
func (d Decision) Awaiting() bool {
	return d.State.InMotion() && !d.Stuck()
}

// Stuck reports whether the warning means a confirmed motion is overdue.
func (d Decision) Stuck() bool {
	return d.Warning == WarnShouldHaveOpened || d.Warning == WarnShouldHaveClosed
}
