package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxOrdinal is the last day-of-year ordinal of a leap year.
const MaxOrdinal = 366

// ErrMalformedStatus is returned when a persisted door status cannot be decoded
// into a complete record.
var ErrMalformedStatus = errors.New("malformed door status")

// DoorStatus is the single persisted record describing the coop door.
// All flags are stored as integers to stay wire-compatible with existing
// status files and clients.
type DoorStatus struct {
	Executed    int `json:"executed"`
	Up          int `json:"up"`
	OverRide    int `json:"over_ride"`
	OverRideDay int `json:"over_ride_day"`
}

// DefaultDoorStatus is the record written on first run: closed, executed, no override.
func DefaultDoorStatus() DoorStatus {
	return DoorStatus{Executed: 1, Up: 0, OverRide: 0, OverRideDay: 0}
}

// State derives the door state from the executed and up flags.
func (s DoorStatus) State() DoorState {
	return DeriveState(s.Executed, s.Up)
}

// Overridden reports whether automatic decisions are suppressed for the given day.
func (s DoorStatus) Overridden(ordinal int) bool {
	return s.OverRide == 1 && s.OverRideDay == ordinal
}

// Validate checks the structural constraints of a record. Flag values outside
// {0,1} are not structural errors; they derive StateUnknown instead.
func (s DoorStatus) Validate() error {
	if s.OverRideDay < 0 || s.OverRideDay > MaxOrdinal {
		return fmt.Errorf("%w: over_ride_day %d out of range 0..%d", ErrMalformedStatus, s.OverRideDay, MaxOrdinal)
	}
	return nil
}

// rawDoorStatus detects missing fields while decoding.
type rawDoorStatus struct {
	Executed    *int `json:"executed"`
	Up          *int `json:"up"`
	OverRide    *int `json:"over_ride"`
	OverRideDay *int `json:"over_ride_day"`
}

// DecodeDoorStatus reads one complete DoorStatus from r.
func DecodeDoorStatus(r io.Reader) (DoorStatus, error) {
	var raw rawDoorStatus
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return DoorStatus{}, fmt.Errorf("%w: %v", ErrMalformedStatus, err)
	}
	return raw.complete()
}

// UnmarshalDoorStatus is DecodeDoorStatus for an in-memory payload.
func UnmarshalDoorStatus(data []byte) (DoorStatus, error) {
	var raw rawDoorStatus
	if err := json.Unmarshal(data, &raw); err != nil {
		return DoorStatus{}, fmt.Errorf("%w: %v", ErrMalformedStatus, err)
	}
	return raw.complete()
}

func (r rawDoorStatus) complete() (DoorStatus, error) {
	missing := make([]string, 0, 4)
	if r.Executed == nil {
		missing = append(missing, "executed")
	}
	if r.Up == nil {
		missing = append(missing, "up")
	}
	if r.OverRide == nil {
		missing = append(missing, "over_ride")
	}
	if r.OverRideDay == nil {
		missing = append(missing, "over_ride_day")
	}
	if len(missing) > 0 {
		return DoorStatus{}, fmt.Errorf("%w: missing fields %v", ErrMalformedStatus, missing)
	}

	status := DoorStatus{
		Executed:    *r.Executed,
		Up:          *r.Up,
		OverRide:    *r.OverRide,
		OverRideDay: *r.OverRideDay,
	}
	if err := status.Validate(); err != nil {
		return DoorStatus{}, err
	}
	return status, nil
}

// DoorState is the state derived from (executed, up).
type DoorState string

const (
	StateOpen    DoorState = "open"
	StateClosed  DoorState = "closed"
	StateOpening DoorState = "opening"
	StateClosing DoorState = "closing"
	StateUnknown DoorState = "unknown"
)

// DeriveState maps the executed/up pair to a DoorState. Any pair outside
// {0,1}x{0,1} is StateUnknown.
func DeriveState(executed, up int) DoorState {
	switch {
	case executed == 1 && up == 1:
		return StateOpen
	case executed == 1 && up == 0:
		return StateClosed
	case executed == 0 && up == 1:
		return StateOpening
	case executed == 0 && up == 0:
		return StateClosing
	default:
		return StateUnknown
	}
}

// InMotion reports whether a motion was requested but not yet confirmed.
func (s DoorState) InMotion() bool {
	return s == StateOpening || s == StateClosing
}

// DoorAction is the motion request issued by a decision, if any.
type DoorAction string

const (
	ActionOpen  DoorAction = "open"
	ActionClose DoorAction = "close"
	ActionPass  DoorAction = "pass"
)
