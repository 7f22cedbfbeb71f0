package model

import "time"

// AlertKind classifies alerts raised by the reconciliation loop.
type AlertKind string

const (
	// AlertMotion is raised whenever the loop requests the door to move.
	AlertMotion AlertKind = "motion"
	// AlertWarning is raised for stuck or ambiguous door states.
	AlertWarning AlertKind = "warning"
)

// Alert is a notification about a reconciliation tick.
type Alert struct {
	Kind    AlertKind  `json:"kind"`
	Message string     `json:"message"`
	State   DoorState  `json:"state"`
	Action  DoorAction `json:"action"`
	Ordinal int        `json:"ordinal"`
	At      time.Time  `json:"at"`
}
