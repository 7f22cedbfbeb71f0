package model

import "time"

// StatusRecordID is the primary key of the only row in the door_status table.
const StatusRecordID = 1

// StatusRecord is the relational representation of DoorStatus.
type StatusRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement:false"`
	Executed    int       `gorm:"not null"`
	Up          int       `gorm:"not null"`
	OverRide    int       `gorm:"column:over_ride;not null"`
	OverRideDay int       `gorm:"column:over_ride_day;not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName pins the table name so every backend agrees on it.
func (StatusRecord) TableName() string {
	return "door_status"
}

// NewStatusRecord builds the single row for s.
func NewStatusRecord(s DoorStatus) StatusRecord {
	return StatusRecord{
		ID:          StatusRecordID,
		Executed:    s.Executed,
		Up:          s.Up,
		OverRide:    s.OverRide,
		OverRideDay: s.OverRideDay,
	}
}

// DoorStatus converts the row back to the domain record.
func (r StatusRecord) DoorStatus() DoorStatus {
	return DoorStatus{
		Executed:    r.Executed,
		Up:          r.Up,
		OverRide:    r.OverRide,
		OverRideDay: r.OverRideDay,
	}
}
