package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint string `gorm:"primaryKey"`
	P256DH   string `gorm:"column:p256dh;not null"`
	Auth     string `gorm:"not null"`

	// Which alert kinds the subscriber wants. No column defaults: false must
	// survive an insert.
	NotifyMotion   bool `gorm:"not null"`
	NotifyWarnings bool `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
}

// Wants reports whether the subscription accepts alerts of the given kind.
func (p PushSubscription) Wants(kind AlertKind) bool {
	switch kind {
	case AlertMotion:
		return p.NotifyMotion
	case AlertWarning:
		return p.NotifyWarnings
	}
	return false
}
