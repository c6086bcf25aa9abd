package models

import (
	"time"
)

// NotificationChannel identifies how alerts for a watch target are delivered.
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "EMAIL"
	ChannelSMS   NotificationChannel = "SMS"
)

// AllChannels returns every delivery channel with its own queue pair.
func AllChannels() []NotificationChannel {
	return []NotificationChannel{ChannelEmail, ChannelSMS}
}

// Valid reports whether the channel is a known delivery channel.
func (c NotificationChannel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// WatchTarget is a user-registered keyword that the scanner periodically
// re-checks for external changes. Targets are created and edited through the
// bookmark API; the scanner only reads them, except for LastScannedAt which it
// stamps after every scan attempt (success or failure) for staleness
// diagnostics.
type WatchTarget struct {
	ID                  string              `badgerhold:"key" json:"id"`
	OwnerID             string              `json:"owner_id" validate:"required"`
	QueryKeyword        string              `json:"query_keyword" validate:"required,min=2,max=200"`
	TargetType          string              `json:"target_type,omitempty"`
	MonitoringActive    bool                `badgerhold:"index" json:"monitoring_active"`
	NotificationChannel NotificationChannel `json:"notification_channel" validate:"required,oneof=EMAIL SMS"`
	LastScannedAt       *time.Time          `json:"last_scanned_at,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}
