package models

import (
	"time"

	"github.com/google/uuid"
)

// ParkingSession represents one parked-car episode owned by a user.
// At most one session is active per user; saving a new spot supersedes
// the previous one.
type ParkingSession struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	VenueName *string   `json:"venue_name,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type TimerStatus string

const (
	TimerStatusScheduled TimerStatus = "scheduled"
	TimerStatusFired     TimerStatus = "fired"
)

// Timer is a one-shot reminder bound to a parking session. It transitions
// scheduled -> fired exactly once and is never rescheduled by the scheduler.
type Timer struct {
	ID            uuid.UUID   `json:"id"`
	SessionID     uuid.UUID   `json:"session_id"`
	NotifyAt      time.Time   `json:"notify_at"`
	BufferSeconds int         `json:"buffer_seconds"`
	Status        TimerStatus `json:"status"`
	FiredAt       *time.Time  `json:"fired_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// SafetyShare is an ephemeral, token-addressable live-location view of a
// session. At most one active share exists per session; shares are
// deactivated (never deleted) on supersession or expiry.
type SafetyShare struct {
	ID             uuid.UUID `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	CreatorID      uuid.UUID `json:"creator_id"`
	ShareToken     string    `json:"-"`
	RecipientName  *string   `json:"recipient_name,omitempty"`
	RecipientPhone *string   `json:"recipient_phone,omitempty"`
	ExpiresAt      time.Time `json:"expires_at"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// ShareLocation is one location sample attached to a share. Append-only,
// ordered by recorded_at at read time.
type ShareLocation struct {
	ID         uuid.UUID `json:"id"`
	ShareID    uuid.UUID `json:"share_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Speed      *float64  `json:"speed,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Destination is the parked-car endpoint shown to share viewers.
type Destination struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	VenueName *string `json:"venue_name,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// ShareView is the public projection of an active share resolved by token.
type ShareView struct {
	ShareID        uuid.UUID       `json:"share_id"`
	Active         bool            `json:"active"`
	ExpiresAt      time.Time       `json:"expires_at"`
	Destination    Destination     `json:"destination"`
	Locations      []ShareLocation `json:"locations"`
	LatestLocation *ShareLocation  `json:"latest_location,omitempty"`
}

// StartShareResult is returned to the share creator.
type StartShareResult struct {
	ShareID   uuid.UUID `json:"share_id"`
	Token     string    `json:"token"`
	ShareURL  string    `json:"share_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Device is a user device registered for push notifications. Registration
// is owned by the mobile client; this service only reads active devices.
type Device struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	PushToken string    `json:"push_token"`
	Platform  string    `json:"platform"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// DeliveryResult captures the outcome of a single push send. Transport
// failures are recorded here, never raised as errors.
type DeliveryResult struct {
	DeviceToken string `json:"device_token"`
	OK          bool   `json:"ok"`
	Status      string `json:"status,omitempty"`
	Error       string `json:"error,omitempty"`
}

// RunReport summarises one scheduler invocation for the cron caller.
type RunReport struct {
	TimersProcessed        int `json:"timers_processed"`
	NotificationsAttempted int `json:"notifications_attempted"`
	NotificationsSucceeded int `json:"notifications_succeeded"`
	SharesCleaned          int `json:"shares_cleaned"`
}

// DueTimer is a timer joined with its owning session, as selected by the
// scheduler's due-set query.
type DueTimer struct {
	Timer   Timer
	Session ParkingSession
}
