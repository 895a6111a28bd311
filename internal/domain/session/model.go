package session

import (
	"time"

	"github.com/Anvoria/scanly/internal/domain/device"
)

// State is the lifecycle state of a scene session. States only advance
// forward along waiting → scanned → confirmed; expired is reachable from
// any state and is terminal.
type State string

const (
	StateWaiting   State = "waiting"
	StateScanned   State = "scanned"
	StateConfirmed State = "confirmed"
	StateExpired   State = "expired"
)

// Session is one scan-to-login attempt, keyed by scene ID.
type Session struct {
	SceneID     string       `json:"sceneId"`
	State       State        `json:"state"`
	UserID      string       `json:"userId,omitempty"`
	Token       string       `json:"-"`
	Device      *device.Info `json:"deviceInfo,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	ScannedAt   *time.Time   `json:"scannedAt,omitempty"`
	ConfirmedAt *time.Time   `json:"confirmedAt,omitempty"`
	IPAddress   string       `json:"ipAddress,omitempty"`
	UserAgent   string       `json:"userAgent,omitempty"`
}

// Patch is a partial update merged into a session. Nil fields are left
// untouched.
type Patch struct {
	State  *State
	UserID *string
	Token  *string
	Device *device.Info
}

func clone(s *Session) *Session {
	c := *s
	if s.ScannedAt != nil {
		t := *s.ScannedAt
		c.ScannedAt = &t
	}
	if s.ConfirmedAt != nil {
		t := *s.ConfirmedAt
		c.ConfirmedAt = &t
	}
	if s.Device != nil {
		d := *s.Device
		c.Device = &d
	}
	return &c
}
