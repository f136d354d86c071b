package models

import (
	"time"
)

// HeartbeatEvent is the record published for every accepted ping.
type HeartbeatEvent struct {
	SessionID  string    `json:"session_id"`
	UserAgent  string    `json:"user_agent"`
	DeviceType string    `json:"device_type"`
	Created    bool      `json:"created"`
	OccurredAt time.Time `json:"occurred_at"`
}
