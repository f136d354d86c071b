package models

import (
	"time"
)

// Unknown is stored for optional client fields that were not supplied.
const Unknown = "unknown"

type Session struct {
	SessionID  string    `json:"session_id" bson:"session_id"`
	UserAgent  string    `json:"user_agent" bson:"user_agent"`
	DeviceType string    `json:"device_type" bson:"device_type"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}
