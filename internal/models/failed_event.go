package models

import "time"

// FailedEvent is an inbound event that could not be applied. It is parked in
// the dead-letter store, not in the database.
type FailedEvent struct {
	Key      string    `json:"key"`
	Source   string    `json:"source"`
	Reason   string    `json:"reason"`
	Payload  []byte    `json:"payload"`
	FailedAt time.Time `json:"failed_at"`
}
