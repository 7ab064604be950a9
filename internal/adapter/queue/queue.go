package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageQueue defines the interface for a message queue adapter
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}

// Lifecycle event subjects.
const (
	SubjectSessionStarted   = "session.started"
	SubjectSessionParking   = "session.parking"
	SubjectSessionStopped   = "session.stopped"
	SubjectSessionCompleted = "session.completed"
	SubjectSessionPaid      = "session.paid"
)

// SessionEvent is the payload published on lifecycle transitions.
type SessionEvent struct {
	SessionID string    `json:"session_id"`
	BookingID string    `json:"booking_id,omitempty"`
	StationID string    `json:"station_id,omitempty"`
	Status    string    `json:"status"`
	At        time.Time `json:"at"`
}

// PublishEvent marshals and publishes a session lifecycle event.
func PublishEvent(q MessageQueue, subject string, event SessionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return q.Publish(subject, data)
}
