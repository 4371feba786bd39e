// Package notify holds the outbound delivery clients: the operator text
// gateway used for completion reports and the realtime fan-out used for
// patient-connect notifications. All deliveries are at-most-once; callers
// treat errors as advisory and log them.
package notify

import (
	"context"
	"time"
)

// PatientConnected is the payload fanned out on every patient-connect event.
type PatientConnected struct {
	PatientID   string    `json:"patient_id"`
	Room        string    `json:"room"`
	Identity    string    `json:"identity"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Notifier pushes a patient-connected event to a named realtime channel.
type Notifier interface {
	NotifyPatientConnected(ctx context.Context, channel string, ev PatientConnected) error
}

// Messenger delivers a text message to a recipient on the messaging gateway.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
}
