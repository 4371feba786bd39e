package presence

import "time"

// RoomID uniquely identifies a video-call room shared by both participants.
type RoomID string

// Identity is the display name a participant uses within a room.
// It is unique per room, not globally.
type Identity string

// Role distinguishes the two participant kinds in a two-party session.
type Role string

const (
	// RolePrimary is the clinician side of the call.
	RolePrimary Role = "primary"
	// RoleSecondary is the patient side of the call.
	RoleSecondary Role = "secondary"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RolePrimary || r == RoleSecondary
}

// Participant records one identity's presence within a session.
type Participant struct {
	Identity       Identity
	Role           Role
	ConnectedAt    time.Time
	DisconnectedAt *time.Time // nil while still connected; terminal once set
}

// Connected reports whether the participant has not disconnected yet.
func (p *Participant) Connected() bool {
	return p.DisconnectedAt == nil
}

// Session is the in-memory state of one room. It exists only while referenced
// by the registry and is never persisted.
type Session struct {
	Room         RoomID
	Participants map[Identity]*Participant
	CreatedAt    time.Time
	CompletedAt  *time.Time

	// PatientID is an external correlation id (e.g. a ticket id), first-write-wins.
	PatientID string
	// OperatorCode scopes outward notifications to a specific operator channel,
	// first-write-wins.
	OperatorCode string
}

// Finalizable reports whether the session is eligible for finalization:
// at least two participants, all of them disconnected.
func (s *Session) Finalizable() bool {
	if len(s.Participants) < 2 {
		return false
	}
	for _, p := range s.Participants {
		if p.DisconnectedAt == nil {
			return false
		}
	}
	return true
}

// ParticipantView is the read-only snapshot of a Participant.
type ParticipantView struct {
	Identity       Identity   `json:"identity"`
	Role           Role       `json:"role"`
	ConnectedAt    time.Time  `json:"connected_at"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
}

// SessionView is the read-only snapshot of a Session returned by GetSession.
type SessionView struct {
	Room         RoomID            `json:"room"`
	Participants []ParticipantView `json:"participants"`
	CreatedAt    time.Time         `json:"created_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	PatientID    string            `json:"patient_id,omitempty"`
	OperatorCode string            `json:"operator_code,omitempty"`
}

// ConnectedPatient is one entry of the connected-patients listing used by the
// UI to rebuild presence state after a client reconnect.
type ConnectedPatient struct {
	PatientID   string    `json:"patient_id"`
	Room        RoomID    `json:"room"`
	Identity    Identity  `json:"identity"`
	ConnectedAt time.Time `json:"connected_at"`
}
