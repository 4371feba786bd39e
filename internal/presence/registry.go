package presence

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	// ErrUnknownRoom is returned when an event references a room the registry
	// has no session for.
	ErrUnknownRoom = errors.New("unknown room")

	// ErrUnknownParticipant is returned when a disconnect references an
	// identity never seen in the session.
	ErrUnknownParticipant = errors.New("unknown participant")

	// ErrAlreadyConnected is returned on a repeated connect for an identity
	// that is still connected. The first connect timestamp is kept.
	ErrAlreadyConnected = errors.New("participant already connected")

	// ErrAlreadyDisconnected is returned when an event references an identity
	// whose disconnect has already been recorded. Disconnect is terminal for
	// an identity within a session instance.
	ErrAlreadyDisconnected = errors.New("participant already disconnected")
)

// ConnectEvent is the snapshot handed back by RecordConnect, used to drive
// the realtime fan-out notification.
type ConnectEvent struct {
	Room         RoomID
	Identity     Identity
	Role         Role
	PatientID    string
	OperatorCode string
	ConnectedAt  time.Time
}

// Registry is the concurrency-safe in-memory mapping from room to session.
// It is constructed once at application start and passed by reference to the
// HTTP layer and the sweeper; all errors it returns are advisory and callers
// log rather than propagate them.
type Registry struct {
	mu    sync.RWMutex
	store Store
	now   func() time.Time
}

// NewRegistry constructs a registry backed by a default in-memory store.
func NewRegistry() *Registry {
	return NewRegistryWithStore(NewInMemoryStore())
}

// NewRegistryWithStore constructs a registry that uses the given Store.
// Useful for testing or for plugging in a different storage backend.
func NewRegistryWithStore(store Store) *Registry {
	return &Registry{store: store, now: time.Now}
}

// RecordConnect creates the session for room if absent and records the
// participant's connect timestamp. PatientID and operatorCode are
// first-write-wins on the session. A repeated connect for a live participant
// keeps the original timestamp and returns ErrAlreadyConnected; a connect for
// an identity that already disconnected in this session returns
// ErrAlreadyDisconnected.
func (r *Registry) RecordConnect(room RoomID, identity Identity, role Role, patientID, operatorCode string) (ConnectEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess := r.getOrCreateSessionLocked(room)
	if sess.PatientID == "" {
		sess.PatientID = patientID
	}
	if sess.OperatorCode == "" {
		sess.OperatorCode = operatorCode
	}

	if p, ok := sess.Participants[identity]; ok {
		if p.DisconnectedAt != nil {
			return ConnectEvent{}, ErrAlreadyDisconnected
		}
		return ConnectEvent{}, ErrAlreadyConnected
	}

	p := &Participant{
		Identity:    identity,
		Role:        role,
		ConnectedAt: r.now().UTC(),
	}
	sess.Participants[identity] = p

	return ConnectEvent{
		Room:         room,
		Identity:     identity,
		Role:         role,
		PatientID:    sess.PatientID,
		OperatorCode: sess.OperatorCode,
		ConnectedAt:  p.ConnectedAt,
	}, nil
}

// RecordDisconnect records the participant's disconnect timestamp. When the
// disconnect completes the session (every participant of at least two has a
// disconnect timestamp), the session is removed from the registry and its
// final state is returned; the returned session is no longer reachable
// through the registry and is safe to read without locking. Unknown rooms and
// identities yield ErrUnknownRoom / ErrUnknownParticipant.
func (r *Registry) RecordDisconnect(room RoomID, identity Identity) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.store.GetSession(room)
	if !ok {
		return nil, ErrUnknownRoom
	}

	p, ok := sess.Participants[identity]
	if !ok {
		return nil, ErrUnknownParticipant
	}
	if p.DisconnectedAt != nil {
		return nil, ErrAlreadyDisconnected
	}

	ts := r.now().UTC()
	p.DisconnectedAt = &ts

	if !sess.Finalizable() {
		return nil, nil
	}

	completed := ts
	sess.CompletedAt = &completed
	r.store.DeleteSession(room)
	return sess, nil
}

// ListConnected returns every still-connected secondary-role participant
// across all sessions. A non-empty operatorCode restricts the result to
// sessions tagged with that code.
func (r *Registry) ListConnected(operatorCode string) []ConnectedPatient {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []ConnectedPatient{}
	for _, room := range r.store.ListRooms() {
		sess, ok := r.store.GetSession(room)
		if !ok {
			continue
		}
		if operatorCode != "" && sess.OperatorCode != operatorCode {
			continue
		}
		for _, p := range sess.Participants {
			if p.Role != RoleSecondary || !p.Connected() {
				continue
			}
			out = append(out, ConnectedPatient{
				PatientID:   sess.PatientID,
				Room:        sess.Room,
				Identity:    p.Identity,
				ConnectedAt: p.ConnectedAt,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Room != out[j].Room {
			return out[i].Room < out[j].Room
		}
		return out[i].Identity < out[j].Identity
	})
	return out
}

// GetSession returns a read-only snapshot of the session for room.
// The ok return is false if no session exists.
func (r *Registry) GetSession(room RoomID) (SessionView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.store.GetSession(room)
	if !ok {
		return SessionView{}, false
	}
	return snapshotSession(sess), true
}

// SweepStale deletes every session whose age exceeds maxAge, regardless of
// completion state, and returns the rooms removed. Sessions that never
// complete are dropped this way and no report is ever sent for them.
func (r *Registry) SweepStale(maxAge time.Duration) []RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().UTC().Add(-maxAge)
	var swept []RoomID
	for _, room := range r.store.ListRooms() {
		sess, ok := r.store.GetSession(room)
		if !ok {
			continue
		}
		if sess.CreatedAt.Before(cutoff) {
			r.store.DeleteSession(room)
			swept = append(swept, room)
		}
	}
	return swept
}

// ActiveSessionCount returns the number of tracked sessions. Used for metrics.
func (r *Registry) ActiveSessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store.ListRooms())
}

// getOrCreateSessionLocked returns an existing session or creates a new one.
// Caller must hold r.mu in write mode.
func (r *Registry) getOrCreateSessionLocked(room RoomID) *Session {
	if sess, ok := r.store.GetSession(room); ok {
		return sess
	}

	sess := &Session{
		Room:         room,
		Participants: make(map[Identity]*Participant),
		CreatedAt:    r.now().UTC(),
	}
	r.store.SetSession(sess)
	return sess
}

// snapshotSession deep-copies a session into its view form, participants
// ordered by connect time then identity.
func snapshotSession(sess *Session) SessionView {
	view := SessionView{
		Room:         sess.Room,
		CreatedAt:    sess.CreatedAt,
		CompletedAt:  sess.CompletedAt,
		PatientID:    sess.PatientID,
		OperatorCode: sess.OperatorCode,
		Participants: make([]ParticipantView, 0, len(sess.Participants)),
	}
	for _, p := range sess.Participants {
		view.Participants = append(view.Participants, ParticipantView{
			Identity:       p.Identity,
			Role:           p.Role,
			ConnectedAt:    p.ConnectedAt,
			DisconnectedAt: p.DisconnectedAt,
		})
	}
	sort.Slice(view.Participants, func(i, j int) bool {
		a, b := view.Participants[i], view.Participants[j]
		if !a.ConnectedAt.Equal(b.ConnectedAt) {
			return a.ConnectedAt.Before(b.ConnectedAt)
		}
		return a.Identity < b.Identity
	})
	return view
}
