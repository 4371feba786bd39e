package presence

// Store is the storage abstraction for session state.
// Implementations can be in-memory or remote (e.g. a shared key-value store
// if horizontal scaling is ever required). The Registry uses Store for all
// reads and writes; callers of Registry do not need to know which Store is used.
type Store interface {
	GetSession(room RoomID) (*Session, bool)
	SetSession(s *Session)
	DeleteSession(room RoomID)
	ListRooms() []RoomID
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	sessions map[RoomID]*Session
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[RoomID]*Session),
	}
}

// GetSession implements Store.GetSession.
func (s *InMemoryStore) GetSession(room RoomID) (*Session, bool) {
	sess, ok := s.sessions[room]
	return sess, ok
}

// SetSession implements Store.SetSession.
func (s *InMemoryStore) SetSession(sess *Session) {
	s.sessions[sess.Room] = sess
}

// DeleteSession implements Store.DeleteSession. Deleting an absent room is a no-op.
func (s *InMemoryStore) DeleteSession(room RoomID) {
	delete(s.sessions, room)
}

// ListRooms implements Store.ListRooms.
func (s *InMemoryStore) ListRooms() []RoomID {
	rooms := make([]RoomID, 0, len(s.sessions))
	for room := range s.sessions {
		rooms = append(rooms, room)
	}
	return rooms
}
