// session/session.go
package session

import (
	"strings"
	"sync"
	"time"
)

// Session is the local identity: who I am and which room I am in.
type Session struct {
	ID         string
	playerID   string
	playerName string
	roomID     string
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		CreatedAt:  now,
		LastActive: now,
	}
}

func (s *Session) GetID() string {
	return s.ID
}

// SetPlayerID records the id assigned by the server on connect.
func (s *Session) SetPlayerID(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.playerID = id
	s.LastActive = time.Now()
}

func (s *Session) PlayerID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.playerID
}

func (s *Session) PlayerName() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.playerName
}

// AcceptName validates name and returns the name to use. The first
// accepted name sticks for the lifetime of the session.
func (s *Session) AcceptName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: "name", Message: "Please enter your name"}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.playerName == "" {
		s.playerName = name
	}
	return s.playerName, nil
}

func (s *Session) RoomID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomID
}

// SetRoom makes id the current room and returns the previous one.
func (s *Session) SetRoom(id string) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	prev := s.roomID
	s.roomID = id
	s.LastActive = time.Now()
	return prev
}

// ClearRoomIf clears the current room only when it is still id.
func (s *Session) ClearRoomIf(id string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.roomID != id {
		return false
	}
	s.roomID = ""
	return true
}

// Info is a consistent copy of a session for display.
type Info struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	RoomID     string    `json:"room_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

func (s *Session) Info() Info {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return Info{
		ID:         s.ID,
		PlayerID:   s.playerID,
		PlayerName: s.playerName,
		RoomID:     s.roomID,
		CreatedAt:  s.CreatedAt,
		LastActive: s.LastActive,
	}
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByPlayerID finds the session the server knows as playerID.
func (m *Manager) GetByPlayerID(playerID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, session := range m.sessions {
		if playerID != "" && session.PlayerID() == playerID {
			return session, true
		}
	}
	return nil, false
}

// All returns the sessions in no particular order.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		out = append(out, session)
	}
	return out
}
