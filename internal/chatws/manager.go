// Package chatws serves the assistant over WebSocket.
package chatws

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// SessionManager tracks the open chat connection of each member tab.
type SessionManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// GetActive returns the active connection for a member and session.
func (m *SessionManager) GetActive(username, sessionID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessions, ok := m.active[username]; ok {
		return sessions[sessionID]
	}
	return nil
}

// Register adds a connection, closing any older one for the same tab.
func (m *SessionManager) Register(username, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[username]; !exists {
		m.active[username] = make(map[string]*websocket.Conn)
	}

	if existing, exists := m.active[username][sessionID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}

	m.active[username][sessionID] = conn
	slog.Info("Chat connection registered", "username", username, "session_id", sessionID)
}

// Unregister removes a connection if it is still the active one.
func (m *SessionManager) Unregister(username, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.active[username]; ok {
		if current, exists := sessions[sessionID]; exists && current == conn {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(m.active, username)
			}
			slog.Info("Chat connection unregistered", "username", username, "session_id", sessionID)
		}
	}
}

// CloseUser terminates every open chat connection of a member, used on logout.
func (m *SessionManager) CloseUser(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, ok := m.active[username]
	if !ok {
		return
	}

	for sid, conn := range sessions {
		_ = conn.Close(websocket.StatusNormalClosure, "signed out")
		slog.Info("Chat connection closed", "username", username, "session_id", sid)
	}
	delete(m.active, username)
}

// Count returns the number of open connections.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sessions := range m.active {
		n += len(sessions)
	}
	return n
}
