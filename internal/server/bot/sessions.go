package bot

import (
	"sync"

	"filegate/internal/server/service"
)

// SessionStore maps a chat id to the identity authenticated in that
// chat. It lives in memory only; a restart logs every chat out, and
// re-login is a single command.
type SessionStore struct {
	mu     sync.RWMutex
	byChat map[int64]service.Identity
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{byChat: make(map[int64]service.Identity)}
}

// Get returns the identity logged in for a chat, if any.
func (s *SessionStore) Get(chatID int64) (service.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byChat[chatID]
	return id, ok
}

// Put records the identity logged in for a chat.
func (s *SessionStore) Put(chatID int64, id service.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byChat[chatID] = id
}

// Delete logs a chat out.
func (s *SessionStore) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byChat, chatID)
}

// Reset logs every chat out.
func (s *SessionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byChat = make(map[int64]service.Identity)
}

// Len returns the number of logged-in chats.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byChat)
}
