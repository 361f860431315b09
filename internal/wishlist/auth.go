package wishlist

import "sync"

// AuthContext exposes the currently authenticated user. It is read on every
// draft event rather than pushed, so user switches take effect immediately.
type AuthContext interface {
	// UserID returns the signed-in user's id, or false for anonymous sessions.
	UserID() (string, bool)
}

// Session is an in-memory AuthContext holding at most one signed-in user.
// This implementation is safe for concurrent use.
type Session struct {
	mu     sync.RWMutex
	userID string
}

// NewSession creates a session signed in as userID. An empty userID creates an
// anonymous session.
func NewSession(userID string) *Session {
	return &Session{userID: userID}
}

// SetUser signs in as userID.
func (s *Session) SetUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
}

// SignOut clears the signed-in user.
func (s *Session) SignOut() {
	s.SetUser("")
}

func (s *Session) UserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.userID != ""
}

var _ AuthContext = (*Session)(nil)
