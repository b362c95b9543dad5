package negentropy

import (
	"sync"
	"time"

	"nestrelay.dev/pkg/encoders/filter"
	"nestrelay.dev/pkg/metrics"
)

const (
	// MaxSessionsPerConn bounds concurrent NEG-OPEN sessions one
	// connection may hold, guarding against memory exhaustion from a
	// client that opens many and never closes them.
	MaxSessionsPerConn = 5
	// MaxRecordsPerSession bounds how many ids a single session's
	// filter is allowed to match, so a single exchange can't be used to
	// walk the entire store.
	MaxRecordsPerSession = 500000
	// SessionIdleTimeout is the idle age past which ReapIdle closes a
	// session that has received no NEG-MSG. Nothing in the relay calls
	// ReapIdle, so an idle session stays open until NEG-CLOSE or
	// disconnect, and no NEG-ERR is sent for it.
	SessionIdleTimeout = 2 * time.Minute
)

// Session holds one side's state for an open NEG-OPEN/NEG-MSG exchange.
type Session struct {
	SubID     string
	Filter    *filter.T
	ServerIDs []string // this relay's matching ids for Filter, computed once at open
	ClientIDs map[string]bool
	opened    time.Time
	lastUsed  time.Time
}

// Touch refreshes the session's idle clock.
func (s *Session) Touch(now time.Time) { s.lastUsed = now }

// Idle reports whether the session has been quiet longer than
// SessionIdleTimeout as of now.
func (s *Session) Idle(now time.Time) bool {
	return now.Sub(s.lastUsed) > SessionIdleTimeout
}

// Manager tracks open sessions per connection.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]map[string]*Session // connID -> subID -> session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]map[string]*Session)}
}

// ErrTooManySessions is returned by Open once a connection is at its cap.
type ErrTooManySessions struct{}

func (ErrTooManySessions) Error() string { return "too many open negentropy sessions" }

// ErrTooManyRecords is returned by Open when the filter matched more
// than MaxRecordsPerSession ids.
type ErrTooManyRecords struct{}

func (ErrTooManyRecords) Error() string { return "negentropy filter matches too many records" }

// Open starts a session for connID, computing ServerIDs from serverIDs
// (already filtered by the caller) and ClientIDs by decoding initial.
func (m *Manager) Open(connID, subID string, f *filter.T, serverIDs []string, initial string) (*Session, error) {
	if len(serverIDs) > MaxRecordsPerSession {
		return nil, ErrTooManyRecords{}
	}
	clientIDs, err := DecodeIDList(initial)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byConn, ok := m.sessions[connID]
	if !ok {
		byConn = make(map[string]*Session)
		m.sessions[connID] = byConn
	}
	if _, exists := byConn[subID]; !exists && len(byConn) >= MaxSessionsPerConn {
		return nil, ErrTooManySessions{}
	}
	clientSet := make(map[string]bool, len(clientIDs))
	for _, id := range clientIDs {
		clientSet[id] = true
	}
	now := time.Now()
	sess := &Session{
		SubID:     subID,
		Filter:    f,
		ServerIDs: serverIDs,
		ClientIDs: clientSet,
		opened:    now,
		lastUsed:  now,
	}
	byConn[subID] = sess
	metrics.NegentropySessionsOpen.Inc()
	return sess, nil
}

// Get returns the session for (connID, subID), if open.
func (m *Manager) Get(connID, subID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byConn, ok := m.sessions[connID]
	if !ok {
		return nil, false
	}
	sess, ok := byConn[subID]
	return sess, ok
}

// Update merges additional client ids into an open session, as each
// NEG-MSG round contributes more of the client's set.
func (m *Manager) Update(connID, subID string, more []string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byConn, ok := m.sessions[connID]
	if !ok {
		return nil, false
	}
	sess, ok := byConn[subID]
	if !ok {
		return nil, false
	}
	for _, id := range more {
		sess.ClientIDs[id] = true
	}
	sess.Touch(time.Now())
	return sess, true
}

// Close removes a single session.
func (m *Manager) Close(connID, subID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if byConn, ok := m.sessions[connID]; ok {
		if _, existed := byConn[subID]; existed {
			delete(byConn, subID)
			metrics.NegentropySessionsOpen.Dec()
		}
		if len(byConn) == 0 {
			delete(m.sessions, connID)
		}
	}
}

// CloseAll removes every session belonging to connID.
func (m *Manager) CloseAll(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if byConn, ok := m.sessions[connID]; ok {
		metrics.NegentropySessionsOpen.Sub(float64(len(byConn)))
		delete(m.sessions, connID)
	}
}

// Count returns how many sessions connID currently holds.
func (m *Manager) Count(connID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions[connID])
}

// ReapIdle closes every session across every connection that has been
// idle longer than SessionIdleTimeout, returning how many were closed.
func (m *Manager) ReapIdle() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	n := 0
	for connID, byConn := range m.sessions {
		for subID, sess := range byConn {
			if sess.Idle(now) {
				delete(byConn, subID)
				metrics.NegentropySessionsOpen.Dec()
				n++
			}
		}
		if len(byConn) == 0 {
			delete(m.sessions, connID)
		}
	}
	return n
}

// Have returns the ids ServerIDs holds that ClientIDs does not — what
// the session should send the client next.
func (s *Session) Have() []string {
	var out []string
	for _, id := range s.ServerIDs {
		if !s.ClientIDs[id] {
			out = append(out, id)
		}
	}
	return out
}
