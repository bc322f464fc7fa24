package receiver

import "time"

// Capacity is the maximum number of concurrent sessions the table holds
// (§4.E). A handshake arriving when the table is full is dropped silently.
const Capacity = 100

// IdleTimeout is how long a session may go without activity before it is
// eligible for reaping (§4.E, §8).
const IdleTimeout = 30 * time.Second

// Table is the receiver's bounded, single-threaded session map. It has no
// internal locking: the receiver event loop is the table's only caller, by
// design (§5).
type Table struct {
	sessions map[string]*Session
	nextID   int64
}

// NewTable builds an empty session table.
func NewTable() *Table {
	return &Table{sessions: make(map[string]*Session)}
}

// Lookup returns the session for key, if any.
func (t *Table) Lookup(key string) (*Session, bool) {
	s, ok := t.sessions[key]
	return s, ok
}

// Full reports whether the table is at capacity.
func (t *Table) Full() bool {
	return len(t.sessions) >= Capacity
}

// NextSessionID returns a fresh, monotonically increasing session
// identifier, used to disambiguate output paths across repeat transfers
// from the same peer.
func (t *Table) NextSessionID() int64 {
	t.nextID++
	return t.nextID
}

// Insert adds s to the table, evicting and closing any existing session
// under the same key first (a fresh HANDSHAKE always wins — §8
// idempotence).
func (t *Table) Insert(s *Session) error {
	if old, ok := t.sessions[s.Key]; ok {
		if err := old.Close(); err != nil {
			return err
		}
	}
	t.sessions[s.Key] = s
	return nil
}

// Remove deletes the session under key without closing it — for callers
// that have already closed it themselves and only need the table entry
// gone.
func (t *Table) Remove(key string) {
	delete(t.sessions, key)
}

// Evict closes and removes the session under key, if present.
func (t *Table) Evict(key string) error {
	s, ok := t.sessions[key]
	if !ok {
		return nil
	}
	delete(t.sessions, key)
	return s.Close()
}

// ReapIdle evicts every session whose last activity is older than
// IdleTimeout relative to now, returning the evicted keys.
func (t *Table) ReapIdle(now time.Time) ([]string, error) {
	var evicted []string
	for key, s := range t.sessions {
		if now.Sub(s.LastActivity) > IdleTimeout {
			evicted = append(evicted, key)
		}
	}
	for _, key := range evicted {
		if err := t.Evict(key); err != nil {
			return evicted, err
		}
	}
	return evicted, nil
}

// Len reports the number of active sessions.
func (t *Table) Len() int {
	return len(t.sessions)
}

// CloseAll flushes and closes every open session, for process shutdown.
func (t *Table) CloseAll() error {
	var firstErr error
	for key, s := range t.sessions {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(t.sessions, key)
	}
	return firstErr
}
