// Package presence maintains the in-memory table of currently connected
// users. The registry maps an application user id to the opaque handle of its
// live connection; state lives for the process lifetime only and is rebuilt
// naturally as clients re-announce after a restart.
//
// Registration is first-wins: a second registration for a user whose entry is
// still live is silently dropped, and the old handle stays the relay target
// until its own disconnect is observed. A reconnect that races a stale
// disconnect can therefore briefly point at a dead connection; delivery to it
// degrades to a no-op, which the best-effort relay contract already allows.
package presence

import "sync"

// Conn is the opaque handle for one live client connection. The registry
// never inspects it beyond identity comparison; delivery goes through Send.
type Conn interface {
	// Send enqueues a payload for delivery on this connection.
	Send(payload []byte) error
}

// Registry is the process-wide presence table. It is the only shared mutable
// resource of the relay path and is safe for concurrent use; all state is
// guarded by a single mutex.
type Registry struct {
	mu       sync.RWMutex
	byUser   map[string]Conn
	onChange func(ids []string)
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]Conn)}
}

// OnChange installs a callback invoked with a snapshot of online user ids
// after every effective registration or removal. The callback runs outside
// the registry lock so fan-out cannot contend with lookups. Install before
// the registry is shared; the field is not guarded for later replacement.
func (r *Registry) OnChange(fn func(ids []string)) { r.onChange = fn }

// Register associates userID with conn. If the user already has a live
// entry, the call is a silent no-op and returns false (first registration
// wins until its own disconnect evicts it).
func (r *Registry) Register(conn Conn, userID string) bool {
	if userID == "" || conn == nil {
		return false
	}

	r.mu.Lock()
	if _, exists := r.byUser[userID]; exists {
		r.mu.Unlock()
		return false
	}
	r.byUser[userID] = conn
	ids := r.snapshotLocked()
	r.mu.Unlock()

	r.notify(ids)
	return true
}

// Unregister removes every entry whose handle is conn and reports whether
// anything was removed. Entries registered by other connections — including
// a fresh registration for the same user — are untouched.
func (r *Registry) Unregister(conn Conn) bool {
	if conn == nil {
		return false
	}

	r.mu.Lock()
	removed := false
	for uid, c := range r.byUser {
		if c == conn {
			delete(r.byUser, uid)
			removed = true
		}
	}
	var ids []string
	if removed {
		ids = r.snapshotLocked()
	}
	r.mu.Unlock()

	if removed {
		r.notify(ids)
	}
	return removed
}

// Lookup resolves userID to its live connection handle. The second result is
// false when the user is not currently registered; absence is a normal
// outcome, never an error.
func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	c, ok := r.byUser[userID]
	r.mu.RUnlock()
	return c, ok
}

// UserIDs returns a snapshot of the currently registered user ids. Order is
// unspecified.
func (r *Registry) UserIDs() []string {
	r.mu.RLock()
	ids := r.snapshotLocked()
	r.mu.RUnlock()
	return ids
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	n := len(r.byUser)
	r.mu.RUnlock()
	return n
}

func (r *Registry) snapshotLocked() []string {
	ids := make([]string, 0, len(r.byUser))
	for uid := range r.byUser {
		ids = append(ids, uid)
	}
	return ids
}

func (r *Registry) notify(ids []string) {
	if r.onChange != nil {
		r.onChange(ids)
	}
}
