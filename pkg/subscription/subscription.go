// Package subscription tracks per-connection REQ subscriptions and fans
// out newly stored events to every subscription whose filters match.
package subscription

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/encoders/filter"
	"nestrelay.dev/pkg/metrics"
)

// Conn is the minimal connection surface the manager needs: a way to
// push a matched event to the client and a way to identify the
// connection's current auth state for privileged-event filtering.
type Conn interface {
	ID() string
	IsAuthed() bool
	AuthedPubkey() string
}

// Deliverer receives events this subscription manager decides a
// connection should see. The socketapi layer implements this to encode
// and write the EVENT frame.
type Deliverer interface {
	DeliverEvent(sub string, ev *event.E)
}

// entry is one open subscription.
type entry struct {
	conn    Conn
	deliver Deliverer
	filters filter.S
}

// connSubs holds one connection's open subscriptions behind its own lock,
// so a busy connection never blocks lookups for any other connection.
type connSubs struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// Manager holds every open subscription, keyed by connection id in a
// lock-free concurrent map so Broadcast never contends with Open/Close
// for unrelated connections.
type Manager struct {
	subs *xsync.MapOf[string, *connSubs]

	MaxSubscriptionsPerConn int
	MaxFiltersPerSub        int
}

// NewManager builds an empty Manager with the given per-connection caps;
// zero means unlimited.
func NewManager(maxSubs, maxFilters int) *Manager {
	return &Manager{
		subs:                    xsync.NewMapOf[string, *connSubs](),
		MaxSubscriptionsPerConn: maxSubs,
		MaxFiltersPerSub:        maxFilters,
	}
}

// ErrTooManySubs is returned by Open when the connection is already at
// its subscription cap.
type ErrTooManySubs struct{}

func (ErrTooManySubs) Error() string { return "too many open subscriptions" }

// ErrTooManyFilters is returned by Open when the filter set exceeds the
// per-subscription cap.
type ErrTooManyFilters struct{}

func (ErrTooManyFilters) Error() string { return "too many filters in subscription" }

// Open registers a subscription, replacing any existing one with the
// same id on the same connection (REQ re-registration is idempotent
// per NIP-01).
func (m *Manager) Open(conn Conn, deliver Deliverer, subID string, filters filter.S) error {
	if m.MaxFiltersPerSub > 0 && len(filters) > m.MaxFiltersPerSub {
		return ErrTooManyFilters{}
	}
	cs, _ := m.subs.LoadOrCompute(conn.ID(), func() *connSubs {
		return &connSubs{entries: make(map[string]*entry)}
	})
	cs.mu.Lock()
	defer cs.mu.Unlock()
	_, existed := cs.entries[subID]
	if !existed && m.MaxSubscriptionsPerConn > 0 && len(cs.entries) >= m.MaxSubscriptionsPerConn {
		return ErrTooManySubs{}
	}
	cs.entries[subID] = &entry{conn: conn, deliver: deliver, filters: filters}
	if !existed {
		metrics.SubscriptionsOpen.Inc()
	}
	return nil
}

// Close removes a single subscription.
func (m *Manager) Close(conn Conn, subID string) {
	cs, ok := m.subs.Load(conn.ID())
	if !ok {
		return
	}
	cs.mu.Lock()
	if _, existed := cs.entries[subID]; existed {
		delete(cs.entries, subID)
		metrics.SubscriptionsOpen.Dec()
	}
	empty := len(cs.entries) == 0
	cs.mu.Unlock()
	if empty {
		m.subs.Delete(conn.ID())
	}
}

// CloseAll removes every subscription belonging to conn, called when the
// connection disconnects.
func (m *Manager) CloseAll(conn Conn) {
	cs, ok := m.subs.LoadAndDelete(conn.ID())
	if !ok {
		return
	}
	cs.mu.Lock()
	n := len(cs.entries)
	cs.mu.Unlock()
	metrics.SubscriptionsOpen.Sub(float64(n))
}

// Count returns how many subscriptions conn currently has open.
func (m *Manager) Count(conn Conn) int {
	cs, ok := m.subs.Load(conn.ID())
	if !ok {
		return 0
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.entries)
}

// Visible reports whether conn is allowed to see ev: non-privileged
// events are visible to everyone, but kind-4/kind-1059 private mail is
// only delivered to an authenticated author or a recipient named in one
// of its "p" tags. Events of other kinds are public even when they carry
// "p" tags. Both
// live broadcast and REQ query results apply this same rule.
func Visible(ev *event.E, conn Conn) bool {
	privileged := ev.Kind == 4 || ev.Kind == 1059 || len(ev.Tags.GetAll("p")) > 0 && (ev.Kind == 4 || ev.Kind == 1059)
	if !privileged {
		return true
	}
	if !conn.IsAuthed() {
		return false
	}
	if conn.AuthedPubkey() == ev.PubKey {
		return true
	}
	for _, t := range ev.Tags.GetAll("p") {
		if t.Value() == conn.AuthedPubkey() {
			return true
		}
	}
	return false
}

// Broadcast delivers ev to every open subscription whose filters match
// it and whose connection is privileged to see it.
func (m *Manager) Broadcast(ev *event.E) {
	m.subs.Range(func(_ string, cs *connSubs) bool {
		cs.mu.Lock()
		defer cs.mu.Unlock()
		for subID, e := range cs.entries {
			if !e.filters.Matches(ev) {
				continue
			}
			if !Visible(ev, e.conn) {
				continue
			}
			e.deliver.DeliverEvent(subID, ev)
		}
		return true
	})
}
