package modules

import (
	"strconv"

	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/encoders/reason"
	"nestrelay.dev/pkg/policy"
	"nestrelay.dev/pkg/utils/context"
)

// Expiration implements NIP-40: an "expiration" tag names a unix
// timestamp after which the event should no longer be served. The
// module rejects already-expired events at admission time; events that
// expire later are stored normally and excluded by database.Query and
// database.Count once their time passes, without a separate sweep
// deleting them from disk.
type Expiration struct {
	now func() int64
}

func NewExpiration(now func() int64) *Expiration { return &Expiration{now: now} }

func (e *Expiration) Name() string { return "nip40-expiration" }
func (e *Expiration) NIPs() []int  { return []int{40} }
func (e *Expiration) Policies() []policy.Policy {
	return []policy.Policy{e.check}
}

// ExpiresAt returns the event's expiration unix timestamp and whether it
// carries one at all.
func ExpiresAt(ev *event.E) (int64, bool) {
	t := ev.Tags.GetFirst("expiration")
	if t == nil {
		return 0, false
	}
	ts, err := strconv.ParseInt(t.Value(), 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// IsExpired reports whether ev's expiration tag names a time at or
// before now.
func IsExpired(ev *event.E, now int64) bool {
	ts, ok := ExpiresAt(ev)
	return ok && ts <= now
}

func (e *Expiration) check(_ context.T, ev *event.E, _ policy.ConnState) policy.Result {
	if e.now == nil {
		return policy.Accepted
	}
	if IsExpired(ev, e.now()) {
		return policy.Rejectf(reason.Invalid, "event already expired")
	}
	return policy.Accepted
}
