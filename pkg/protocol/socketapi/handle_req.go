package socketapi

import (
	"nestrelay.dev/pkg/encoders/envelope"
	"nestrelay.dev/pkg/encoders/filter"
	"nestrelay.dev/pkg/metrics"
	"nestrelay.dev/pkg/protocol/ws"
	"nestrelay.dev/pkg/subscription"
	"nestrelay.dev/pkg/utils/chk"
)

func (a *A) handleReq(l *ws.Listener, subID string, filters filter.S) {
	if len(filters) == 0 {
		a.closed(l, subID, "invalid: at least one filter is required")
		return
	}
	for _, f := range filters {
		if f.Limit == nil {
			lim := a.DefaultQueryLimit
			f.Limit = &lim
		}
	}

	evs, err := a.Store.Query(a.Ctx, filters)
	metrics.QueriesServed.Inc()
	if chk.E(err) {
		a.closed(l, subID, "error: query failed")
		return
	}
	// The initial replay for a subscription is capped again, by the
	// smallest limit across its filters, on top of whatever cap Query
	// itself already applied.
	if n, ok := filters.SmallestLimit(); ok && len(evs) > n {
		evs = evs[:n]
	}
	for _, ev := range evs {
		if !subscription.Visible(ev, l) {
			continue
		}
		b, err := outEvent(subID, ev)
		if chk.E(err) {
			continue
		}
		if chk.W(l.Write(b)) {
			return
		}
	}

	a.eose(l, subID)

	if allIdsOnly(filters) {
		// an id names exactly one immutable event; once the store has
		// answered for every id there is nothing further this
		// subscription could ever receive.
		a.closed(l, subID, "")
		return
	}

	if err := a.Subs.Open(l, deliverer{l}, subID, filters); err != nil {
		a.closed(l, subID, "rate-limited: "+err.Error())
	}
}

// allIdsOnly reports whether every filter in the set only ever matches
// via exact id lookup.
func allIdsOnly(filters filter.S) bool {
	for _, f := range filters {
		if !f.IsIdsOnly() {
			return false
		}
	}
	return true
}

func (a *A) eose(l *ws.Listener, subID string) {
	b, err := envelope.OutEOSE(subID)
	if chk.E(err) {
		return
	}
	chk.W(l.Write(b))
}

func (a *A) closed(l *ws.Listener, subID, message string) {
	b, err := envelope.OutClosed(subID, message)
	if chk.E(err) {
		return
	}
	chk.W(l.Write(b))
}
