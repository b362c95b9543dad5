package socketapi

import (
	"nestrelay.dev/pkg/database"
	"nestrelay.dev/pkg/encoders/envelope"
	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/encoders/reason"
	"nestrelay.dev/pkg/metrics"
	"nestrelay.dev/pkg/policy"
	"nestrelay.dev/pkg/protocol/ws"
	"nestrelay.dev/pkg/utils/chk"
)

func (a *A) ok(l *ws.Listener, eventID string, ok bool, message string) {
	b, err := envelope.OutOK(eventID, ok, message)
	if chk.E(err) {
		return
	}
	chk.W(l.Write(b))
}

func (a *A) handleEvent(l *ws.Listener, ev *event.E) {
	if a.RequireAuth && !l.IsAuthed() {
		a.requestAuth(l)
		a.ok(l, ev.ID, false, reason.AuthRequired.F("this relay requires authentication"))
		return
	}

	conn := a.connState(l)
	r := a.Pipeline.Admit(a.Ctx, ev, conn)
	switch r.Verdict {
	case policy.Reject:
		metrics.EventsRejected.WithLabelValues(rejectLabel(r.Reason)).Inc()
		a.ok(l, ev.ID, false, r.Reason)
		return
	case policy.Shadow:
		a.ok(l, ev.ID, true, "")
		return
	}

	if err := a.store(ev); err != nil {
		if err == database.ErrDuplicate {
			a.ok(l, ev.ID, true, reason.Duplicate.F("already have this event"))
			return
		}
		a.ok(l, ev.ID, false, reason.Error.F("%v", err))
		return
	}

	metrics.EventsAdmitted.Inc()
	a.Pipeline.NotifyStored(a.Ctx, ev)
	a.ok(l, ev.ID, true, "")
	a.Subs.Broadcast(ev)
}

// rejectLabel extracts the "prefix" portion of a reason string for the
// metrics label, falling back to "unknown" when unrecognized.
func rejectLabel(r string) string {
	for i := 0; i < len(r); i++ {
		if r[i] == ':' {
			return r[:i]
		}
	}
	return "unknown"
}

// store persists ev through the appropriate path for its kind
// classification; ephemeral events are never stored.
func (a *A) store(ev *event.E) error {
	switch {
	case ev.Kind.IsEphemeral():
		return nil
	case ev.Kind.IsReplaceable():
		return a.Store.SaveReplaceable(a.Ctx, ev)
	case ev.Kind.IsAddressable():
		return a.Store.SaveAddressable(a.Ctx, ev)
	default:
		return a.Store.SaveEvent(a.Ctx, ev)
	}
}

func (a *A) requestAuth(l *ws.Listener) {
	if l.AuthRequested() {
		return
	}
	l.SetAuthRequested()
	b, err := envelope.OutAuth(l.Challenge())
	if chk.E(err) {
		return
	}
	chk.W(l.Write(b))
}
