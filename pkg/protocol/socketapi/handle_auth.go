package socketapi

import (
	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/policy"
	"nestrelay.dev/pkg/protocol/ws"
)

// handleAuth routes an AUTH message through the same policy pipeline as
// EVENT, so the nip42-auth module's validation runs alongside everything
// else the pipeline already knows how to do (ACL, size limits, logging).
// A well-formed auth event resolves to Shadow, not Accept — it is never
// stored or broadcast.
func (a *A) handleAuth(l *ws.Listener, ev *event.E) {
	r := a.Pipeline.Admit(a.Ctx, ev, a.connState(l))
	if r.Verdict == policy.Reject {
		a.ok(l, ev.ID, false, r.Reason)
		return
	}
	a.ok(l, ev.ID, true, "")
}
