// Package socketapi dispatches decoded wire envelopes against the
// store, policy pipeline, subscription manager, and negentropy sessions
// for a single WebSocket connection.
//
// Messages are processed synchronously, one at a time, in the order the
// client sent them, so a client's own messages are always handled in
// order — a goroutine-per-message dispatch cannot provide that without
// additional sequencing.
package socketapi

import (
	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/interfaces/store"
	"nestrelay.dev/pkg/metrics"
	"nestrelay.dev/pkg/negentropy"
	"nestrelay.dev/pkg/policy"
	"nestrelay.dev/pkg/protocol/ws"
	"nestrelay.dev/pkg/subscription"
	"nestrelay.dev/pkg/utils/chk"
	"nestrelay.dev/pkg/utils/context"
	"nestrelay.dev/pkg/utils/log"
)

// A is the per-relay dispatcher shared by every connection.
type A struct {
	Ctx      context.T
	Store    store.I
	Pipeline *policy.Pipeline
	Subs     *subscription.Manager
	Neg      *negentropy.Manager
	RelayURL string

	RequireAuth       bool
	DefaultQueryLimit int
}

// Serve runs the read loop for one upgraded connection until it closes.
// It also starts the ping keepalive goroutine and tears down the
// connection's subscriptions and negentropy sessions on exit.
func (a *A) Serve(l *ws.Listener) {
	metrics.ConnectionsOpen.Inc()
	defer metrics.ConnectionsOpen.Dec()
	defer a.Subs.CloseAll(l)
	defer a.Neg.CloseAll(l.ID())
	defer l.Close()

	stop := make(chan struct{})
	go a.pinger(l, stop)
	defer close(stop)

	for {
		raw, err := l.ReadMessage()
		if err != nil {
			return
		}
		a.HandleMessage(l, raw)
	}
}

// HandleMessage decodes and dispatches a single client message.
func (a *A) HandleMessage(l *ws.Listener, raw []byte) {
	in, err := parseAndReport(l, raw)
	if err != nil || in == nil {
		return
	}
	switch in.Label {
	case labelEvent:
		a.handleEvent(l, in.Event)
	case labelAuth:
		a.handleAuth(l, in.Event)
	case labelReq:
		a.handleReq(l, in.SubID, in.Filters)
	case labelClose:
		a.handleClose(l, in.SubID)
	case labelCount:
		a.handleCount(l, in.SubID, in.Filters)
	case labelNegOpen:
		a.handleNegOpen(l, in.SubID, in.NegFilter, in.NegInitial)
	case labelNegMsg:
		a.handleNegMsg(l, in.SubID, in.NegMsg)
	case labelNegClose:
		a.handleNegClose(l, in.SubID)
	}
}

// connState snapshots the connection's current auth status for the
// policy pipeline.
func (a *A) connState(l *ws.Listener) policy.ConnState {
	return policy.ConnState{
		Authed:    l.IsAuthed(),
		AuthedPub: l.AuthedPubkey(),
		Challenge: l.Challenge(),
		SetAuthed: l.SetAuthed,
	}
}

// deliverer adapts a *ws.Listener to subscription.Deliverer.
type deliverer struct{ l *ws.Listener }

func (d deliverer) DeliverEvent(sub string, ev *event.E) {
	b, err := outEvent(sub, ev)
	if chk.E(err) {
		return
	}
	if chk.W(d.l.Write(b)) {
		log.D.F("dropped event for slow connection %s", d.l.ID())
	}
}
