package socketapi

import (
	"encoding/json"

	"nestrelay.dev/pkg/encoders/envelope"
	"nestrelay.dev/pkg/encoders/filter"
	"nestrelay.dev/pkg/negentropy"
	"nestrelay.dev/pkg/protocol/ws"
	"nestrelay.dev/pkg/utils/chk"
)

func (a *A) negErr(l *ws.Listener, subID, message string) {
	b, err := envelope.OutNegErr(subID, message)
	if chk.E(err) {
		return
	}
	chk.W(l.Write(b))
}

func (a *A) negMsg(l *ws.Listener, subID, message string) {
	b, err := envelope.OutNegMsg(subID, message)
	if chk.E(err) {
		return
	}
	chk.W(l.Write(b))
}

func (a *A) handleNegOpen(l *ws.Listener, subID, filterJSON, initial string) {
	var f filter.T
	if err := json.Unmarshal([]byte(filterJSON), &f); err != nil {
		a.negErr(l, subID, "invalid: malformed filter")
		return
	}
	evs, err := a.Store.Query(a.Ctx, filter.S{&f})
	if chk.E(err) {
		a.negErr(l, subID, "error: query failed")
		return
	}
	ids := make([]string, 0, len(evs))
	for _, ev := range evs {
		ids = append(ids, ev.ID)
	}
	sess, err := a.Neg.Open(l.ID(), subID, &f, ids, initial)
	if err != nil {
		a.negErr(l, subID, "rate-limited: "+err.Error())
		return
	}
	a.negMsg(l, subID, negentropy.EncodeIDList(sess.Have()))
}

func (a *A) handleNegMsg(l *ws.Listener, subID, msg string) {
	more, err := negentropy.DecodeIDList(msg)
	if err != nil {
		a.negErr(l, subID, "invalid: "+err.Error())
		return
	}
	sess, ok := a.Neg.Update(l.ID(), subID, more)
	if !ok {
		a.negErr(l, subID, "invalid: no open negentropy session with that id")
		return
	}
	a.negMsg(l, subID, negentropy.EncodeIDList(sess.Have()))
}

func (a *A) handleNegClose(l *ws.Listener, subID string) {
	a.Neg.Close(l.ID(), subID)
}
