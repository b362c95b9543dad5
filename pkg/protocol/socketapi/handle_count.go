package socketapi

import (
	"nestrelay.dev/pkg/encoders/envelope"
	"nestrelay.dev/pkg/encoders/filter"
	"nestrelay.dev/pkg/metrics"
	"nestrelay.dev/pkg/protocol/ws"
	"nestrelay.dev/pkg/utils/chk"
)

func (a *A) handleCount(l *ws.Listener, subID string, filters filter.S) {
	if len(filters) == 0 {
		a.closed(l, subID, "invalid: at least one filter is required")
		return
	}
	n, err := a.Store.Count(a.Ctx, filters)
	metrics.QueriesServed.Inc()
	if chk.E(err) {
		a.closed(l, subID, "error: count failed")
		return
	}
	b, err := envelope.OutCount(subID, n)
	if chk.E(err) {
		return
	}
	chk.W(l.Write(b))
}
