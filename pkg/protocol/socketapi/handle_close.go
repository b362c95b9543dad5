package socketapi

import "nestrelay.dev/pkg/protocol/ws"

func (a *A) handleClose(l *ws.Listener, subID string) {
	a.Subs.Close(l, subID)
}
