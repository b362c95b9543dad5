package socketapi

import (
	"time"

	"nestrelay.dev/pkg/encoders/envelope"
	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/protocol/ws"
	"nestrelay.dev/pkg/utils/chk"
)

const (
	labelEvent    = envelope.LabelEvent
	labelAuth     = envelope.LabelAuth
	labelReq      = envelope.LabelReq
	labelClose    = envelope.LabelClose
	labelCount    = envelope.LabelCount
	labelNegOpen  = envelope.LabelNegOpen
	labelNegMsg   = envelope.LabelNegMsg
	labelNegClose = envelope.LabelNegClose
)

func outEvent(sub string, ev *event.E) ([]byte, error) { return envelope.OutEvent(sub, ev) }

// parseAndReport decodes raw and, on failure, sends the client a NOTICE
// describing the problem rather than silently dropping the connection.
func parseAndReport(l *ws.Listener, raw []byte) (*envelope.In, error) {
	in, err := envelope.Parse(raw)
	if err != nil {
		if b, mErr := envelope.OutNotice(err.Error()); mErr == nil {
			chk.W(l.Write(b))
		}
		return nil, err
	}
	return in, nil
}

func (a *A) pinger(l *ws.Listener, stop <-chan struct{}) {
	t := time.NewTicker(ws.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if chk.W(l.Ping()) {
				return
			}
		}
	}
}
