// Package envelope decodes and encodes the JSON-array wire messages
// client and relay exchange over the WebSocket connection.
package envelope

import (
	"bytes"
	"encoding/json"

	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/encoders/filter"
	"nestrelay.dev/pkg/utils/errorf"
)

// Label identifies the envelope's first array element.
type Label string

const (
	LabelEvent    Label = "EVENT"
	LabelReq      Label = "REQ"
	LabelClose    Label = "CLOSE"
	LabelCount    Label = "COUNT"
	LabelAuth     Label = "AUTH"
	LabelNegOpen  Label = "NEG-OPEN"
	LabelNegMsg   Label = "NEG-MSG"
	LabelNegClose Label = "NEG-CLOSE"
	LabelOK       Label = "OK"
	LabelEOSE     Label = "EOSE"
	LabelClosed   Label = "CLOSED"
	LabelNotice   Label = "NOTICE"
	LabelNegErr   Label = "NEG-ERR"
)

// In is a decoded client-to-relay message.
type In struct {
	Label      Label
	SubID      string
	Event      *event.E
	Filters    filter.S
	NegFilter  string
	NegInitial string
	NegMsg     string
}

// Parse decodes a raw client message into its typed form. It does the
// minimum structural parsing needed to dispatch; deeper validation
// (event schema, filter shape) happens in the policy pipeline and
// filter package respectively.
func Parse(raw []byte) (*In, error) {
	var head []json.RawMessage
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, errorf.E("malformed envelope: %v", err)
	}
	if len(head) == 0 {
		return nil, errorf.E("empty envelope")
	}
	var label string
	if err := json.Unmarshal(head[0], &label); err != nil {
		return nil, errorf.E("envelope label must be a string")
	}
	switch Label(label) {
	case LabelEvent:
		if len(head) < 2 {
			return nil, errorf.E("EVENT requires one argument")
		}
		var ev event.E
		if err := json.Unmarshal(head[1], &ev); err != nil {
			return nil, errorf.E("malformed event: %v", err)
		}
		return &In{Label: LabelEvent, Event: &ev}, nil
	case LabelAuth:
		if len(head) < 2 {
			return nil, errorf.E("AUTH requires one argument")
		}
		var ev event.E
		if err := json.Unmarshal(head[1], &ev); err != nil {
			return nil, errorf.E("malformed auth event: %v", err)
		}
		return &In{Label: LabelAuth, Event: &ev}, nil
	case LabelReq, LabelCount:
		if len(head) < 2 {
			return nil, errorf.E("%s requires a subscription id", label)
		}
		var subID string
		if err := json.Unmarshal(head[1], &subID); err != nil {
			return nil, errorf.E("subscription id must be a string")
		}
		var filters filter.S
		for _, raw := range head[2:] {
			var f filter.T
			if err := json.Unmarshal(raw, &f); err != nil {
				return nil, errorf.E("malformed filter: %v", err)
			}
			filters = append(filters, &f)
		}
		return &In{Label: Label(label), SubID: subID, Filters: filters}, nil
	case LabelClose:
		if len(head) < 2 {
			return nil, errorf.E("CLOSE requires a subscription id")
		}
		var subID string
		if err := json.Unmarshal(head[1], &subID); err != nil {
			return nil, errorf.E("subscription id must be a string")
		}
		return &In{Label: LabelClose, SubID: subID}, nil
	case LabelNegOpen:
		if len(head) < 4 {
			return nil, errorf.E("NEG-OPEN requires subscription id, filter, and initial message")
		}
		var subID, initial string
		if err := json.Unmarshal(head[1], &subID); err != nil {
			return nil, errorf.E("subscription id must be a string")
		}
		if err := json.Unmarshal(head[3], &initial); err != nil {
			return nil, errorf.E("initial message must be a string")
		}
		return &In{Label: LabelNegOpen, SubID: subID, NegFilter: string(head[2]), NegInitial: initial}, nil
	case LabelNegMsg:
		if len(head) < 3 {
			return nil, errorf.E("NEG-MSG requires subscription id and message")
		}
		var subID, msg string
		if err := json.Unmarshal(head[1], &subID); err != nil {
			return nil, errorf.E("subscription id must be a string")
		}
		if err := json.Unmarshal(head[2], &msg); err != nil {
			return nil, errorf.E("neg message must be a string")
		}
		return &In{Label: LabelNegMsg, SubID: subID, NegMsg: msg}, nil
	case LabelNegClose:
		if len(head) < 2 {
			return nil, errorf.E("NEG-CLOSE requires a subscription id")
		}
		var subID string
		if err := json.Unmarshal(head[1], &subID); err != nil {
			return nil, errorf.E("subscription id must be a string")
		}
		return &In{Label: LabelNegClose, SubID: subID}, nil
	default:
		return nil, errorf.E("unknown envelope label %q", label)
	}
}

// marshal is a small helper so every Out* function produces compact,
// non-HTML-escaped JSON consistent with event.Serialize.
func marshal(v []any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// OutEvent builds an ["EVENT", subID, event] frame.
func OutEvent(subID string, ev *event.E) ([]byte, error) {
	return marshal([]any{LabelEvent, subID, ev})
}

// OutOK builds an ["OK", eventID, ok, message] frame.
func OutOK(eventID string, ok bool, message string) ([]byte, error) {
	return marshal([]any{LabelOK, eventID, ok, message})
}

// OutEOSE builds an ["EOSE", subID] frame.
func OutEOSE(subID string) ([]byte, error) {
	return marshal([]any{LabelEOSE, subID})
}

// OutClosed builds a ["CLOSED", subID, message] frame.
func OutClosed(subID string, message string) ([]byte, error) {
	return marshal([]any{LabelClosed, subID, message})
}

// OutNotice builds a ["NOTICE", message] frame.
func OutNotice(message string) ([]byte, error) {
	return marshal([]any{LabelNotice, message})
}

// OutAuth builds an ["AUTH", challenge] frame.
func OutAuth(challenge string) ([]byte, error) {
	return marshal([]any{LabelAuth, challenge})
}

// OutCount builds a ["COUNT", subID, {"count": n}] frame.
func OutCount(subID string, count int64) ([]byte, error) {
	return marshal([]any{LabelCount, subID, map[string]int64{"count": count}})
}

// OutNegMsg builds a ["NEG-MSG", subID, message] frame.
func OutNegMsg(subID, message string) ([]byte, error) {
	return marshal([]any{LabelNegMsg, subID, message})
}

// OutNegErr builds a ["NEG-ERR", subID, message] frame.
func OutNegErr(subID, message string) ([]byte, error) {
	return marshal([]any{LabelNegErr, subID, message})
}
