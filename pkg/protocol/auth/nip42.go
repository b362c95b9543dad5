// Package auth implements NIP-42 relay-requested authentication: a
// per-connection challenge string, and validation of the signed kind
// 22242 event a client sends back in an AUTH message.
package auth

import (
	"net/url"
	"time"

	"lukechampine.com/frand"

	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/encoders/hexutil"
	"nestrelay.dev/pkg/utils/errorf"
)

// ChallengeWindow bounds how far a kind 22242 event's created_at may
// drift from wall-clock time before it is rejected as stale or replayed.
const ChallengeWindow = 10 * time.Minute

// GenerateChallenge returns a fresh random challenge string for a
// connection to embed in its AUTH request.
func GenerateChallenge() string {
	b := frand.Bytes(16)
	return hexutil.Encode(b)
}

// Validate checks that ev is a well-formed NIP-42 auth event answering
// challenge for relayURL, and returns the authenticated pubkey.
func Validate(ev *event.E, challenge, relayURL string) (string, error) {
	if ev.Kind != event.KindClientAuth {
		return "", errorf.E("auth event must be kind %d", event.KindClientAuth)
	}
	ok, err := ev.Verify()
	if err != nil || !ok {
		return "", errorf.E("auth event signature invalid")
	}
	if t := ev.Tags.GetFirst("challenge"); t == nil || t.Value() != challenge {
		return "", errorf.E("auth event challenge does not match")
	}
	relTag := ev.Tags.GetFirst("relay")
	if relTag == nil {
		return "", errorf.E("auth event missing relay tag")
	}
	if !sameRelay(relTag.Value(), relayURL) {
		return "", errorf.E("auth event relay tag does not match this relay")
	}
	now := time.Now().Unix()
	if ev.CreatedAt < now-int64(ChallengeWindow.Seconds()) || ev.CreatedAt > now+int64(ChallengeWindow.Seconds()) {
		return "", errorf.E("auth event created_at outside acceptable window")
	}
	return ev.PubKey, nil
}

func sameRelay(a, b string) bool {
	ua, err1 := url.Parse(a)
	ub, err2 := url.Parse(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return ua.Scheme == ub.Scheme && ua.Host == ub.Host &&
		trimSlash(ua.Path) == trimSlash(ub.Path)
}

func trimSlash(p string) string {
	for len(p) > 0 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}
