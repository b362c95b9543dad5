// Package httpauth implements NIP-98 HTTP Auth, used to gate the
// NIP-86 relay-management endpoint: a kind 27235 event signs the
// request's method and URL, carried in an "Authorization: Nostr
// <base64-event>" header.
package httpauth

import (
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"encoding/json"

	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/utils/errorf"
)

// Window bounds how far a NIP-98 event's created_at may drift from
// wall-clock time.
const Window = 60 * time.Second

// Validate checks the Authorization header of r against NIP-98 and
// returns the requesting pubkey.
func Validate(r *http.Request, body []byte) (string, error) {
	hdr := r.Header.Get("Authorization")
	const prefix = "Nostr "
	if !strings.HasPrefix(hdr, prefix) {
		return "", errorf.E("missing Nostr authorization header")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(hdr, prefix))
	if err != nil {
		return "", errorf.E("malformed authorization header: %v", err)
	}
	var ev event.E
	if err = json.Unmarshal(raw, &ev); err != nil {
		return "", errorf.E("malformed auth event: %v", err)
	}
	if ev.Kind != event.KindHTTPAuth {
		return "", errorf.E("auth event must be kind %d", event.KindHTTPAuth)
	}
	ok, err := ev.Verify()
	if err != nil || !ok {
		return "", errorf.E("auth event signature invalid")
	}
	now := time.Now()
	if abs(now.Unix()-ev.CreatedAt) > int64(Window.Seconds()) {
		return "", errorf.E("auth event created_at outside acceptable window")
	}
	u := ev.Tags.GetFirst("u")
	if u == nil || u.Value() != requestURL(r) {
		return "", errorf.E("auth event url does not match request")
	}
	m := ev.Tags.GetFirst("method")
	if m == nil || !strings.EqualFold(m.Value(), r.Method) {
		return "", errorf.E("auth event method does not match request")
	}
	if len(body) > 0 {
		if pt := ev.Tags.GetFirst("payload"); pt != nil {
			sum := sha256.Sum256(body)
			if pt.Value() != hexEncode(sum[:]) {
				return "", errorf.E("auth event payload hash does not match request body")
			}
		}
	}
	return ev.PubKey, nil
}

func requestURL(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}
