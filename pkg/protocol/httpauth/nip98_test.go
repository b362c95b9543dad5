package httpauth_test

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nestrelay.dev/pkg/crypto/signer"
	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/protocol/httpauth"
)

func authHeader(t *testing.T, keys *signer.Signer, method, url string, body []byte) string {
	t.Helper()
	tags := event.Tags{
		{"u", url},
		{"method", method},
	}
	if len(body) > 0 {
		sum := sha256.Sum256(body)
		tags = append(tags, event.Tag{"payload", hexString(sum[:])})
	}
	ev := &event.E{
		Kind:      event.KindHTTPAuth,
		CreatedAt: time.Now().Unix(),
		Tags:      tags,
	}
	require.NoError(t, ev.Sign(keys))
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	return "Nostr " + base64.StdEncoding.EncodeToString(raw)
}

func hexString(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}

func TestValidateAcceptsMatchingRequest(t *testing.T) {
	keys, err := signer.Generate()
	require.NoError(t, err)
	body := []byte(`{"method":"supportedmethods"}`)
	req := httptest.NewRequest(http.MethodPost, "http://relay.example/admin", nil)
	req.Header.Set("Authorization", authHeader(t, keys, http.MethodPost, "http://relay.example/admin", body))

	pub, err := httpauth.Validate(req, body)
	require.NoError(t, err)
	require.Equal(t, keys.PubHex(), pub)
}

func TestValidateRejectsMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "http://relay.example/admin", nil)
	_, err := httpauth.Validate(req, nil)
	require.Error(t, err)
}

func TestValidateRejectsMismatchedMethod(t *testing.T) {
	keys, err := signer.Generate()
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "http://relay.example/admin", nil)
	req.Header.Set("Authorization", authHeader(t, keys, http.MethodPost, "http://relay.example/admin", nil))

	_, err = httpauth.Validate(req, nil)
	require.Error(t, err)
}

func TestValidateRejectsTamperedBody(t *testing.T) {
	keys, err := signer.Generate()
	require.NoError(t, err)
	body := []byte(`{"method":"supportedmethods"}`)
	req := httptest.NewRequest(http.MethodPost, "http://relay.example/admin", nil)
	req.Header.Set("Authorization", authHeader(t, keys, http.MethodPost, "http://relay.example/admin", body))

	_, err = httpauth.Validate(req, []byte(`{"method":"banevent"}`))
	require.Error(t, err)
}
