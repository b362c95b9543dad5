package socketapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	websocket "github.com/fasthttp/websocket"
	"github.com/stretchr/testify/require"

	"nestrelay.dev/pkg/crypto/signer"
	"nestrelay.dev/pkg/database"
	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/negentropy"
	"nestrelay.dev/pkg/policy"
	"nestrelay.dev/pkg/policy/modules"
	"nestrelay.dev/pkg/protocol/socketapi"
	"nestrelay.dev/pkg/protocol/ws"
	"nestrelay.dev/pkg/subscription"
	"nestrelay.dev/pkg/utils/context"
)

const testRelayURL = "ws://relay.test"

// harness wires a real store and policy pipeline to a single upgraded
// connection, exercising the same dispatcher the production server runs.
type harness struct {
	api    *socketapi.A
	client *websocket.Conn
}

func newHarness(t *testing.T, requireAuth bool) *harness {
	t.Helper()
	db, err := database.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	core := modules.NewCore(65536, 2000, 8192, 900, 0, func() int64 { return time.Now().Unix() })
	protected := modules.NewProtected()
	expiration := modules.NewExpiration(func() int64 { return time.Now().Unix() })
	deletion := modules.NewDeletion(db)
	auth := modules.NewAuth(testRelayURL)
	pipeline := policy.NewPipeline(core, protected, expiration, deletion, auth)

	api := &socketapi.A{
		Ctx:               context.Bg(),
		Store:             db,
		Pipeline:          pipeline,
		Subs:              subscription.NewManager(0, 0),
		Neg:               negentropy.NewManager(),
		RelayURL:          testRelayURL,
		RequireAuth:       requireAuth,
		DefaultQueryLimit: 500,
	}

	connCh := make(chan *ws.Listener, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		l := ws.New("conn1", conn)
		connCh <- l
		api.Serve(l)
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case <-connCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
	}
	return &harness{api: api, client: client}
}

func (h *harness) send(t *testing.T, frame []byte) {
	t.Helper()
	require.NoError(t, h.client.WriteMessage(websocket.TextMessage, frame))
}

func (h *harness) recv(t *testing.T) []any {
	t.Helper()
	h.client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := h.client.ReadMessage()
	require.NoError(t, err)
	var out []any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func signedTextNote(t *testing.T, keys *signer.Signer, content string) *event.E {
	t.Helper()
	ev := &event.E{Kind: 1, CreatedAt: time.Now().Unix(), Content: content, Tags: event.Tags{}}
	require.NoError(t, ev.Sign(keys))
	return ev
}

func eventFrame(t *testing.T, ev *event.E) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	frame, err := json.Marshal([]json.RawMessage{json.RawMessage(`"EVENT"`), b})
	require.NoError(t, err)
	return frame
}

func TestEventThenReqRoundTrip(t *testing.T) {
	h := newHarness(t, false)
	keys, err := signer.Generate()
	require.NoError(t, err)
	ev := signedTextNote(t, keys, "hello relay")

	h.send(t, eventFrame(t, ev))
	okMsg := h.recv(t)
	require.Equal(t, "OK", okMsg[0])
	require.Equal(t, ev.ID, okMsg[1])
	require.Equal(t, true, okMsg[2])

	reqFrame, err := json.Marshal([]any{"REQ", "sub1", map[string]any{"kinds": []int{1}}})
	require.NoError(t, err)
	h.send(t, reqFrame)

	evMsg := h.recv(t)
	require.Equal(t, "EVENT", evMsg[0])
	require.Equal(t, "sub1", evMsg[1])

	eoseMsg := h.recv(t)
	require.Equal(t, "EOSE", eoseMsg[0])
	require.Equal(t, "sub1", eoseMsg[1])
}

func TestReqReplayCapsAtSmallestFilterLimit(t *testing.T) {
	h := newHarness(t, false)
	keys, err := signer.Generate()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ev := signedTextNote(t, keys, "note")
		h.send(t, eventFrame(t, ev))
		okMsg := h.recv(t)
		require.Equal(t, "OK", okMsg[0])
		require.Equal(t, true, okMsg[2])
	}

	// Two filters matching the same events, one capped tighter than the
	// other: the replay must honour the smaller of the two.
	reqFrame, err := json.Marshal([]any{
		"REQ", "sub1",
		map[string]any{"authors": []string{keys.PubHex()}, "limit": 1},
		map[string]any{"kinds": []int{1}, "limit": 10},
	})
	require.NoError(t, err)
	h.send(t, reqFrame)

	evMsg := h.recv(t)
	require.Equal(t, "EVENT", evMsg[0])

	eoseMsg := h.recv(t)
	require.Equal(t, "EOSE", eoseMsg[0])
}

func TestProtectedEventWithoutAuthIsRejected(t *testing.T) {
	h := newHarness(t, false)
	keys, err := signer.Generate()
	require.NoError(t, err)
	ev := &event.E{Kind: 1, CreatedAt: time.Now().Unix(), Content: "secret", Tags: event.Tags{{"-"}}}
	require.NoError(t, ev.Sign(keys))

	h.send(t, eventFrame(t, ev))
	okMsg := h.recv(t)
	require.Equal(t, "OK", okMsg[0])
	require.Equal(t, false, okMsg[2])
}

func TestAuthFlowAuthenticatesConnection(t *testing.T) {
	h := newHarness(t, true)
	keys, err := signer.Generate()
	require.NoError(t, err)

	// RequireAuth triggers an AUTH challenge on the first EVENT attempt.
	ev := signedTextNote(t, keys, "needs auth")
	h.send(t, eventFrame(t, ev))

	authMsg := h.recv(t)
	require.Equal(t, "AUTH", authMsg[0])
	challenge, ok := authMsg[1].(string)
	require.True(t, ok)
	require.NotEmpty(t, challenge)

	rejectMsg := h.recv(t)
	require.Equal(t, "OK", rejectMsg[0])
	require.Equal(t, false, rejectMsg[2])

	authEvent := &event.E{
		Kind:      event.KindClientAuth,
		CreatedAt: time.Now().Unix(),
		Tags: event.Tags{
			{"challenge", challenge},
			{"relay", testRelayURL},
		},
	}
	require.NoError(t, authEvent.Sign(keys))
	b, err := json.Marshal(authEvent)
	require.NoError(t, err)
	frame, err := json.Marshal([]json.RawMessage{json.RawMessage(`"AUTH"`), b})
	require.NoError(t, err)
	h.send(t, frame)

	okMsg := h.recv(t)
	require.Equal(t, "OK", okMsg[0])
	require.Equal(t, authEvent.ID, okMsg[1])
	require.Equal(t, true, okMsg[2])

	// a second EVENT from the now-authenticated connection is admitted.
	h.send(t, eventFrame(t, signedTextNote(t, keys, "now authenticated")))
	acceptMsg := h.recv(t)
	require.Equal(t, "OK", acceptMsg[0])
	require.Equal(t, true, acceptMsg[2])
}

func TestCountReturnsStoredEventTally(t *testing.T) {
	h := newHarness(t, false)
	keys, err := signer.Generate()
	require.NoError(t, err)

	h.send(t, eventFrame(t, signedTextNote(t, keys, "one")))
	require.Equal(t, "OK", h.recv(t)[0])
	h.send(t, eventFrame(t, signedTextNote(t, keys, "two")))
	require.Equal(t, "OK", h.recv(t)[0])

	countFrame, err := json.Marshal([]any{"COUNT", "c1", map[string]any{"kinds": []int{1}}})
	require.NoError(t, err)
	h.send(t, countFrame)

	countMsg := h.recv(t)
	require.Equal(t, "COUNT", countMsg[0])
	require.Equal(t, "c1", countMsg[1])
	result, ok := countMsg[2].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(2), result["count"])
}

func TestNegentropyOpenReturnsIDList(t *testing.T) {
	h := newHarness(t, false)
	keys, err := signer.Generate()
	require.NoError(t, err)

	h.send(t, eventFrame(t, signedTextNote(t, keys, "reconcile me")))
	require.Equal(t, "OK", h.recv(t)[0])

	negOpen, err := json.Marshal([]any{
		"NEG-OPEN", "n1", map[string]any{"kinds": []int{1}}, "",
	})
	require.NoError(t, err)
	h.send(t, negOpen)

	negMsg := h.recv(t)
	require.Equal(t, "NEG-MSG", negMsg[0])
	require.Equal(t, "n1", negMsg[1])
	idList, ok := negMsg[2].(string)
	require.True(t, ok)
	require.NotEmpty(t, idList)

	negClose, err := json.Marshal([]any{"NEG-CLOSE", "n1"})
	require.NoError(t, err)
	h.send(t, negClose)
}
