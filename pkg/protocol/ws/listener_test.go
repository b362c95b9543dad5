package ws_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	websocket "github.com/fasthttp/websocket"
	"github.com/stretchr/testify/require"

	"nestrelay.dev/pkg/protocol/ws"
)

// dialPair spins up an httptest server that upgrades every request and
// hands the test both sides of the resulting connection: the server's
// *ws.Listener and a raw client *websocket.Conn to drive it from.
func dialPair(t *testing.T) (*ws.Listener, *websocket.Conn) {
	t.Helper()
	serverConnCh := make(chan *ws.Listener, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConnCh <- ws.New("test-conn", conn)
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	var l *ws.Listener
	select {
	case l = <-serverConnCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server never upgraded the connection")
	}
	return l, client
}

func TestListenerWriteIsReadByClient(t *testing.T) {
	l, client := dialPair(t)
	require.NoError(t, l.Write([]byte(`["NOTICE","hello"]`)))

	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, `["NOTICE","hello"]`, string(data))
}

func TestListenerReadMessageReceivesClientFrame(t *testing.T) {
	l, client := dialPair(t)
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`["REQ","sub1",{}]`)))

	data, err := l.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, `["REQ","sub1",{}]`, string(data))
}

func TestListenerAuthState(t *testing.T) {
	l, _ := dialPair(t)
	require.False(t, l.IsAuthed())
	require.Empty(t, l.AuthedPubkey())
	require.NotEmpty(t, l.Challenge())

	l.SetAuthed("some-pubkey")
	require.True(t, l.IsAuthed())
	require.Equal(t, "some-pubkey", l.AuthedPubkey())

	require.False(t, l.AuthRequested())
	l.SetAuthRequested()
	require.True(t, l.AuthRequested())
}

func TestListenerIDAndClose(t *testing.T) {
	l, _ := dialPair(t)
	require.Equal(t, "test-conn", l.ID())
	require.NoError(t, l.Close())
}
