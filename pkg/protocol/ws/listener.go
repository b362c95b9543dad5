// Package ws wraps a single upgraded WebSocket connection with the
// auth/subscription state the rest of the relay needs to hang off it.
package ws

import (
	"net"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"go.uber.org/atomic"

	"nestrelay.dev/pkg/protocol/auth"
)

// PingInterval and PongWait bound the connection's keepalive loop.
const (
	PingInterval = 30 * time.Second
	PongWait     = 60 * time.Second
	WriteWait    = 10 * time.Second
)

// Listener is one client connection's live state.
type Listener struct {
	conn *websocket.Conn
	id   string

	writeMu sync.Mutex

	authed        atomic.Bool
	authedPubkey  atomic.String
	challenge     atomic.String
	authRequested atomic.Bool
}

// New wraps an already-upgraded websocket connection.
func New(id string, conn *websocket.Conn) *Listener {
	l := &Listener{conn: conn, id: id}
	l.challenge.Store(auth.GenerateChallenge())
	conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PongWait))
	})
	return l
}

// ID returns the connection's unique identifier (subscription.Conn).
func (l *Listener) ID() string { return l.id }

// RealRemote returns the remote address reported by the network layer.
func (l *Listener) RealRemote() string {
	if tcp, ok := l.conn.RemoteAddr().(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	return l.conn.RemoteAddr().String()
}

// Write sends a pre-encoded text frame, safe for concurrent callers.
func (l *Listener) Write(b []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	l.conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return l.conn.WriteMessage(websocket.TextMessage, b)
}

// Ping sends a ping control frame.
func (l *Listener) Ping() error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	l.conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return l.conn.WriteMessage(websocket.PingMessage, nil)
}

// ReadMessage blocks for the next text frame from the client.
func (l *Listener) ReadMessage() ([]byte, error) {
	_, data, err := l.conn.ReadMessage()
	return data, err
}

// Close closes the underlying connection.
func (l *Listener) Close() error { return l.conn.Close() }

// IsAuthed reports whether this connection has completed NIP-42 auth.
func (l *Listener) IsAuthed() bool { return l.authed.Load() }

// SetAuthed marks the connection authenticated as pubkey.
func (l *Listener) SetAuthed(pubkey string) {
	l.authedPubkey.Store(pubkey)
	l.authed.Store(true)
}

// AuthedPubkey returns the pubkey this connection authenticated as, or
// "" if it has not authenticated.
func (l *Listener) AuthedPubkey() string { return l.authedPubkey.Load() }

// Challenge returns this connection's NIP-42 challenge string.
func (l *Listener) Challenge() string { return l.challenge.Load() }

// AuthRequested reports whether an AUTH challenge has already been sent.
func (l *Listener) AuthRequested() bool { return l.authRequested.Load() }

// SetAuthRequested marks that the AUTH challenge has been sent.
func (l *Listener) SetAuthRequested() { l.authRequested.Store(true) }
