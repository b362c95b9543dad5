package ws

import (
	"net/http"
	"time"

	"github.com/fasthttp/websocket"
)

// Upgrader is the shared websocket.Upgrader every incoming connection is
// promoted through. CheckOrigin is permissive: Nostr clients are
// browser extensions and native apps alike, and origin enforcement for a
// public relay belongs to the reverse proxy in front of it, if any.
var Upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   4096,
	WriteBufferSize:  4096,
	CheckOrigin:      func(r *http.Request) bool { return true },
}
