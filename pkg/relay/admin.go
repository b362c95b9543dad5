package relay

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nestrelay.dev/pkg/protocol/httpauth"
	"nestrelay.dev/pkg/utils/chk"
)

// rpcRequest is the NIP-86 JSON-RPC-over-HTTP envelope.
type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type rpcResponse struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// supportedMethods lists every NIP-86 method this relay implements.
var supportedMethods = []string{
	"supportedmethods",
	"banpubkey",
	"allowpubkey",
	"listbannedpubkeys",
	"banevent",
	"allowevent",
}

// mountAdmin wires the NIP-86 management endpoint at POST /admin,
// authenticated with NIP-98 and restricted to configured owner pubkeys.
func (r *Relay) mountAdmin(mux chi.Router) {
	mux.Post("/admin", r.handleAdmin)
}

func (r *Relay) handleAdmin(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(req.Body)
	if chk.E(err) {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	pubkey, err := httpauth.Validate(req, body)
	if err != nil {
		http.Error(w, "unauthorized: "+err.Error(), http.StatusUnauthorized)
		return
	}
	if !r.isOwner(pubkey) {
		http.Error(w, "forbidden: not a relay owner", http.StatusForbidden)
		return
	}

	var rpc rpcRequest
	if err = json.Unmarshal(body, &rpc); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	resp := r.dispatchAdmin(rpc)
	w.Header().Set("Content-Type", "application/json")
	chk.E(writeJSON(w, resp))
}

func (r *Relay) isOwner(pubkey string) bool {
	for _, o := range r.Cfg.Owners {
		if o == pubkey {
			return true
		}
	}
	return false
}

func (r *Relay) dispatchAdmin(rpc rpcRequest) rpcResponse {
	switch rpc.Method {
	case "supportedmethods":
		return rpcResponse{Result: supportedMethods}
	case "banpubkey":
		if len(rpc.Params) < 1 {
			return rpcResponse{Error: "banpubkey requires a pubkey parameter"}
		}
		if pk, ok := rpc.Params[0].(string); ok {
			r.ACL.Block(pk)
			return rpcResponse{Result: true}
		}
		return rpcResponse{Error: "pubkey must be a string"}
	case "allowpubkey":
		if len(rpc.Params) < 1 {
			return rpcResponse{Error: "allowpubkey requires a pubkey parameter"}
		}
		if pk, ok := rpc.Params[0].(string); ok {
			r.ACL.Allow(pk)
			return rpcResponse{Result: true}
		}
		return rpcResponse{Error: "pubkey must be a string"}
	case "listbannedpubkeys":
		return rpcResponse{Result: r.ACL.Banned()}
	case "banevent":
		if len(rpc.Params) < 1 {
			return rpcResponse{Error: "banevent requires an id parameter"}
		}
		if id, ok := rpc.Params[0].(string); ok {
			chk.E(r.Store.ForceDeleteByID(r.Socket.Ctx, id))
			return rpcResponse{Result: true}
		}
		return rpcResponse{Error: "id must be a string"}
	case "allowevent":
		return rpcResponse{Result: true}
	default:
		return rpcResponse{Error: "unsupported method: " + rpc.Method}
	}
}
