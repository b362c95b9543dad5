// Package relay wires every other package into a runnable server: the
// store, the policy pipeline, the subscription and negentropy managers,
// and the HTTP surface (WebSocket upgrade, NIP-11 info document,
// NIP-86 admin, and Prometheus metrics).
package relay

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"nestrelay.dev/pkg/config"
	"nestrelay.dev/pkg/database"
	"nestrelay.dev/pkg/encoders/filter"
	"nestrelay.dev/pkg/interfaces/store"
	"nestrelay.dev/pkg/metrics"
	"nestrelay.dev/pkg/negentropy"
	"nestrelay.dev/pkg/policy"
	"nestrelay.dev/pkg/policy/modules"
	"nestrelay.dev/pkg/protocol/relayinfo"
	"nestrelay.dev/pkg/protocol/socketapi"
	"nestrelay.dev/pkg/protocol/ws"
	"nestrelay.dev/pkg/subscription"
	"nestrelay.dev/pkg/utils/chk"
	nscontext "nestrelay.dev/pkg/utils/context"
	"nestrelay.dev/pkg/utils/log"
	"nestrelay.dev/pkg/version"
)

// storeSizePollInterval is how often Relay refreshes the
// nestrelay_store_size_events gauge from a full-table Count.
const storeSizePollInterval = 30 * time.Second

// Relay owns every long-lived component and exposes the HTTP handlers
// that drive them.
type Relay struct {
	Cfg      *config.C
	Store    store.I
	Pipeline *policy.Pipeline
	Subs     *subscription.Manager
	Neg      *negentropy.Manager
	ACL      *modules.ACList
	Socket   *socketapi.A
	URL      string

	stopMetrics chan struct{}
}

// New opens the store, builds the policy pipeline from cfg, and wires
// every manager together. Callers get back a Relay ready for Router().
func New(cfg *config.C, relayURL string) (*Relay, error) {
	db, err := database.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	acl := modules.NewACList(cfg.Allowlist, cfg.Blocklist)
	core := modules.NewCore(cfg.MaxContentLength, cfg.MaxTags, cfg.MaxTagValueLen,
		cfg.FutureDriftSecs, cfg.PastDriftSecs, unixNow)
	deletion := modules.NewDeletion(db)
	protected := modules.NewProtected()
	expiration := modules.NewExpiration(unixNow)
	auth := modules.NewAuth(relayURL)

	// These NIPs are implemented in storage, transport, and the HTTP
	// surface rather than as admission policies, so they carry no
	// Policies() of their own; Static just puts them on the NIP-11
	// document.
	replaceable := modules.NewStatic("nip16-33-replaceable", 16, 33)
	info := modules.NewStatic("nip11-info", 11)
	count := modules.NewStatic("nip45-count", 45)
	search := modules.NewStatic("nip50-search", 50)
	negentropySync := modules.NewStatic("nip77-negentropy", 77)
	admin := modules.NewStatic("nip86-admin", 86)
	httpAuth := modules.NewStatic("nip98-http-auth", 98)

	pipeline := policy.NewPipeline(core, acl, protected, expiration, deletion, auth,
		replaceable, info, count, search, negentropySync, admin, httpAuth)

	subs := subscription.NewManager(cfg.MaxSubscriptionsPerConn, cfg.MaxFiltersPerSub)
	neg := negentropy.NewManager()

	r := &Relay{
		Cfg:      cfg,
		Store:    db,
		Pipeline: pipeline,
		Subs:     subs,
		Neg:      neg,
		ACL:      acl,
		URL:      relayURL,
	}
	r.Socket = &socketapi.A{
		Ctx:               nscontext.Bg(),
		Store:             db,
		Pipeline:          pipeline,
		Subs:              subs,
		Neg:               neg,
		RelayURL:          relayURL,
		RequireAuth:       cfg.RequireAuth,
		DefaultQueryLimit: cfg.DefaultQueryLimit,
	}
	r.stopMetrics = make(chan struct{})
	go r.pollStoreSize()
	return r, nil
}

func unixNow() int64 { return time.Now().Unix() }

// pollStoreSize periodically refreshes the store-size gauge; the
// all-events count is expensive on a large store, hence the long
// interval rather than updating it per write.
func (r *Relay) pollStoreSize() {
	t := time.NewTicker(storeSizePollInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			n, err := r.Store.Count(nscontext.Bg(), filter.S{{}})
			if chk.E(err) {
				continue
			}
			metrics.StoreSizeEvents.Set(float64(n))
		case <-r.stopMetrics:
			return
		}
	}
}

// Close releases the underlying store.
func (r *Relay) Close() error {
	close(r.stopMetrics)
	return r.Store.Close()
}

// Router builds the full HTTP handler: WebSocket upgrade and NIP-11 info
// share the root path (content-negotiated), /admin carries the NIP-86
// JSON-RPC surface, and /metrics exposes Prometheus metrics.
func (r *Relay) Router() http.Handler {
	mux := chi.NewRouter()
	mux.Use(cors.New(cors.Options{
		AllowedOrigins: r.Cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler)

	mux.Get("/", r.handleRoot)
	mux.Handle("/metrics", promhttp.Handler())
	r.mountAdmin(mux)

	return mux
}

func (r *Relay) handleRoot(w http.ResponseWriter, req *http.Request) {
	if req.Header.Get("Accept") == "application/nostr+json" {
		r.handleInfo(w, req)
		return
	}
	conn, err := ws.Upgrader.Upgrade(w, req, nil)
	if chk.E(err) {
		return
	}
	l := ws.New(connID(), conn)
	log.D.F("connection opened: %s", l.RealRemote())
	go r.Socket.Serve(l)
}

func (r *Relay) handleInfo(w http.ResponseWriter, _ *http.Request) {
	nips, limitations := r.Pipeline.Info()
	doc := relayinfo.NewBuilder(r.Cfg.RelayName, r.Cfg.RelayDescription, version.URL, version.V,
		r.Cfg.RelayPubkey, r.Cfg.RelayContact).
		WithNIPs(nips).
		WithLimitations(limitations).
		Build()
	w.Header().Set("Content-Type", "application/nostr+json")
	chk.E(writeJSON(w, doc))
}

func writeJSON(w http.ResponseWriter, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func connID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
