package modules

import (
	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/encoders/reason"
	"nestrelay.dev/pkg/policy"
	"nestrelay.dev/pkg/protocol/auth"
	"nestrelay.dev/pkg/utils/context"
)

// Auth implements NIP-42: a kind 22242 event sent over the EVENT path
// answers the connection's challenge and authenticates it. It never
// reaches storage — PreStore only runs after Policies accept, and this
// module's policy settles every kind-22242 event itself with a Shadow
// verdict, so the admission pipeline never gets that far for an AUTH
// event.
type Auth struct {
	RelayURL string
}

func NewAuth(relayURL string) *Auth { return &Auth{RelayURL: relayURL} }

func (a *Auth) Name() string { return "nip42-auth" }
func (a *Auth) NIPs() []int  { return []int{42} }
func (a *Auth) Policies() []policy.Policy {
	return []policy.Policy{a.check}
}

func (a *Auth) check(_ context.T, ev *event.E, conn policy.ConnState) policy.Result {
	if ev.Kind != event.KindClientAuth {
		return policy.Accepted
	}
	pubkey, err := auth.Validate(ev, conn.Challenge, a.RelayURL)
	if err != nil {
		return policy.Rejectf(reason.Invalid, "%v", err)
	}
	if conn.SetAuthed != nil {
		conn.SetAuthed(pubkey)
	}
	return policy.Result{Verdict: policy.Shadow}
}
