package modules

import (
	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/encoders/reason"
	"nestrelay.dev/pkg/policy"
	"nestrelay.dev/pkg/utils/context"
)

// Protected implements NIP-70: an event carrying a "-" tag may only be
// published by a connection that has authenticated (NIP-42) as the
// event's own author.
type Protected struct{}

func NewProtected() *Protected { return &Protected{} }

func (p *Protected) Name() string { return "nip70-protected" }
func (p *Protected) NIPs() []int  { return []int{70} }
func (p *Protected) Policies() []policy.Policy {
	return []policy.Policy{p.check}
}

func (p *Protected) check(_ context.T, ev *event.E, conn policy.ConnState) policy.Result {
	if ev.Tags.GetFirst("-") == nil {
		return policy.Accepted
	}
	if !conn.Authed {
		return policy.Rejectf(reason.AuthRequired, "this event may only be published by its author")
	}
	if conn.AuthedPub != ev.PubKey {
		return policy.Rejectf(reason.Blocked, "this event may only be published by its author")
	}
	return policy.Accepted
}
