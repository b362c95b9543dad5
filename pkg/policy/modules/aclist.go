package modules

import (
	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/encoders/reason"
	"nestrelay.dev/pkg/policy"
	"nestrelay.dev/pkg/utils/context"
)

// ACList enforces an optional allowlist or blocklist of author pubkeys.
// When Allowlist is non-empty it is authoritative and Blocklist is
// ignored.
type ACList struct {
	Allowlist map[string]bool
	Blocklist map[string]bool
}

func NewACList(allow, block []string) *ACList {
	a := &ACList{Allowlist: map[string]bool{}, Blocklist: map[string]bool{}}
	for _, p := range allow {
		a.Allowlist[p] = true
	}
	for _, p := range block {
		a.Blocklist[p] = true
	}
	return a
}

func (a *ACList) Name() string { return "aclist" }
func (a *ACList) NIPs() []int  { return nil }
func (a *ACList) Policies() []policy.Policy {
	return []policy.Policy{a.check}
}

// Allow adds a pubkey to the allowlist at runtime (NIP-86 admin).
func (a *ACList) Allow(pubkey string) {
	a.Allowlist[pubkey] = true
	delete(a.Blocklist, pubkey)
}

// Block adds a pubkey to the blocklist at runtime (NIP-86 admin).
func (a *ACList) Block(pubkey string) {
	a.Blocklist[pubkey] = true
	delete(a.Allowlist, pubkey)
}

// Banned lists every currently blocked pubkey, for NIP-86's
// listbannedpubkeys.
func (a *ACList) Banned() []string {
	out := make([]string, 0, len(a.Blocklist))
	for p := range a.Blocklist {
		out = append(out, p)
	}
	return out
}

func (a *ACList) check(_ context.T, ev *event.E, _ policy.ConnState) policy.Result {
	if len(a.Allowlist) > 0 {
		if !a.Allowlist[ev.PubKey] {
			return policy.Rejectf(reason.Blocked, "pubkey is not on the allowlist")
		}
		return policy.Accepted
	}
	if a.Blocklist[ev.PubKey] {
		return policy.Rejectf(reason.Blocked, "pubkey is blocked")
	}
	return policy.Accepted
}
