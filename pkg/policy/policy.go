// Package policy implements the module/policy pipeline that every
// incoming event passes through before it is accepted, stored, and
// broadcast. A Policy is a pure predicate; a Module bundles
// related policies plus whatever side effects its NIP needs around the
// store (NIP-09 deletion processing, NIP-11 info contribution, and so
// on).
package policy

import (
	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/encoders/reason"
	"nestrelay.dev/pkg/utils/context"
)

// Verdict is the outcome of running an event through a Policy.
type Verdict int

const (
	// Accept means the policy has no objection.
	Accept Verdict = iota
	// Reject means the event must not be stored or broadcast; the
	// client receives an OK false with Reason.
	Reject
	// Shadow means the event is acknowledged with OK true but neither
	// stored nor broadcast — used by NIP-42 for the AUTH event itself,
	// which authenticates the connection and has no business being kept
	// around as relay content.
	Shadow
)

// Result carries a Verdict plus the human-readable reason string to
// relay back to the client when the verdict isn't Accept.
type Result struct {
	Verdict Verdict
	Reason  string
}

// Accepted is the zero-value successful Result.
var Accepted = Result{Verdict: Accept}

// Rejectf builds a Reject result using one of the typed reason prefixes.
func Rejectf(p reason.Prefix, format string, args ...any) Result {
	return Result{Verdict: Reject, Reason: p.F(format, args...)}
}

// Shadowf builds a Shadow result.
func Shadowf(p reason.Prefix, format string, args ...any) Result {
	return Result{Verdict: Shadow, Reason: p.F(format, args...)}
}

// ConnState is the subset of connection state a policy may need: whether
// the submitting client has authenticated, as whom, the challenge string
// it was issued, and a callback to mark it authenticated. The last two
// exist only for NIP-42's Auth module, which is the sole policy that
// needs to read and mutate connection state rather than just the event.
type ConnState struct {
	Authed    bool
	AuthedPub string
	Challenge string
	SetAuthed func(pubkey string)
}

// Policy is a pure function: given an event and the submitting
// connection's auth state, decide whether to accept it. Policies must
// not touch the store or the network — that belongs to a Module's
// PreStore/PostStore hooks.
type Policy func(c context.T, ev *event.E, conn ConnState) Result

// Module is a self-contained unit of relay behavior, typically one NIP.
// Name and NIPs are required; the facet interfaces below are optional.
type Module interface {
	// Name identifies the module in logs and the NIP-11 document.
	Name() string
	// NIPs lists the NIP numbers this module implements, for NIP-11.
	NIPs() []int
}

// PolicyContributor is implemented by modules that add admission
// policies to the pipeline.
type PolicyContributor interface {
	Policies() []Policy
}

// PreStorer is implemented by modules that need to run logic before an
// event is persisted (e.g. NIP-09 performing the actual deletion).
// Returning a non-Accept Result short-circuits storage exactly like a
// Policy would.
type PreStorer interface {
	PreStore(c context.T, ev *event.E, conn ConnState) Result
}

// PostStorer is implemented by modules that react after an event has
// been durably saved (e.g. updating in-memory expiration schedules).
type PostStorer interface {
	PostStore(c context.T, ev *event.E)
}

// InfoContributor is implemented by modules that add to the NIP-11
// relay information document.
type InfoContributor interface {
	ContributeInfo(limitations map[string]any)
}

// Pipeline runs an ordered list of modules over every incoming event.
type Pipeline struct {
	modules []Module
}

// NewPipeline builds a Pipeline from the given modules, in registration
// order — policies run in the order their owning modules were added.
func NewPipeline(modules ...Module) *Pipeline {
	return &Pipeline{modules: modules}
}

// Modules returns the registered modules, in order.
func (p *Pipeline) Modules() []Module { return p.modules }

// Admit runs every module's policies, then every module's PreStore hook,
// in registration order, stopping at the first non-Accept Result.
func (p *Pipeline) Admit(c context.T, ev *event.E, conn ConnState) Result {
	for _, m := range p.modules {
		if pc, ok := m.(PolicyContributor); ok {
			for _, pol := range pc.Policies() {
				if r := pol(c, ev, conn); r.Verdict != Accept {
					return r
				}
			}
		}
	}
	for _, m := range p.modules {
		if ps, ok := m.(PreStorer); ok {
			if r := ps.PreStore(c, ev, conn); r.Verdict != Accept {
				return r
			}
		}
	}
	return Accepted
}

// NotifyStored runs every module's PostStore hook.
func (p *Pipeline) NotifyStored(c context.T, ev *event.E) {
	for _, m := range p.modules {
		if ps, ok := m.(PostStorer); ok {
			ps.PostStore(c, ev)
		}
	}
}

// Info collects every module's NIP-11 contribution into one limitations
// map, and returns the sorted union of supported NIP numbers.
func (p *Pipeline) Info() (nips []int, limitations map[string]any) {
	limitations = make(map[string]any)
	seen := make(map[int]bool)
	for _, m := range p.modules {
		for _, n := range m.NIPs() {
			if !seen[n] {
				seen[n] = true
				nips = append(nips, n)
			}
		}
		if ic, ok := m.(InfoContributor); ok {
			ic.ContributeInfo(limitations)
		}
	}
	for i := 0; i < len(nips); i++ {
		for j := i + 1; j < len(nips); j++ {
			if nips[j] < nips[i] {
				nips[i], nips[j] = nips[j], nips[i]
			}
		}
	}
	return
}
