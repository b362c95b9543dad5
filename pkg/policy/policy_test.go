package policy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/encoders/reason"
	"nestrelay.dev/pkg/policy"
	"nestrelay.dev/pkg/utils/context"
)

type stubModule struct {
	name      string
	nips      []int
	policies  []policy.Policy
	preStore  func(context.T, *event.E, policy.ConnState) policy.Result
	postStore func(context.T, *event.E)
	info      func(map[string]any)
}

func (s *stubModule) Name() string { return s.name }
func (s *stubModule) NIPs() []int  { return s.nips }
func (s *stubModule) Policies() []policy.Policy {
	return s.policies
}
func (s *stubModule) PreStore(c context.T, ev *event.E, conn policy.ConnState) policy.Result {
	if s.preStore == nil {
		return policy.Accepted
	}
	return s.preStore(c, ev, conn)
}
func (s *stubModule) PostStore(c context.T, ev *event.E) {
	if s.postStore != nil {
		s.postStore(c, ev)
	}
}
func (s *stubModule) ContributeInfo(limitations map[string]any) {
	if s.info != nil {
		s.info(limitations)
	}
}

func TestAdmitStopsAtFirstRejectingPolicy(t *testing.T) {
	var secondRan bool
	first := &stubModule{
		name: "first",
		policies: []policy.Policy{
			func(context.T, *event.E, policy.ConnState) policy.Result {
				return policy.Rejectf(reason.Invalid, "nope")
			},
		},
	}
	second := &stubModule{
		name: "second",
		policies: []policy.Policy{
			func(context.T, *event.E, policy.ConnState) policy.Result {
				secondRan = true
				return policy.Accepted
			},
		},
	}
	p := policy.NewPipeline(first, second)
	r := p.Admit(context.Bg(), &event.E{}, policy.ConnState{})
	require.Equal(t, policy.Reject, r.Verdict)
	require.False(t, secondRan)
}

func TestAdmitRunsPreStoreOnlyAfterAllPoliciesAccept(t *testing.T) {
	var preStoreRan bool
	m := &stubModule{
		name: "m",
		preStore: func(context.T, *event.E, policy.ConnState) policy.Result {
			preStoreRan = true
			return policy.Accepted
		},
	}
	p := policy.NewPipeline(m)
	r := p.Admit(context.Bg(), &event.E{}, policy.ConnState{})
	require.Equal(t, policy.Accept, r.Verdict)
	require.True(t, preStoreRan)
}

func TestAdmitShortCircuitsOnPreStoreShadow(t *testing.T) {
	m := &stubModule{
		name: "m",
		preStore: func(context.T, *event.E, policy.ConnState) policy.Result {
			return policy.Shadowf(reason.Blocked, "shadowed")
		},
	}
	p := policy.NewPipeline(m)
	r := p.Admit(context.Bg(), &event.E{}, policy.ConnState{})
	require.Equal(t, policy.Shadow, r.Verdict)
}

func TestNotifyStoredRunsEveryPostStoreHook(t *testing.T) {
	var calls []string
	a := &stubModule{name: "a", postStore: func(context.T, *event.E) { calls = append(calls, "a") }}
	b := &stubModule{name: "b", postStore: func(context.T, *event.E) { calls = append(calls, "b") }}
	p := policy.NewPipeline(a, b)
	p.NotifyStored(context.Bg(), &event.E{})
	require.Equal(t, []string{"a", "b"}, calls)
}

func TestInfoAggregatesSortedUniqueNIPsAndLimitations(t *testing.T) {
	a := &stubModule{
		name: "a", nips: []int{9, 1},
		info: func(l map[string]any) { l["max_message_length"] = 65536 },
	}
	b := &stubModule{
		name: "b", nips: []int{1, 42},
		info: func(l map[string]any) { l["auth_required"] = true },
	}
	p := policy.NewPipeline(a, b)
	nips, limitations := p.Info()
	require.Equal(t, []int{1, 9, 42}, nips)
	require.Equal(t, 65536, limitations["max_message_length"])
	require.Equal(t, true, limitations["auth_required"])
}
