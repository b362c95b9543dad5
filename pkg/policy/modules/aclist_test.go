package modules_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/policy"
	"nestrelay.dev/pkg/policy/modules"
	"nestrelay.dev/pkg/utils/context"
)

func TestACListAllowlistIsAuthoritative(t *testing.T) {
	a := modules.NewACList([]string{"good"}, []string{"good"})
	r := a.Policies()[0](context.Bg(), &event.E{PubKey: "good"}, policy.ConnState{})
	require.Equal(t, policy.Accept, r.Verdict)

	r = a.Policies()[0](context.Bg(), &event.E{PubKey: "stranger"}, policy.ConnState{})
	require.Equal(t, policy.Reject, r.Verdict)
}

func TestACListBlocklistRejectsListedPubkey(t *testing.T) {
	a := modules.NewACList(nil, []string{"bad"})
	r := a.Policies()[0](context.Bg(), &event.E{PubKey: "bad"}, policy.ConnState{})
	require.Equal(t, policy.Reject, r.Verdict)

	r = a.Policies()[0](context.Bg(), &event.E{PubKey: "anyone-else"}, policy.ConnState{})
	require.Equal(t, policy.Accept, r.Verdict)
}

func TestACListAllowAndBlockAreMutuallyExclusive(t *testing.T) {
	a := modules.NewACList(nil, nil)
	a.Block("pk")
	require.Contains(t, a.Banned(), "pk")

	a.Allow("pk")
	require.NotContains(t, a.Banned(), "pk")
	require.True(t, a.Allowlist["pk"])
}
