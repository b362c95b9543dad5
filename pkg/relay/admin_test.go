package relay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nestrelay.dev/pkg/config"
	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/encoders/filter"
	"nestrelay.dev/pkg/interfaces/store"
	"nestrelay.dev/pkg/policy/modules"
	"nestrelay.dev/pkg/protocol/socketapi"
	"nestrelay.dev/pkg/utils/context"
)

// fakeStore implements store.I with just enough behavior for the admin
// dispatch tests; everything but ForceDeleteByID is an unused no-op.
type fakeStore struct {
	forceDeleted []string
}

func (f *fakeStore) SaveEvent(context.T, *event.E) error        { return nil }
func (f *fakeStore) SaveReplaceable(context.T, *event.E) error  { return nil }
func (f *fakeStore) SaveAddressable(context.T, *event.E) error  { return nil }
func (f *fakeStore) DeleteByID(context.T, string, string) error { return nil }
func (f *fakeStore) DeleteByCoordinate(context.T, string, event.Kind, string, string) error {
	return nil
}
func (f *fakeStore) IsDeleted(context.T, string) (bool, error) { return false, nil }
func (f *fakeStore) ForceDeleteByID(_ context.T, id string) error {
	f.forceDeleted = append(f.forceDeleted, id)
	return nil
}
func (f *fakeStore) Query(context.T, filter.S) (event.S, error)       { return nil, nil }
func (f *fakeStore) Count(context.T, filter.S) (int64, error)         { return 0, nil }
func (f *fakeStore) HasID(context.T, string) (bool, error)            { return false, nil }
func (f *fakeStore) Export(context.T, store.EventWriter) error        { return nil }
func (f *fakeStore) Import(context.T, store.EventReader) (int, error) { return 0, nil }
func (f *fakeStore) Wipe(context.T) error                             { return nil }
func (f *fakeStore) Close() error                                     { return nil }

func testRelay() (*Relay, *fakeStore) {
	fs := &fakeStore{}
	acl := modules.NewACList(nil, nil)
	return &Relay{
		Cfg:    &config.C{Owners: []string{"owner-pub"}},
		ACL:    acl,
		Store:  fs,
		Socket: &socketapi.A{Ctx: context.Bg(), Store: fs},
	}, fs
}

func TestIsOwnerMatchesConfiguredPubkey(t *testing.T) {
	r, _ := testRelay()
	require.True(t, r.isOwner("owner-pub"))
	require.False(t, r.isOwner("stranger"))
}

func TestDispatchAdminSupportedMethods(t *testing.T) {
	r, _ := testRelay()
	resp := r.dispatchAdmin(rpcRequest{Method: "supportedmethods"})
	require.Empty(t, resp.Error)
	require.Equal(t, supportedMethods, resp.Result)
}

func TestDispatchAdminBanAndAllowPubkey(t *testing.T) {
	r, _ := testRelay()
	resp := r.dispatchAdmin(rpcRequest{Method: "banpubkey", Params: []any{"bad-actor"}})
	require.True(t, resp.Result.(bool))
	require.Contains(t, r.ACL.Banned(), "bad-actor")

	resp = r.dispatchAdmin(rpcRequest{Method: "allowpubkey", Params: []any{"bad-actor"}})
	require.True(t, resp.Result.(bool))
	require.NotContains(t, r.ACL.Banned(), "bad-actor")
}

func TestDispatchAdminRejectsUnsupportedMethod(t *testing.T) {
	r, _ := testRelay()
	resp := r.dispatchAdmin(rpcRequest{Method: "bogus"})
	require.NotEmpty(t, resp.Error)
}

func TestDispatchAdminBanEventRequiresStringParam(t *testing.T) {
	r, _ := testRelay()
	resp := r.dispatchAdmin(rpcRequest{Method: "banevent", Params: []any{42}})
	require.NotEmpty(t, resp.Error)
}

func TestDispatchAdminBanEventForceDeletesRegardlessOfAuthor(t *testing.T) {
	r, fs := testRelay()
	resp := r.dispatchAdmin(rpcRequest{Method: "banevent", Params: []any{"spam-event-id"}})
	require.True(t, resp.Result.(bool))
	require.Equal(t, []string{"spam-event-id"}, fs.forceDeleted)
}
