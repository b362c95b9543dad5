package modules_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/policy"
	"nestrelay.dev/pkg/policy/modules"
	"nestrelay.dev/pkg/utils/context"
)

type fakeDeleter struct {
	deletedIDs   []string
	deletedCoord []string
	deletedFlag  map[string]bool
}

func (f *fakeDeleter) DeleteByID(_ context.T, id, requester string) error {
	f.deletedIDs = append(f.deletedIDs, id+"/"+requester)
	return nil
}

func (f *fakeDeleter) DeleteByCoordinate(_ context.T, pubkey string, kind event.Kind, dTag, requester string) error {
	f.deletedCoord = append(f.deletedCoord, pubkey)
	return nil
}

func (f *fakeDeleter) IsDeleted(_ context.T, id string) (bool, error) {
	return f.deletedFlag[id], nil
}

func (f *fakeDeleter) ForceDeleteByID(_ context.T, id string) error {
	return f.DeleteByID(context.Bg(), id, "operator")
}

func TestDeletionProcessesETags(t *testing.T) {
	d := &fakeDeleter{deletedFlag: map[string]bool{}}
	m := modules.NewDeletion(d)
	ev := &event.E{PubKey: "author", Kind: event.KindDeletion, Tags: event.Tags{{"e", "target-id"}}}
	r := m.PreStore(context.Bg(), ev, policy.ConnState{})
	require.Equal(t, policy.Accept, r.Verdict)
	require.Equal(t, []string{"target-id/author"}, d.deletedIDs)
}

func TestDeletionRejectsAlreadyDeleted(t *testing.T) {
	d := &fakeDeleter{deletedFlag: map[string]bool{"ev1": true}}
	m := modules.NewDeletion(d)
	ev := &event.E{ID: "ev1", Kind: 1}
	r := m.PreStore(context.Bg(), ev, policy.ConnState{})
	require.Equal(t, policy.Reject, r.Verdict)
}
