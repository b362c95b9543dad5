package modules

import (
	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/encoders/reason"
	"nestrelay.dev/pkg/interfaces/store"
	"nestrelay.dev/pkg/policy"
	"nestrelay.dev/pkg/utils/chk"
	"nestrelay.dev/pkg/utils/context"
)

// Deletion implements NIP-09: a kind-5 event carries "e" tags naming
// events to delete by id and "a" tags naming addressable events to
// delete by coordinate, both scoped to the deletion event's own author.
type Deletion struct {
	Store store.Deleter
}

func NewDeletion(s store.Deleter) *Deletion { return &Deletion{Store: s} }

func (d *Deletion) Name() string { return "nip09-deletion" }
func (d *Deletion) NIPs() []int  { return []int{9} }

// PreStore intercepts kind-5 events: rather than storing the deletion
// request itself like a regular event, it performs the deletions and
// then lets the caller decide whether to also persist the tombstone (the
// relay stores it as a regular event so future deletion requests for
// the same ids remain idempotent).
func (d *Deletion) PreStore(c context.T, ev *event.E, conn policy.ConnState) policy.Result {
	if deleted, err := d.Store.IsDeleted(c, ev.ID); chk.E(err) {
		return policy.Rejectf(reason.Error, "deletion check failed: %v", err)
	} else if deleted {
		return policy.Rejectf(reason.Deleted, "this event was deleted")
	}
	if ev.Kind != event.KindDeletion {
		return policy.Accepted
	}
	for _, t := range ev.Tags.GetAll("e") {
		id := t.Value()
		if id == "" {
			continue
		}
		if err := d.Store.DeleteByID(c, id, ev.PubKey); chk.E(err) {
			return policy.Rejectf(reason.Error, "deletion failed: %v", err)
		}
	}
	for _, t := range ev.Tags.GetAll("a") {
		pubkey, kind, dTag, ok := parseCoordinate(t.Value())
		if !ok {
			continue
		}
		if err := d.Store.DeleteByCoordinate(c, pubkey, kind, dTag, ev.PubKey); chk.E(err) {
			return policy.Rejectf(reason.Error, "deletion failed: %v", err)
		}
	}
	return policy.Accepted
}

// parseCoordinate splits an "a" tag value "<kind>:<pubkey>:<d-tag>" per
// NIP-33.
func parseCoordinate(val string) (pubkey string, kind event.Kind, dTag string, ok bool) {
	var parts [3]string
	idx := 0
	start := 0
	for i := 0; i <= len(val); i++ {
		if i == len(val) || val[i] == ':' {
			if idx > 2 {
				return "", 0, "", false
			}
			parts[idx] = val[start:i]
			idx++
			start = i + 1
		}
	}
	if idx < 2 {
		return "", 0, "", false
	}
	k := 0
	for _, ch := range parts[0] {
		if ch < '0' || ch > '9' {
			return "", 0, "", false
		}
		k = k*10 + int(ch-'0')
	}
	return parts[1], event.Kind(k), parts[2], true
}
