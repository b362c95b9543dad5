// Package filter implements NIP-01 filter matching: the pure predicate
// that decides whether a stored or incoming event satisfies a client's
// REQ/COUNT query.
package filter

import (
	"encoding/json"
	"strings"

	"nestrelay.dev/pkg/encoders/event"
)

// T is a single filter. Within a filter every populated field is ANDed
// together; Ids/Authors/Kinds/Tags entries are ORed within their own
// field, per NIP-01.
type T struct {
	Ids     []string            `json:"ids,omitempty"`
	Authors []string            `json:"authors,omitempty"`
	Kinds   []int               `json:"kinds,omitempty"`
	Tags    map[string][]string `json:"-"`
	Since   *int64              `json:"since,omitempty"`
	Until   *int64              `json:"until,omitempty"`
	Limit   *int                `json:"limit,omitempty"`
	Search  string              `json:"search,omitempty"`
}

// S is a set of filters; an event matches the set if it matches any one
// of them (the OR-across-filters rule NIP-01 specifies).
type S []*T

// UnmarshalJSON implements the NIP-01 filter encoding, where tag filters
// appear as sibling keys "#x" rather than inside a nested object.
func (t *T) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	type alias T
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = T(a)
	t.Tags = nil
	for k, v := range raw {
		if len(k) < 2 || k[0] != '#' {
			continue
		}
		var vals []string
		if err := json.Unmarshal(v, &vals); err != nil {
			return err
		}
		if t.Tags == nil {
			t.Tags = make(map[string][]string)
		}
		t.Tags[k[1:]] = vals
	}
	return nil
}

// MarshalJSON re-flattens Tags back into "#x" sibling keys.
func (t *T) MarshalJSON() ([]byte, error) {
	type alias T
	base, err := json.Marshal((*alias)(t))
	if err != nil {
		return nil, err
	}
	if len(t.Tags) == 0 {
		return base, nil
	}
	var m map[string]json.RawMessage
	if err = json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for k, vals := range t.Tags {
		vb, err := json.Marshal(vals)
		if err != nil {
			return nil, err
		}
		m["#"+k] = vb
	}
	return json.Marshal(m)
}

// IsIdsOnly reports whether the filter can only ever match via an exact
// id lookup — the socketapi layer uses this to decide whether a REQ
// should be satisfied with EOSE+CLOSE instead of staying open.
func (t *T) IsIdsOnly() bool {
	return len(t.Ids) > 0 && len(t.Authors) == 0 && len(t.Kinds) == 0 && len(t.Tags) == 0
}

func hasPrefix(full, prefix string) bool {
	if len(prefix) > len(full) {
		return false
	}
	return full[:len(prefix)] == prefix
}

func matchesAnyPrefix(value string, candidates []string) bool {
	if len(candidates) == 0 {
		return true
	}
	for _, c := range candidates {
		if hasPrefix(value, c) {
			return true
		}
	}
	return false
}

func matchesAnyInt(value int, candidates []int) bool {
	if len(candidates) == 0 {
		return true
	}
	for _, c := range candidates {
		if value == c {
			return true
		}
	}
	return false
}

// Matches reports whether ev satisfies every populated field of t.
// Ids and Authors match on exact value or hex prefix, per NIP-01.
func (t *T) Matches(ev *event.E) bool {
	if !matchesAnyPrefix(ev.ID, t.Ids) {
		return false
	}
	if !matchesAnyPrefix(ev.PubKey, t.Authors) {
		return false
	}
	if !matchesAnyInt(int(ev.Kind), t.Kinds) {
		return false
	}
	if t.Since != nil && ev.CreatedAt < *t.Since {
		return false
	}
	if t.Until != nil && ev.CreatedAt > *t.Until {
		return false
	}
	for tagName, wanted := range t.Tags {
		if !tagMatches(ev, tagName, wanted) {
			return false
		}
	}
	if t.Search != "" && !strings.Contains(strings.ToLower(ev.Content), strings.ToLower(t.Search)) {
		return false
	}
	return true
}

func tagMatches(ev *event.E, tagName string, wanted []string) bool {
	for _, tg := range ev.Tags.GetAll(tagName) {
		v := tg.Value()
		for _, w := range wanted {
			if v == w {
				return true
			}
		}
	}
	return false
}

// Matches reports whether ev satisfies any filter in the set (the
// OR-across-filters rule a REQ or COUNT subscription uses).
func (s S) Matches(ev *event.E) bool {
	for _, t := range s {
		if t.Matches(ev) {
			return true
		}
	}
	return false
}

// SmallestLimit returns the smallest explicit Limit across the set, or
// ok=false if none of the filters set one. The REQ handler uses it to cap
// how many stored events it replays before EOSE.
func (s S) SmallestLimit() (limit int, ok bool) {
	for _, t := range s {
		if t.Limit == nil {
			continue
		}
		if !ok || *t.Limit < limit {
			limit = *t.Limit
			ok = true
		}
	}
	return
}
