// Package modules holds the relay's built-in policy.Module
// implementations, one file per NIP.
package modules

import (
	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/encoders/reason"
	"nestrelay.dev/pkg/policy"
	"nestrelay.dev/pkg/utils/context"
)

// Core enforces NIP-01's baseline admission rules: schema validity,
// signature verification, and the size limits every relay needs to stay
// operable against hostile input.
type Core struct {
	MaxContentLen int
	MaxTags       int
	MaxTagValLen  int
	// FutureDrift and PastDrift bound how far created_at may stray from
	// wall-clock time; zero disables the corresponding check.
	FutureDrift int64
	PastDrift   int64
	now         func() int64
}

// NewCore builds a Core module with the given limits. now supplies the
// current unix time; when it is nil the drift checks are skipped. Tests
// pass a fixed clock.
func NewCore(maxContentLen, maxTags, maxTagValLen int, futureDrift, pastDrift int64, now func() int64) *Core {
	return &Core{
		MaxContentLen: maxContentLen,
		MaxTags:       maxTags,
		MaxTagValLen:  maxTagValLen,
		FutureDrift:   futureDrift,
		PastDrift:     pastDrift,
		now:           now,
	}
}

func (c *Core) Name() string { return "nip01-core" }
func (c *Core) NIPs() []int  { return []int{1} }
func (c *Core) Policies() []policy.Policy {
	return []policy.Policy{c.checkSchema, c.checkSignature, c.checkLimits, c.checkDrift}
}

func (c *Core) checkSchema(_ context.T, ev *event.E, _ policy.ConnState) policy.Result {
	if err := ev.ValidateSchema(); err != nil {
		return policy.Rejectf(reason.Invalid, "%v", err)
	}
	return policy.Accepted
}

func (c *Core) checkSignature(_ context.T, ev *event.E, _ policy.ConnState) policy.Result {
	ok, err := ev.Verify()
	if err != nil {
		return policy.Rejectf(reason.Invalid, "%v", err)
	}
	if !ok {
		return policy.Rejectf(reason.Invalid, "signature verification failed")
	}
	return policy.Accepted
}

func (c *Core) checkLimits(_ context.T, ev *event.E, _ policy.ConnState) policy.Result {
	if c.MaxContentLen > 0 && len(ev.Content) > c.MaxContentLen {
		return policy.Rejectf(reason.Invalid, "content exceeds %d bytes", c.MaxContentLen)
	}
	if c.MaxTags > 0 && len(ev.Tags) > c.MaxTags {
		return policy.Rejectf(reason.Invalid, "too many tags, max %d", c.MaxTags)
	}
	if c.MaxTagValLen > 0 {
		for _, t := range ev.Tags {
			for _, v := range t {
				if len(v) > c.MaxTagValLen {
					return policy.Rejectf(reason.Invalid, "tag value exceeds %d bytes", c.MaxTagValLen)
				}
			}
		}
	}
	return policy.Accepted
}

// ContributeInfo adds Core's limits to the NIP-11 "limitation" object.
func (c *Core) ContributeInfo(limitations map[string]any) {
	if c.MaxContentLen > 0 {
		limitations["max_content_length"] = c.MaxContentLen
	}
	if c.MaxTags > 0 {
		limitations["max_tags"] = c.MaxTags
	}
	if c.FutureDrift > 0 {
		limitations["created_at_upper_limit"] = c.FutureDrift
	}
}

func (c *Core) checkDrift(_ context.T, ev *event.E, _ policy.ConnState) policy.Result {
	if c.now == nil {
		return policy.Accepted
	}
	now := c.now()
	if c.FutureDrift > 0 && ev.CreatedAt > now+c.FutureDrift {
		return policy.Rejectf(reason.Invalid, "created_at too far in the future")
	}
	if c.PastDrift > 0 && ev.CreatedAt < now-c.PastDrift {
		return policy.Rejectf(reason.Invalid, "created_at too far in the past")
	}
	return policy.Accepted
}
