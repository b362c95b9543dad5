package reason_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nestrelay.dev/pkg/encoders/reason"
)

func TestFFormatsPrefixAndMessage(t *testing.T) {
	require.Equal(t, "invalid: missing id", reason.Invalid.F("missing id"))
	require.Equal(t, "blocked: pubkey abc123", reason.Blocked.F("pubkey %s", "abc123"))
}

func TestStringReturnsRawPrefix(t *testing.T) {
	require.Equal(t, "rate-limited", reason.RateLimited.String())
}
