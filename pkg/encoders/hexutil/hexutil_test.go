package hexutil_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nestrelay.dev/pkg/encoders/hexutil"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := []byte{0xde, 0xad, 0xbe, 0xef}
	s := hexutil.Encode(b)
	require.Equal(t, "deadbeef", s)

	back, err := hexutil.Decode(s)
	require.NoError(t, err)
	require.Equal(t, b, back)
}

func TestIsHexValidatesLengthAndContent(t *testing.T) {
	require.True(t, hexutil.IsHex("deadbeef", 4))
	require.False(t, hexutil.IsHex("deadbeef", 3))
	require.False(t, hexutil.IsHex("not-hex!", 4))
}
