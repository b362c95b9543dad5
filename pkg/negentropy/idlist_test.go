package negentropy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nestrelay.dev/pkg/negentropy"
)

func id(n byte) string {
	b := make([]byte, 32)
	b[0] = n
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 64)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}

func TestEncodeDecodeIDListRoundTrip(t *testing.T) {
	ids := []string{id(1), id(2), id(3)}
	msg := negentropy.EncodeIDList(ids)
	decoded, err := negentropy.DecodeIDList(msg)
	require.NoError(t, err)
	require.ElementsMatch(t, ids, decoded)
}

func TestDecodeIDListRejectsBadLength(t *testing.T) {
	_, err := negentropy.DecodeIDList("abc")
	require.Error(t, err)
}

func TestDiff(t *testing.T) {
	have := []string{id(1), id(2), id(3)}
	theirs := []string{id(2)}
	out := negentropy.Diff(have, theirs)
	require.ElementsMatch(t, []string{id(1), id(3)}, out)
}

func TestSessionHaveExcludesKnownIDs(t *testing.T) {
	m := negentropy.NewManager()
	server := []string{id(1), id(2)}
	sess, err := m.Open("conn1", "sub1", nil, server, negentropy.EncodeIDList([]string{id(1)}))
	require.NoError(t, err)
	require.Equal(t, []string{id(2)}, sess.Have())
}

func TestManagerEnforcesSessionCap(t *testing.T) {
	m := negentropy.NewManager()
	for i := 0; i < negentropy.MaxSessionsPerConn; i++ {
		_, err := m.Open("conn1", idSub(i), nil, nil, "")
		require.NoError(t, err)
	}
	_, err := m.Open("conn1", "one-too-many", nil, nil, "")
	require.Error(t, err)
}

func idSub(i int) string {
	return string(rune('a' + i))
}
