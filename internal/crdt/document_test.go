package crdt

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func op(s string) []byte { return []byte(s) }

func TestApplyUpdateReturnsIntegratedDelta(t *testing.T) {
	d := New()
	u := EncodeOps(1, 1, op("a"), op("b"))

	delta, err := d.ApplyUpdate(u)
	require.NoError(t, err)
	assert.Equal(t, u, delta)
}

func TestApplyUpdateIdempotent(t *testing.T) {
	d := New()
	u := EncodeOps(7, 1, op("hello"))

	_, err := d.ApplyUpdate(u)
	require.NoError(t, err)
	full := d.EncodeFull()
	sv := d.StateVector()

	delta, err := d.ApplyUpdate(u)
	require.NoError(t, err)
	assert.Empty(t, delta, "re-applying a known update integrates nothing")
	assert.Equal(t, full, d.EncodeFull())
	assert.Equal(t, sv, d.StateVector())
}

func TestApplyEmptyUpdateIsNoOp(t *testing.T) {
	d := New()
	delta, err := d.ApplyUpdate(nil)
	require.NoError(t, err)
	assert.Len(t, delta, 0)
	delta, err = d.ApplyUpdate([]byte{})
	require.NoError(t, err)
	assert.Len(t, delta, 0)
}

func TestApplyMalformedUpdate(t *testing.T) {
	d := New()
	for _, bad := range [][]byte{
		{0x05},                   // claims 5 clients, truncated
		{0x01, 0x01, 0x00, 0x01}, // clock 0 start
		{0x01, 0x01, 0x01, 0x01, 0xFF, 0x01}, // op length beyond input
		append(EncodeOps(1, 1, op("x")), 0x00), // trailing byte
	} {
		_, err := d.ApplyUpdate(bad)
		var de *DecodeError
		assert.ErrorAs(t, err, &de, "input %x", bad)
	}
	assert.Empty(t, d.EncodeFull(), "failed applies leave the replica untouched")
}

func TestApplyUpdateHugeDeclaredCounts(t *testing.T) {
	d := New()
	// Declared counts far beyond the input length must fail cleanly, not
	// drive an allocation.
	huge := binary.AppendUvarint(nil, 1<<60)
	for _, bad := range [][]byte{
		huge,
		append([]byte{0x01, 0x01, 0x01}, huge...),
	} {
		_, err := d.ApplyUpdate(bad)
		var de *DecodeError
		assert.ErrorAs(t, err, &de, "input %x", bad)
	}

	_, err := d.Diff(binary.AppendUvarint(nil, 1<<60))
	var de *DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestPermutationConvergence(t *testing.T) {
	updates := [][]byte{
		EncodeOps(1, 1, op("a"), op("b")),
		EncodeOps(1, 3, op("c")),
		EncodeOps(2, 1, op("x")),
		EncodeOps(2, 2, op("y"), op("z")),
	}

	perms := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{1, 0, 3, 2},
		{2, 3, 0, 1},
		{3, 0, 2, 1},
	}

	ref := New()
	for _, i := range perms[0] {
		_, err := ref.ApplyUpdate(updates[i])
		require.NoError(t, err)
	}

	for _, perm := range perms[1:] {
		d := New()
		for _, i := range perm {
			_, err := d.ApplyUpdate(updates[i])
			require.NoError(t, err)
		}
		assert.Equal(t, ref.StateVector(), d.StateVector(), "perm %v", perm)
		assert.Equal(t, ref.EncodeFull(), d.EncodeFull(), "perm %v", perm)
	}
}

func TestGappedRunParksUntilGapCloses(t *testing.T) {
	d := New()

	delta, err := d.ApplyUpdate(EncodeOps(1, 3, op("c"), op("d")))
	require.NoError(t, err)
	assert.Empty(t, delta, "run beyond the gap must not integrate yet")
	assert.NotContains(t, string(d.EncodeFull()), "c")

	delta, err = d.ApplyUpdate(EncodeOps(1, 1, op("a"), op("b")))
	require.NoError(t, err)
	assert.Equal(t, EncodeOps(1, 1, op("a"), op("b"), op("c"), op("d")), delta)
}

func TestDiffRoundTrip(t *testing.T) {
	server := New()
	_, err := server.ApplyUpdate(EncodeOps(1, 1, op("a"), op("b")))
	require.NoError(t, err)
	_, err = server.ApplyUpdate(EncodeOps(2, 1, op("x")))
	require.NoError(t, err)

	peer := New()
	_, err = peer.ApplyUpdate(EncodeOps(1, 1, op("a")))
	require.NoError(t, err)

	diff, err := server.Diff(peer.StateVector())
	require.NoError(t, err)
	_, err = peer.ApplyUpdate(diff)
	require.NoError(t, err)

	assert.Equal(t, server.StateVector(), peer.StateVector())
	assert.Equal(t, server.EncodeFull(), peer.EncodeFull())

	diff, err = server.Diff(peer.StateVector())
	require.NoError(t, err)
	assert.Len(t, diff, 0, "caught-up peer gets an empty diff")
}

func TestDiffAgainstEmptyVectorEqualsEncodeFull(t *testing.T) {
	d := New()
	_, err := d.ApplyUpdate(EncodeOps(9, 1, op("q")))
	require.NoError(t, err)

	diff, err := d.Diff(nil)
	require.NoError(t, err)
	assert.Equal(t, d.EncodeFull(), diff)
}

func TestDiffMalformedStateVector(t *testing.T) {
	d := New()
	_, err := d.Diff([]byte{0x09})
	var de *DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestStateVectorDeterministic(t *testing.T) {
	a, b := New(), New()
	for _, d := range []*Document{a, b} {
		_, err := d.ApplyUpdate(EncodeOps(5, 1, op("m")))
		require.NoError(t, err)
		_, err = d.ApplyUpdate(EncodeOps(3, 1, op("n")))
		require.NoError(t, err)
	}
	assert.Equal(t, a.StateVector(), b.StateVector())
}
