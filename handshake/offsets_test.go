package handshake

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateOffsetInRange(t *testing.T) {
	cases := []struct {
		pointerIndex, m, increment int
	}{
		{8, 728, 12},
		{772, 728, 776},
		{1532, 632, 772},
		{768, 632, 8},
	}
	rng := rand.New(rand.NewSource(1))
	for _, c := range cases {
		for i := 0; i < 50; i++ {
			packet := make([]byte, PacketSize)
			rng.Read(packet)
			off := calculateOffset(packet, c.pointerIndex, c.m, c.increment)
			assert.GreaterOrEqual(t, off, c.increment)
			assert.Less(t, off, c.increment+c.m)
		}
	}
}

func TestDigestAndPublicKeyOffsetsType1And2(t *testing.T) {
	packet := make([]byte, PacketSize)
	for _, vt := range []int{1, 2} {
		dOff, err := digestOffset(packet, vt)
		require.NoError(t, err)
		pkOff, err := publicKeyOffset(packet, vt)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, dOff, 0)
		assert.LessOrEqual(t, dOff+digestSize, PacketSize)
		assert.GreaterOrEqual(t, pkOff, 0)
		assert.LessOrEqual(t, pkOff+publicKeySize, PacketSize)
	}
}

func TestOffsetsRejectInvalidValidationType(t *testing.T) {
	packet := make([]byte, PacketSize)
	_, err := digestOffset(packet, 0)
	require.Error(t, err)
	_, err = publicKeyOffset(packet, 3)
	require.Error(t, err)
}
