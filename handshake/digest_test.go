package handshake

import (
	"crypto/hmac"
	"crypto/sha256"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigestExcludingMatchesManualHMAC(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	packet := make([]byte, PacketSize)
	rng.Read(packet)

	off := 100
	key := []byte("some key")

	got := digestExcluding(packet, off, key)

	mac := hmac.New(sha256.New, key)
	mac.Write(packet[:off])
	mac.Write(packet[off+digestSize:])
	want := mac.Sum(nil)

	assert.Equal(t, want, got)
	assert.Len(t, got, digestSize)
}

func TestOwnPartOneDigestVerifiesAtComputedOffset(t *testing.T) {
	for _, vt := range []int{1, 2} {
		packet := make([]byte, PacketSize)
		rng := rand.New(rand.NewSource(int64(vt)))
		rng.Read(packet)

		off, err := digestOffset(packet, vt)
		assert.NoError(t, err)

		digest := digestExcluding(packet, off, clientConst)
		copy(packet[off:off+digestSize], digest)

		expected := digestExcluding(packet, off, clientConst)
		assert.Equal(t, expected, packet[off:off+digestSize])
	}
}
