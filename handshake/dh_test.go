package handshake

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDHKeyPairProducesFixedSizePublicKey(t *testing.T) {
	pair, err := generateDHKeyPair()
	require.NoError(t, err)
	assert.Len(t, pair.public, publicKeySize)
}

func TestDHSharedSecretAgrees(t *testing.T) {
	a, err := generateDHKeyPair()
	require.NoError(t, err)
	b, err := generateDHKeyPair()
	require.NoError(t, err)

	secretA := a.sharedSecret(b.public)
	secretB := b.sharedSecret(a.public)

	assert.Equal(t, secretA, secretB)
	assert.NotEmpty(t, secretA)
}

func TestNormalizePublicKeyPadsShortEncoding(t *testing.T) {
	n := big.NewInt(1)
	var out [publicKeySize]byte
	normalizePublicKey(n, &out)

	for i := 0; i < publicKeySize-1; i++ {
		assert.Equal(t, byte(0), out[i])
	}
	assert.Equal(t, byte(1), out[publicKeySize-1])
}

func TestNormalizePublicKeyTruncatesLongEncoding(t *testing.T) {
	raw := make([]byte, publicKeySize+5)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	n := new(big.Int).SetBytes(raw)

	var out [publicKeySize]byte
	normalizePublicKey(n, &out)

	assert.Equal(t, raw[len(raw)-publicKeySize:], out[:])
}
