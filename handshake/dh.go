package handshake

import (
	"crypto/rand"
	"math/big"

	"github.com/pkg/errors"
)

// dhKeyPair holds one side's Diffie-Hellman private scalar and its
// wire-ready public key, derived against the fixed 1024-bit modulus and
// base 2 the RTMP handshake mandates.
type dhKeyPair struct {
	private *big.Int
	public  [publicKeySize]byte
}

// generateDHKeyPair picks a random private scalar and computes the
// corresponding public key 2^x mod DH_MODULUS, normalized to exactly
// publicKeySize bytes (left-padded if short, high bytes dropped if the
// encoding is longer).
func generateDHKeyPair() (*dhKeyPair, error) {
	private, err := rand.Int(rand.Reader, dhModulus)
	if err != nil {
		return nil, errors.Wrap(err, "generate dh private scalar")
	}
	public := new(big.Int).Exp(dhBase, private, dhModulus)
	var pair dhKeyPair
	pair.private = private
	normalizePublicKey(public, &pair.public)
	return &pair, nil
}

// normalizePublicKey writes n's big-endian unsigned encoding into out,
// left-padding with zeros if short or dropping the low-order-irrelevant
// leading bytes if the encoding is longer than publicKeySize.
func normalizePublicKey(n *big.Int, out *[publicKeySize]byte) {
	raw := n.Bytes()
	if len(raw) <= publicKeySize {
		copy(out[publicKeySize-len(raw):], raw)
		return
	}
	copy(out[:], raw[len(raw)-publicKeySize:])
}

// sharedSecret combines our private scalar with the peer's raw public key
// bytes (interpreted as an unsigned big-endian integer) to produce the DH
// shared secret. The returned byte encoding is used verbatim as HMAC key
// material by the caller: no truncation, no padding.
func (p *dhKeyPair) sharedSecret(peerPublic [publicKeySize]byte) []byte {
	peer := new(big.Int).SetBytes(peerPublic[:])
	secret := new(big.Int).Exp(peer, p.private, dhModulus)
	return secret.Bytes()
}
