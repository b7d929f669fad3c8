package handshake

import (
	"crypto/hmac"
	"crypto/rc4"
	"crypto/sha256"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// cipherPair is the RTMPE RC4 state: one stream cipher per direction, plus
// a byte counter so tests and logs can confirm the 1536-byte warm-up ran
// exactly once per side.
type cipherPair struct {
	out *rc4.Cipher
	in  *rc4.Cipher

	warmedUpOut atomic.Uint32
	warmedUpIn  atomic.Uint32
}

// newCipherPair derives the RC4 keys from the DH shared secret and both
// sides' public keys, constructs the two ciphers, and runs the mandatory
// 1536-byte keystream warm-up on each.
//
// key_out = HMAC-SHA-256 keyed with sharedSecret over peerPublicKey, [:16]
// key_in  = HMAC-SHA-256 keyed with sharedSecret over ownPublicKey,  [:16]
//
// The caller decides which role's public key plays "peer" vs "own": the
// client's cipherOut uses the server's public key and vice versa, which is
// exactly what deriveRC4Key below computes given the two raw keys in session
// order.
func newCipherPair(ownPublic, peerPublic [publicKeySize]byte, sharedSecret []byte) (*cipherPair, error) {
	keyOut := deriveRC4Key(peerPublic, sharedSecret)
	keyIn := deriveRC4Key(ownPublic, sharedSecret)

	out, err := rc4.NewCipher(keyOut)
	if err != nil {
		return nil, errors.Wrap(err, "construct outbound rc4 cipher")
	}
	in, err := rc4.NewCipher(keyIn)
	if err != nil {
		return nil, errors.Wrap(err, "construct inbound rc4 cipher")
	}

	cp := &cipherPair{out: out, in: in}
	cp.warmUp()
	return cp, nil
}

// deriveRC4Key computes HMAC-SHA-256 over publicKey, keyed with sharedSecret,
// and returns the first 16 bytes as the RC4 key.
func deriveRC4Key(publicKey [publicKeySize]byte, sharedSecret []byte) []byte {
	mac := hmac.New(sha256.New, sharedSecret)
	mac.Write(publicKey[:])
	return mac.Sum(nil)[:16]
}

// warmUp feeds PacketSize arbitrary bytes through each cipher and discards
// the output, advancing the keystream past its weakest early bytes before
// any real wire byte is enciphered.
func (cp *cipherPair) warmUp() {
	dummy := make([]byte, PacketSize)
	cp.out.XORKeyStream(dummy, dummy)
	cp.warmedUpOut.Store(PacketSize)

	dummy2 := make([]byte, PacketSize)
	cp.in.XORKeyStream(dummy2, dummy2)
	cp.warmedUpIn.Store(PacketSize)
}

// updateOut enciphers buf in place using the outbound RC4 state.
func (cp *cipherPair) updateOut(buf []byte) {
	cp.out.XORKeyStream(buf, buf)
}

// updateIn deciphers buf in place using the inbound RC4 state.
func (cp *cipherPair) updateIn(buf []byte) {
	cp.in.XORKeyStream(buf, buf)
}
