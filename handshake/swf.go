package handshake

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
)

// swfvSize is the fixed length of the SWF-verification response payload.
const swfvSize = 42

// computeSWFVerification builds the 42-byte SWF-verification pong bound to
// swfHash/swfSize and the 32 trailing bytes of the peer's S1 (used as the
// HMAC key). The caller transmits this as the payload of a server-requested
// SWF verification control message; this package neither sends nor reads
// that message.
func computeSWFVerification(swfHash []byte, swfSize uint32, s1KeyBytes []byte) []byte {
	// HMAC key is the 32 trailing bytes of S1; swfHash is the signed data,
	// matching the original Flazr reference's Utils.sha256(swfHash, key).
	digest := hmacSHA256(s1KeyBytes, swfHash)

	out := make([]byte, swfvSize)
	out[0] = 0x01
	out[1] = 0x01
	binary.BigEndian.PutUint32(out[2:6], swfSize)
	binary.BigEndian.PutUint32(out[6:10], swfSize)
	copy(out[10:], digest)
	return out
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
