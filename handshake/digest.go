package handshake

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/pkg/errors"
)

// calculateOffset implements the fingerprint-derived offset rule shared by
// the digest-slot and public-key-slot lookups: sum the four bytes at
// packet[pointerIndex:pointerIndex+4] as unsigned 8-bit values, reduce
// modulo m, then add the increment.
func calculateOffset(packet []byte, pointerIndex, m, increment int) int {
	var sum int
	for _, b := range packet[pointerIndex : pointerIndex+4] {
		sum += int(b)
	}
	return sum%m + increment
}

// digestOffset locates the 32-byte digest slot within a validated part-one
// packet, per the (pointer, modulus, increment) triple for validationType.
func digestOffset(packet []byte, validationType int) (int, error) {
	switch validationType {
	case 1:
		return calculateOffset(packet, 8, 728, 12), nil
	case 2:
		return calculateOffset(packet, 772, 728, 776), nil
	default:
		return 0, errors.Errorf("cannot compute digest offset for validation type %d", validationType)
	}
}

// publicKeyOffset locates the 128-byte DH public-key slot within a
// validated part-one packet, per the (pointer, modulus, increment) triple
// for validationType.
func publicKeyOffset(packet []byte, validationType int) (int, error) {
	switch validationType {
	case 1:
		return calculateOffset(packet, 1532, 632, 772), nil
	case 2:
		return calculateOffset(packet, 768, 632, 8), nil
	default:
		return 0, errors.Errorf("cannot compute public key offset for validation type %d", validationType)
	}
}

// digestExcluding computes HMAC-SHA-256 over packet with the 32-byte window
// at [off:off+32] excised, i.e. over packet[:off] || packet[off+32:]. It is
// the single digest primitive: used both to fill one's own digest slot and
// to verify the peer's.
func digestExcluding(packet []byte, off int, key []byte) []byte {
	message := make([]byte, 0, len(packet)-digestSize)
	message = append(message, packet[:off]...)
	message = append(message, packet[off+digestSize:]...)
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}
