package handshake

import "encoding/binary"

// validationTypeForVersion maps a 4-byte version (C1's bytes 4-8 for the
// server, the client's own configured version for the client) to a
// validation type: 0 is the
// legacy echo handshake, 1 and 2 are the two digest-validated schemes that
// differ only in which byte offsets they use.
//
// The table is a fixed fingerprint of known Adobe Flash Player / Flash
// Media Server builds; anything else falls back to type 0.
var versionToValidationType = map[uint32]int{
	0x09007C02: 1,
	0x09009702: 1,
	0x09009F02: 1,
	0x0900F602: 1,
	0x0A000202: 1,
	0x0A000C02: 1,
	0x80000102: 1,
	0x80000302: 2,
	0x0A002002: 2,
}

func validationTypeForVersion(version [4]byte) int {
	v := binary.BigEndian.Uint32(version[:])
	if t, ok := versionToValidationType[v]; ok {
		return t
	}
	return 0
}

// alternateValidationType returns the other non-zero validation type, used
// by the client's one-shot fallback when the server's S1 fails to validate
// under the locally-selected type.
func alternateValidationType(t int) int {
	if t == 1 {
		return 2
	}
	return 1
}
