package handshake

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeSWFVerificationMatchesIndependentHMAC(t *testing.T) {
	swfHash := make([]byte, 32)
	for i := range swfHash {
		swfHash[i] = byte(i)
	}
	s1Key := make([]byte, 32)
	for i := range s1Key {
		s1Key[i] = byte(255 - i)
	}
	swfSize := uint32(12345)

	got := computeSWFVerification(swfHash, swfSize, s1Key)

	require := assert.New(t)
	require.Len(got, swfvSize)
	require.Equal(byte(0x01), got[0])
	require.Equal(byte(0x01), got[1])
	require.Equal(swfSize, binary.BigEndian.Uint32(got[2:6]))
	require.Equal(swfSize, binary.BigEndian.Uint32(got[6:10]))

	wantDigest := hmacSHA256(s1Key, swfHash)
	require.Equal(wantDigest, got[10:42])
}
