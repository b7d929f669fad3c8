package handshake

import "io"

// ClientHandshaker is the client-role subset of Session's public surface,
// exposed as an interface so callers (and tests) can substitute a fake
// engine without depending on the concrete type.
type ClientHandshaker interface {
	EncodeC0() ([]byte, error)
	EncodeC1() ([]byte, error)
	DecodeServerAll(r io.Reader) error
	EncodeC2() ([]byte, error)
	CipherEndpoint
}

// ServerHandshaker is the server-role subset of Session's public surface.
type ServerHandshaker interface {
	DecodeClient0And1(r io.Reader) error
	EncodeS0() ([]byte, error)
	EncodeS1() ([]byte, error)
	DecodeClient2(r io.Reader) error
	EncodeS2() ([]byte, error)
	CipherEndpoint
}

// CipherEndpoint is the role-agnostic surface both handshake roles share
// once the six-packet exchange completes.
type CipherEndpoint interface {
	CipherUpdateIn(buf []byte)
	CipherUpdateOut(buf []byte)
	RTMPE() bool
	PeerVersion() [4]byte
	SWFVBytes() ([]byte, bool)
}

var (
	_ ClientHandshaker = (*Session)(nil)
	_ ServerHandshaker = (*Session)(nil)
)
