package handshake

import "errors"

// Kind classifies a handshake failure per the error taxonomy the engine
// exposes to its caller. RtmpeUnavailable is deliberately absent: an S0
// mismatch is a state transition (session downgrades to plain RTMP), not a
// failure the caller must handle.
type Kind int

const (
	// KindPeerValidationFailure: the peer's part-one digest did not verify
	// (for the client, under either validation-type candidate).
	KindPeerValidationFailure Kind = iota
	// KindPart2ValidationFailure: the peer's part-two digest did not verify.
	// Fatal on the client; the server side tolerates it (see DecodeClient2).
	KindPart2ValidationFailure
	// KindCryptoUnavailable: DH or RC4 primitives failed to initialize.
	KindCryptoUnavailable
	// KindMisuse: a public operation was called out of the role-specific
	// order the session requires. A programming defect, not a runtime
	// condition the caller can recover from.
	KindMisuse
)

func (k Kind) String() string {
	switch k {
	case KindPeerValidationFailure:
		return "peer validation failure"
	case KindPart2ValidationFailure:
		return "part2 validation failure"
	case KindCryptoUnavailable:
		return "crypto unavailable"
	case KindMisuse:
		return "misuse"
	default:
		return "unknown"
	}
}

// Error wraps a Kind with the context that produced it.
type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.msg
}

func newError(kind Kind, msg string) error {
	return &Error{Kind: kind, msg: msg}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var he *Error
	for err != nil {
		if h, ok := err.(*Error); ok {
			he = h
			break
		}
		err = errors.Unwrap(err)
	}
	return he != nil && he.Kind == kind
}
