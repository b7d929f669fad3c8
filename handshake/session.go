package handshake

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// Role identifies which side of the handshake a Session drives.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// Options configures a client Session's optional fields. A server Session
// takes none of these: its RTMPE flag is learned from C0, and its
// advertised version is always defaultServerVersion.
type Options struct {
	RTMPE         bool
	ClientVersion [4]byte // advertised in C1 as given; DefaultOptions carries defaultClientVersion
	SwfHash       []byte  // 32 bytes, or nil to disable SWF verification
	SwfSize       uint32
}

// DefaultOptions is the default client configuration: plain RTMP,
// defaultClientVersion, no SWF verification.
var DefaultOptions = Options{ClientVersion: defaultClientVersion}

// phase enumerates the points in the role-specific operation sequence a
// Session may legally be at. Each public operation checks it is being
// called at the phase it requires and atomically advances to the next one;
// an out-of-order call returns a KindMisuse error instead of silently
// corrupting derived key state (see spec Design Note on typestate).
type phase uint32

const (
	phaseNew phase = iota
	// client phases
	phaseClientC0Sent
	phaseClientC1Sent
	phaseClientServerDecoded
	phaseClientC2Sent
	// server phases
	phaseServerC0C1Decoded
	phaseServerS0Sent
	phaseServerS1Sent
	phaseServerS2Sent
	phaseServerC2Decoded
)

// Session is one handshake engine instance, owned exclusively by the
// connection's I/O driver for the lifetime of the handshake. Its fields are
// mutated only through the exported operations below, which must be called
// in the fixed per-role order documented on each method.
type Session struct {
	id   uuid.UUID
	role Role
	ph   atomic.Uint32

	rtmpe          bool
	validationType int

	ownVersion  [4]byte
	peerVersion [4]byte
	peerTime    [4]byte

	dhKeys        *dhKeyPair
	peerPublicKey [publicKeySize]byte

	ownPartOneDigest  [digestSize]byte
	peerPartOneDigest [digestSize]byte

	cipher *cipherPair

	ownPartOne  []byte // retained only for validationType == 0
	peerPartOne []byte

	swfHash  []byte
	swfSize  uint32
	swfv     []byte
	haveSwfv bool
}

// NewClientSession constructs a client-role handshake engine.
func NewClientSession(opts Options) *Session {
	s := &Session{
		id:         uuid.New(),
		role:       RoleClient,
		rtmpe:      opts.RTMPE,
		ownVersion: opts.ClientVersion,
		swfHash:    opts.SwfHash,
		swfSize:    opts.SwfSize,
	}
	s.ph.Store(uint32(phaseNew))
	return s
}

// NewServerSession constructs a server-role handshake engine. RTMPE and the
// validation type are both learned from the client's C0/C1.
func NewServerSession() *Session {
	s := &Session{
		id:         uuid.New(),
		role:       RoleServer,
		ownVersion: defaultServerVersion,
	}
	s.ph.Store(uint32(phaseNew))
	return s
}

// Role returns which side of the handshake this session drives.
func (s *Session) Role() Role { return s.role }

// RTMPE reports whether the session is (still) negotiating encryption.
// For the client it can flip from true to false during DecodeServerAll if
// the server does not support RTMPE.
func (s *Session) RTMPE() bool { return s.rtmpe }

// PeerVersion returns the 4-byte version the peer advertised.
func (s *Session) PeerVersion() [4]byte { return s.peerVersion }

// SWFVBytes returns the precomputed 42-byte SWF-verification response, if
// SwfHash was configured and the server's S1 has been decoded.
func (s *Session) SWFVBytes() ([]byte, bool) { return s.swfv, s.haveSwfv }

// CipherUpdateIn decrypts buf in place using the inbound RC4 state. A no-op
// when the session is not RTMPE or the ciphers have not been constructed
// yet.
func (s *Session) CipherUpdateIn(buf []byte) {
	if s.cipher == nil {
		return
	}
	s.cipher.updateIn(buf)
}

// CipherUpdateOut encrypts buf in place using the outbound RC4 state. A
// no-op when the session is not RTMPE or the ciphers have not been
// constructed yet.
func (s *Session) CipherUpdateOut(buf []byte) {
	if s.cipher == nil {
		return
	}
	s.cipher.updateOut(buf)
}

// requirePhase atomically transitions the session from "want" to "next",
// returning a KindMisuse error if the session is not currently at "want".
func (s *Session) requirePhase(want, next phase) error {
	if !s.ph.CompareAndSwap(uint32(want), uint32(next)) {
		return newError(KindMisuse, "operation called out of order")
	}
	return nil
}

// ============================== CLIENT ====================================

// EncodeC0 returns the one-byte RTMP version marker: 0x06 for RTMPE, 0x03
// for plain RTMP. First client operation.
func (s *Session) EncodeC0() ([]byte, error) {
	if err := s.requirePhase(phaseNew, phaseClientC0Sent); err != nil {
		return nil, err
	}
	if s.rtmpe {
		return []byte{0x06}, nil
	}
	return []byte{0x03}, nil
}

// EncodeC1 builds and returns the 1536-byte C1 packet. Must follow EncodeC0.
func (s *Session) EncodeC1() ([]byte, error) {
	if err := s.requirePhase(phaseClientC0Sent, phaseClientC1Sent); err != nil {
		return nil, err
	}
	packet, err := randomHandshakePacket()
	if err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint32(packet[0:4], 0)
	copy(packet[4:8], s.ownVersion[:])

	s.validationType = validationTypeForVersion(s.ownVersion)
	if s.validationType == 0 {
		s.ownPartOne = append([]byte{}, packet...)
		return packet, nil
	}

	slog.Debug("building client part 1", "session", s.id, "validationType", s.validationType)
	if err := s.initDH(); err != nil {
		return nil, err
	}

	pkOff, err := publicKeyOffset(packet, s.validationType)
	if err != nil {
		return nil, err
	}
	copy(packet[pkOff:pkOff+publicKeySize], s.dhKeys.public[:])

	dOff, err := digestOffset(packet, s.validationType)
	if err != nil {
		return nil, err
	}
	digest := digestExcluding(packet, dOff, clientConst)
	copy(s.ownPartOneDigest[:], digest)
	copy(packet[dOff:dOff+digestSize], digest)

	return packet, nil
}

// DecodeServerAll reads S0+S1+S2 (1+1536+1536 bytes) from r and validates
// them, falling back to the alternate validation type if S1 does not verify
// under the locally selected one, and downgrading to plain RTMP if S0 is not
// 0x06. Must follow EncodeC1.
func (s *Session) DecodeServerAll(r io.Reader) error {
	if err := s.requirePhase(phaseClientC1Sent, phaseClientServerDecoded); err != nil {
		return err
	}

	s0 := make([]byte, 1)
	if _, err := io.ReadFull(r, s0); err != nil {
		return errors.Wrap(err, "read S0")
	}
	if s.rtmpe && s0[0] != 0x06 {
		slog.Warn("server does not support rtmpe, falling back to plain rtmp", "session", s.id)
		s.rtmpe = false
	}

	s1 := make([]byte, PacketSize)
	if _, err := io.ReadFull(r, s1); err != nil {
		return errors.Wrap(err, "read S1")
	}
	if err := s.decodeServer1(s1); err != nil {
		return err
	}

	s2 := make([]byte, PacketSize)
	if _, err := io.ReadFull(r, s2); err != nil {
		return errors.Wrap(err, "read S2")
	}
	return s.decodeServer2(s2)
}

func (s *Session) decodeServer1(s1 []byte) error {
	copy(s.peerTime[:], s1[0:4])
	copy(s.peerVersion[:], s1[4:8])

	if s.swfHash != nil {
		key := s1[PacketSize-digestSize:]
		s.swfv = computeSWFVerification(s.swfHash, s.swfSize, key)
		s.haveSwfv = true
	}

	if s.validationType == 0 {
		s.peerPartOne = append([]byte{}, s1...)
		return nil
	}

	digest, err := verifyPeerPartOne(s1, s.validationType, serverConst)
	if err != nil {
		alt := alternateValidationType(s.validationType)
		slog.Warn("server part1 validation failed, retrying with alternate type",
			"session", s.id, "from", s.validationType, "to", alt)
		digest, err = verifyPeerPartOne(s1, alt, serverConst)
		if err != nil {
			return newError(KindPeerValidationFailure, "server part 1 validation failed for both candidate types")
		}
		s.validationType = alt
	}
	copy(s.peerPartOneDigest[:], digest)

	pkOff, err := publicKeyOffset(s1, s.validationType)
	if err != nil {
		return err
	}
	copy(s.peerPublicKey[:], s1[pkOff:pkOff+publicKeySize])

	return s.initCiphers()
}

func (s *Session) decodeServer2(s2 []byte) error {
	if s.validationType == 0 {
		return nil
	}
	key := hmacSHA256(serverConstCrud, s.ownPartOneDigest[:])
	dOff := PacketSize - digestSize
	expected := digestExcluding(s2, dOff, key)
	if !bytesEqual(expected, s2[dOff:dOff+digestSize]) {
		return newError(KindPart2ValidationFailure, "server part 2 validation failed")
	}
	slog.Debug("server part2 validation success", "session", s.id)
	return nil
}

// EncodeC2 builds and returns the 1536-byte C2 packet. Must follow
// DecodeServerAll.
func (s *Session) EncodeC2() ([]byte, error) {
	if err := s.requirePhase(phaseClientServerDecoded, phaseClientC2Sent); err != nil {
		return nil, err
	}
	if s.validationType == 0 {
		echo := s.peerPartOne
		copy(echo[0:4], s.peerTime[:])
		binary.BigEndian.PutUint32(echo[4:8], 0)
		return echo, nil
	}

	packet, err := randomHandshakePacket()
	if err != nil {
		return nil, err
	}
	key := hmacSHA256(clientConstCrud, s.peerPartOneDigest[:])
	dOff := PacketSize - digestSize
	digest := digestExcluding(packet, dOff, key)
	copy(packet[dOff:dOff+digestSize], digest)
	return packet, nil
}

// ============================== SERVER =====================================

// DecodeClient0And1 reads C0+C1 (1+1536 bytes) from r, learns RTMPE and the
// validation type from them, and (for type != 0) validates C1's digest and,
// when C0 requested RTMPE, constructs the RC4 ciphers. First server operation.
func (s *Session) DecodeClient0And1(r io.Reader) error {
	if err := s.requirePhase(phaseNew, phaseServerC0C1Decoded); err != nil {
		return err
	}

	c0 := make([]byte, 1)
	if _, err := io.ReadFull(r, c0); err != nil {
		return errors.Wrap(err, "read C0")
	}
	s.rtmpe = c0[0] == 0x06

	c1 := make([]byte, PacketSize)
	if _, err := io.ReadFull(r, c1); err != nil {
		return errors.Wrap(err, "read C1")
	}

	copy(s.peerTime[:], c1[0:4])
	copy(s.peerVersion[:], c1[4:8])
	s.validationType = validationTypeForVersion(s.peerVersion)

	if s.validationType == 0 {
		s.peerPartOne = append([]byte{}, c1...)
		return nil
	}

	slog.Debug("processing client part1", "session", s.id, "validationType", s.validationType)
	if err := s.initDH(); err != nil {
		return err
	}

	digest, err := verifyPeerPartOne(c1, s.validationType, clientConst)
	if err != nil {
		return newError(KindPeerValidationFailure, "client part 1 validation failed")
	}
	copy(s.peerPartOneDigest[:], digest)

	pkOff, err := publicKeyOffset(c1, s.validationType)
	if err != nil {
		return err
	}
	copy(s.peerPublicKey[:], c1[pkOff:pkOff+publicKeySize])

	return s.initCiphers()
}

// EncodeS0 returns the one-byte RTMP version marker mirroring the client's.
// Must follow DecodeClient0And1.
func (s *Session) EncodeS0() ([]byte, error) {
	if err := s.requirePhase(phaseServerC0C1Decoded, phaseServerS0Sent); err != nil {
		return nil, err
	}
	if s.rtmpe {
		return []byte{0x06}, nil
	}
	return []byte{0x03}, nil
}

// EncodeS1 builds and returns the 1536-byte S1 packet. Must follow EncodeS0.
func (s *Session) EncodeS1() ([]byte, error) {
	if err := s.requirePhase(phaseServerS0Sent, phaseServerS1Sent); err != nil {
		return nil, err
	}
	packet, err := randomHandshakePacket()
	if err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint32(packet[0:4], 0)
	copy(packet[4:8], s.ownVersion[:])

	if s.validationType == 0 {
		s.ownPartOne = append([]byte{}, packet...)
		return packet, nil
	}

	pkOff, err := publicKeyOffset(packet, s.validationType)
	if err != nil {
		return nil, err
	}
	copy(packet[pkOff:pkOff+publicKeySize], s.dhKeys.public[:])

	dOff, err := digestOffset(packet, s.validationType)
	if err != nil {
		return nil, err
	}
	digest := digestExcluding(packet, dOff, serverConst)
	copy(s.ownPartOneDigest[:], digest)
	copy(packet[dOff:dOff+digestSize], digest)

	return packet, nil
}

// DecodeClient2 reads C2 (1536 bytes) from r. A digest mismatch here is
// deliberately tolerated (not surfaced as an error): the source this
// engine is modeled on swallows the failure, and the spec preserves that
// interop tolerance rather than breaking otherwise-working clients. Must
// follow EncodeS2.
func (s *Session) DecodeClient2(r io.Reader) error {
	if err := s.requirePhase(phaseServerS2Sent, phaseServerC2Decoded); err != nil {
		return err
	}
	c2 := make([]byte, PacketSize)
	if _, err := io.ReadFull(r, c2); err != nil {
		return errors.Wrap(err, "read C2")
	}
	if s.validationType == 0 {
		return nil
	}
	key := hmacSHA256(clientConstCrud, s.ownPartOneDigest[:])
	dOff := PacketSize - digestSize
	expected := digestExcluding(c2, dOff, key)
	if !bytesEqual(expected, c2[dOff:dOff+digestSize]) {
		slog.Warn("client part2 validation failed, tolerating per interop policy", "session", s.id)
		return nil
	}
	slog.Debug("client part2 validation success", "session", s.id)
	return nil
}

// EncodeS2 builds and returns the 1536-byte S2 packet. Must follow
// EncodeS1.
func (s *Session) EncodeS2() ([]byte, error) {
	if err := s.requirePhase(phaseServerS1Sent, phaseServerS2Sent); err != nil {
		return nil, err
	}
	if s.validationType == 0 {
		echo := s.peerPartOne
		copy(echo[0:4], s.peerTime[:])
		binary.BigEndian.PutUint32(echo[4:8], 0)
		return echo, nil
	}

	packet, err := randomHandshakePacket()
	if err != nil {
		return nil, err
	}
	key := hmacSHA256(serverConstCrud, s.peerPartOneDigest[:])
	dOff := PacketSize - digestSize
	digest := digestExcluding(packet, dOff, key)
	copy(packet[dOff:dOff+digestSize], digest)
	return packet, nil
}

// ============================ shared helpers ================================

func (s *Session) initDH() error {
	keys, err := generateDHKeyPair()
	if err != nil {
		return newError(KindCryptoUnavailable, errors.Wrap(err, "init dh key pair").Error())
	}
	s.dhKeys = keys
	return nil
}

func (s *Session) initCiphers() error {
	if !s.rtmpe {
		return nil
	}
	secret := s.dhKeys.sharedSecret(s.peerPublicKey)

	var ownPublic, peerPublic [publicKeySize]byte
	copy(ownPublic[:], s.dhKeys.public[:])
	copy(peerPublic[:], s.peerPublicKey[:])

	cp, err := newCipherPair(ownPublic, peerPublic, secret)
	if err != nil {
		return newError(KindCryptoUnavailable, err.Error())
	}
	s.cipher = cp
	slog.Debug("rc4 ciphers initialized", "session", s.id, "rtmpe", s.rtmpe)
	return nil
}

// verifyPeerPartOne computes the expected digest for packet under
// validationType and key, compares it to the digest embedded in the
// packet, and returns the embedded digest on success.
func verifyPeerPartOne(packet []byte, validationType int, key []byte) (digest []byte, err error) {
	off, err := digestOffset(packet, validationType)
	if err != nil {
		return nil, err
	}
	expected := digestExcluding(packet, off, key)
	actual := packet[off : off+digestSize]
	if !bytesEqual(expected, actual) {
		return nil, errors.New("digest mismatch")
	}
	return actual, nil
}

func randomHandshakePacket() ([]byte, error) {
	packet := make([]byte, PacketSize)
	if _, err := rand.Read(packet); err != nil {
		return nil, errors.Wrap(err, "fill random handshake packet")
	}
	return packet, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
