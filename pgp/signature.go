package pgp

import "math/big"

// Signature types used by dit (RFC 4880 section 5.2.1).
const (
	SigTypeBinaryDocument  = 0x00
	SigTypePositiveCertUID = 0x13
)

const hashAlgoSHA256 = 8

// Signature is a V4 OpenPGP signature packet under construction. It starts
// life as a "partial" signature — the hashed subpackets are fixed but no
// signature value exists yet — and becomes final once Finalize supplies
// the issuer key-ID, the top two hash bytes, and the (r, s) pair.
type Signature struct {
	SigType            byte
	PubKeyAlgo         byte
	HashAlgo           byte
	HashedSubpackets   []Subpacket
	UnhashedSubpackets []Subpacket
	HashHi16           [2]byte
	R, S               *big.Int
	finalized          bool
}

// NewPartialSignature starts a signature of the given type over the fixed
// hashed subpacket set, ready to be hashed and then finalized.
func NewPartialSignature(sigType byte, hashed []Subpacket) *Signature {
	return &Signature{
		SigType:          sigType,
		PubKeyAlgo:       pubKeyAlgoECDSA,
		HashAlgo:         hashAlgoSHA256,
		HashedSubpackets: hashed,
	}
}

// hashedPart is version, sigtype, pubkey algo, hash algo, the hashed
// subpacket length, and the hashed subpackets themselves — the portion of
// the signature that is both hashed and stored in the final packet.
func (s *Signature) hashedPart() []byte {
	hashed := encodeSubpackets(s.HashedSubpackets)
	out := make([]byte, 0, 6+len(hashed))
	out = append(out, 4, s.SigType, s.PubKeyAlgo, s.HashAlgo)
	out = append(out, byte(len(hashed)>>8), byte(len(hashed)))
	out = append(out, hashed...)
	return out
}

// HashablePreimage is the full pre-image fed to the signature's digest:
// hashedPart() followed by the fixed two-byte trailer marker and the
// big-endian 32-bit length of hashedPart() — RFC 4880 section 5.2.4.
func (s *Signature) HashablePreimage() []byte {
	hp := s.hashedPart()
	n := uint32(len(hp))
	out := make([]byte, 0, len(hp)+6)
	out = append(out, hp...)
	out = append(out, 4, 0xFF, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	return out
}

// Finalize supplies the values only known once the full digest has been
// computed and (for threshold signing) the distributed ECDSA engine has
// produced a signature: the issuer's key-ID (stored unhashed), the top two
// bytes of the hash (a quick-reject check GnuPG relies on), and (r, s).
// It turns the partial signature into a Signature proper.
func (s *Signature) Finalize(issuerKeyID []byte, hashHi16 [2]byte, r, sVal *big.Int) {
	s.UnhashedSubpackets = []Subpacket{IssuerKeyIDSubpacket(issuerKeyID)}
	s.HashHi16 = hashHi16
	s.R = r
	s.S = sVal
	s.finalized = true
}

// Finalized reports whether Finalize has been called.
func (s *Signature) Finalized() bool { return s.finalized }

// Raw is the packet body: hashedPart(), the unhashed subpacket length and
// subpackets, the top two hash bytes, and the (r, s) MPIs.
func (s *Signature) Raw() []byte {
	unhashed := encodeSubpackets(s.UnhashedSubpackets)
	out := s.hashedPart()
	out = append(out, byte(len(unhashed)>>8), byte(len(unhashed)))
	out = append(out, unhashed...)
	out = append(out, s.HashHi16[0], s.HashHi16[1])
	out = append(out, encodeMPIBigInt(s.R)...)
	out = append(out, encodeMPIBigInt(s.S)...)
	return out
}

// Formatted is the packet as it appears on the wire: header + Raw().
func (s *Signature) Formatted() []byte {
	return formatPacket(TagSignature, s.Raw())
}
