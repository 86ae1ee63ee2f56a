package pgp

import (
	"crypto/sha1"
	"math/big"
)

// secp256k1OID is the DER content octets (no tag/length) of the curve's
// object identifier 1.3.132.0.10, per RFC 6637.
var secp256k1OID = []byte{0x2B, 0x81, 0x04, 0x00, 0x0A}

// pubKeyAlgoECDSA is the public-key algorithm octet for ECDSA (RFC 6637).
const pubKeyAlgoECDSA = 19

// fieldSize is the coordinate width of secp256k1, in bytes.
const fieldSize = 32

// PublicKey is a V4 OpenPGP public-key packet binding a creation time to a
// secp256k1 point, serialized as RFC 6637 prescribes: an algorithm octet,
// a curve OID, and a single MPI covering the uncompressed point
// 0x04 || x || y.
type PublicKey struct {
	CreatedAt uint32 // seconds since the epoch
	X, Y      *big.Int
}

// point returns the uncompressed point encoding 0x04 || x || y, with x and
// y zero-padded to the curve's field size.
func (pk *PublicKey) point() []byte {
	out := make([]byte, 1+2*fieldSize)
	out[0] = 0x04
	copy(out[1:1+fieldSize], padTo(pk.X, fieldSize))
	copy(out[1+fieldSize:], padTo(pk.Y, fieldSize))
	return out
}

// Raw returns the packet body: the bytes that also form the suffix of the
// fingerprint hashable view.
func (pk *PublicKey) Raw() []byte {
	body := make([]byte, 0, 1+4+1+1+len(secp256k1OID))
	body = append(body, 4) // version
	body = append(body, byte(pk.CreatedAt>>24), byte(pk.CreatedAt>>16), byte(pk.CreatedAt>>8), byte(pk.CreatedAt))
	body = append(body, pubKeyAlgoECDSA)
	body = append(body, byte(len(secp256k1OID)))
	body = append(body, secp256k1OID...)
	body = append(body, encodeMPI(pk.point())...)
	return body
}

// Hashable is the fingerprint pre-image: 0x99 || len:u16 || body.
func (pk *PublicKey) Hashable() []byte {
	body := pk.Raw()
	out := make([]byte, 0, 3+len(body))
	out = append(out, 0x99, byte(len(body)>>8), byte(len(body)))
	out = append(out, body...)
	return out
}

// Formatted is the packet as it appears in a key file: header + body.
func (pk *PublicKey) Formatted() []byte {
	return formatPacket(TagPublicKey, pk.Raw())
}

// Fingerprint is the V4 fingerprint, SHA-1(Hashable()); it is always 20
// bytes long.
func (pk *PublicKey) Fingerprint() []byte {
	sum := sha1.Sum(pk.Hashable())
	return sum[:]
}

// KeyID is the trailing 8 bytes of the fingerprint.
func (pk *PublicKey) KeyID() []byte {
	fp := pk.Fingerprint()
	return fp[len(fp)-8:]
}
