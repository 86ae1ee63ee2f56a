package pgp

import (
	"math/big"

	"dit/util"
)

// bitLen returns the RFC 4880 MPI bit-length of raw: the bit-length of the
// first non-zero byte plus 8 times the number of bytes that follow it.
// Leading zero bytes are not part of the reported length; leading zero
// bits within the first non-zero byte are.
func bitLen(raw []byte) int {
	i := 0
	for i < len(raw) && raw[i] == 0 {
		i++
	}
	if i == len(raw) {
		return 0
	}
	n := len(raw) - i - 1
	b := raw[i]
	bits := 0
	for b != 0 {
		bits++
		b >>= 1
	}
	return n*8 + bits
}

// encodeMPI renders raw (including any leading zero bytes the caller wants
// preserved, e.g. a zero-padded EC point) as an RFC 4880 MPI: a two-byte
// bit-length header followed by raw itself, byte for byte.
//
// Per the spec's resolved open question, callers that need a fixed-width
// representation (secp256k1 x/y coordinates) are responsible for
// zero-padding raw to the field size before calling encodeMPI; this
// function never strips or re-pads, it only measures and prefixes.
func encodeMPI(raw []byte) []byte {
	nbits := bitLen(raw)
	out := make([]byte, 2+len(raw))
	out[0] = byte(nbits >> 8)
	out[1] = byte(nbits)
	copy(out[2:], raw)
	return out
}

// encodeMPIBigInt renders n in its minimal big-endian form as an MPI, the
// representation used for signature (r, s) values.
func encodeMPIBigInt(n *big.Int) []byte {
	if n.Sign() == 0 {
		return []byte{0, 0}
	}
	return encodeMPI(n.Bytes())
}

// padTo returns n's big-endian bytes left-padded with zeros to exactly
// size bytes, via the teacher's ToBuffer (math/big -> fixed-width buffer)
// helper.
func padTo(n *big.Int, size int) []byte {
	out := make([]byte, size)
	util.ToBuffer(n, out, size)
	return out
}
