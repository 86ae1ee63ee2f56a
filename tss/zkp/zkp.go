// Package zkp implements the zero-knowledge building blocks the DKG and
// signing engines use to keep dishonest parties from deviating
// undetected: a Schnorr proof of knowledge of a discrete log, and the
// DLogStatement commitment parameters referenced by the MTA range proofs.
package zkp

import (
	"crypto/sha256"
	"math/big"

	"dit/errs"
	"dit/tss/curve"
)

// SchnorrProof is a non-interactive (Fiat-Shamir) proof of knowledge of x
// such that y = g^x.
type SchnorrProof struct {
	Commitment *curve.Point // g^k
	Response   *big.Int     // k + e*x mod N
}

// challenge derives the Fiat-Shamir challenge e = H(g || y || commitment).
func challenge(y, commitment *curve.Point) *big.Int {
	h := sha256.New()
	g := curve.BasePoint()
	for _, p := range []*curve.Point{g, y, commitment} {
		h.Write(p.X.Bytes())
		h.Write(p.Y.Bytes())
	}
	e := new(big.Int).SetBytes(h.Sum(nil))
	return new(big.Int).Mod(e, curve.N)
}

// Prove constructs a Schnorr proof that the prover knows x, the discrete
// log of y = g^x.
func Prove(x *big.Int) (*SchnorrProof, error) {
	k, err := curve.RandomScalar()
	if err != nil {
		return nil, errs.New(errs.Protocol, "sampling Schnorr nonce", err)
	}
	commitment := curve.ScalarBaseMul(k)
	y := curve.ScalarBaseMul(x)
	e := challenge(y, commitment)
	response := curve.AddMod(k, curve.MulMod(e, x))
	return &SchnorrProof{Commitment: commitment, Response: response}, nil
}

// Verify checks a Schnorr proof against the claimed public point y.
func Verify(y *curve.Point, proof *SchnorrProof) bool {
	e := challenge(y, proof.Commitment)
	lhs := curve.ScalarBaseMul(proof.Response)
	rhs := curve.Add(proof.Commitment, curve.ScalarMul(y, e))
	return curve.Equal(lhs, rhs)
}

// DLogStatement is the shared reference string each party publishes
// during DKG for use in the MTA range proofs during signing: an RSA-like
// modulus N and two generators h1, h2 of an order dividing N the range
// proof is expressed relative to. dit builds these from a Paillier
// modulus already generated for the party rather than sampling a second
// unrelated composite.
type DLogStatement struct {
	N      *big.Int
	H1, H2 *big.Int
}

// NewDLogStatement derives h1, h2 deterministically by hashing seed with a
// per-generator label, the simplest construction when no separate
// safe-prime sampling infrastructure is available:
// h1 = SHA-256(seed || "h1")^2 mod N and h2 = SHA-256(seed || "h2")^2 mod N.
// N itself is only the modulus, not part of the hashed input, and no
// secret exponent links h2 to h1.
func NewDLogStatement(n *big.Int, seed []byte) *DLogStatement {
	h1 := hashToGroup(n, append(seed, []byte("h1")...))
	h2 := hashToGroup(n, append(seed, []byte("h2")...))
	return &DLogStatement{N: n, H1: h1, H2: h2}
}

func hashToGroup(n *big.Int, data []byte) *big.Int {
	sum := sha256.Sum256(data)
	h := new(big.Int).SetBytes(sum[:])
	h.Mod(h, n)
	return new(big.Int).Exp(h, big.NewInt(2), n)
}
