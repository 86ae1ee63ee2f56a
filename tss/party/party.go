// Package party holds the types shared between the DKG and signing
// engines: the operating parameters of a threshold group and the
// persisted per-party key material a successful DKG run produces.
package party

import (
	"math/big"

	"dit/tss/curve"
	"dit/tss/paillier"
	"dit/tss/zkp"
)

// Parameters describes a threshold group: n participants, threshold t
// (any t+1 can sign, no t can).
type Parameters struct {
	Participants int
	Threshold    int
}

// KeyPair is the state a party persists locally once DKG completes. It is
// only meaningful alongside the equivalent files of the group's other
// parties — no single KeyPair reveals the group secret.
type KeyPair struct {
	Index      int
	Params     Parameters
	Share      *big.Int // this party's Shamir share of the group secret
	PaillierSK *paillier.PrivateKey

	// Group-wide public material collected during DKG.
	GroupPublicKey *curve.Point             // Y = Σ Y_i
	VSSCommitments map[int][]*curve.Point    // party index -> polynomial commitments
	PaillierPKs    map[int]*paillier.PublicKey
	DLogStatements map[int]*zkp.DLogStatement
}

// SigningIndices returns the 1-based party indices present in PaillierPKs,
// i.e. every party that completed DKG — the pool a signer subset is drawn
// from.
func (kp *KeyPair) SigningIndices() []int {
	out := make([]int, 0, len(kp.PaillierPKs))
	for i := range kp.PaillierPKs {
		out = append(out, i)
	}
	return out
}
