// Package vss implements Feldman verifiable secret sharing over
// secp256k1: a dealer splits a secret into Shamir shares and commits to
// its sharing polynomial's coefficients as group elements, letting any
// holder of a share verify it against the public commitments without
// trusting the dealer.
package vss

import (
	"math/big"

	"dit/errs"
	"dit/tss/curve"
)

// Polynomial is a dealer's secret sharing polynomial; Coeffs[0] is the
// secret itself.
type Polynomial struct {
	Coeffs []*big.Int
}

// NewPolynomial samples a degree-t polynomial with the given constant
// term (the secret being shared).
func NewPolynomial(secret *big.Int, threshold int) (*Polynomial, error) {
	coeffs := make([]*big.Int, threshold+1)
	coeffs[0] = new(big.Int).Set(secret)
	for i := 1; i <= threshold; i++ {
		c, err := curve.RandomScalar()
		if err != nil {
			return nil, errs.New(errs.Protocol, "sampling VSS polynomial coefficient", err)
		}
		coeffs[i] = c
	}
	return &Polynomial{Coeffs: coeffs}, nil
}

// Evaluate computes f(x) mod the curve order.
func (p *Polynomial) Evaluate(x *big.Int) *big.Int {
	result := new(big.Int)
	power := big.NewInt(1)
	for _, c := range p.Coeffs {
		term := curve.MulMod(c, power)
		result = curve.AddMod(result, term)
		power = curve.MulMod(power, x)
	}
	return result
}

// Commitments returns g^{coeff_i} for every coefficient — the public
// commitment vector other parties verify shares against.
func (p *Polynomial) Commitments() []*curve.Point {
	out := make([]*curve.Point, len(p.Coeffs))
	for i, c := range p.Coeffs {
		out[i] = curve.ScalarBaseMul(c)
	}
	return out
}

// VerifyShare checks that share = f(index) is consistent with the public
// commitment vector: g^share must equal Σ commitments[k]·index^k.
func VerifyShare(commitments []*curve.Point, index int, share *big.Int) bool {
	lhs := curve.ScalarBaseMul(share)

	rhs := &curve.Point{}
	power := big.NewInt(1)
	x := big.NewInt(int64(index))
	for _, c := range commitments {
		term := curve.ScalarMul(c, power)
		rhs = curve.Add(rhs, term)
		power = curve.MulMod(power, x)
	}
	return curve.Equal(lhs, rhs)
}

// LagrangeCoefficient computes the Lagrange basis coefficient for party
// `index` interpolating at x=0, given the full set of participating
// indices.
func LagrangeCoefficient(index int, indices []int) *big.Int {
	num := big.NewInt(1)
	den := big.NewInt(1)
	xi := big.NewInt(int64(index))
	for _, j := range indices {
		if j == index {
			continue
		}
		xj := big.NewInt(int64(j))
		num = curve.MulMod(num, xj)
		diff := new(big.Int).Sub(xj, xi)
		den = curve.MulMod(den, diff)
	}
	return curve.MulMod(num, curve.Inverse(den))
}

// ReconstructSecret recombines threshold+1 shares into the shared secret,
// used only for testing — parties in the live protocol never see enough
// shares to call this.
func ReconstructSecret(indices []int, shares map[int]*big.Int) *big.Int {
	secret := new(big.Int)
	for _, i := range indices {
		lambda := LagrangeCoefficient(i, indices)
		term := curve.MulMod(lambda, shares[i])
		secret = curve.AddMod(secret, term)
	}
	return secret
}
