// Package paillier implements the additively homomorphic Paillier
// cryptosystem over math/big: each DKG party generates its own keypair,
// and the signing engine's MTA (multiplicative-to-additive) conversion
// encrypts one party's scalar under another's public key so the
// counterparty can combine it with its own share without ever learning it
// in the clear.
package paillier

import (
	"crypto/rand"
	"math/big"

	"dit/errs"
)

const primeBits = 1024

var one = big.NewInt(1)

// PublicKey is a Paillier public key: the modulus N and its square N^2.
type PublicKey struct {
	N  *big.Int
	N2 *big.Int
}

// PrivateKey is a Paillier private key in the form used for decryption:
// λ = lcm(p-1, q-1) and μ = λ^-1 mod N.
type PrivateKey struct {
	PublicKey
	Lambda *big.Int
	Mu     *big.Int
}

// GenerateKeyPair samples two random safe-ish primes of primeBits each and
// derives a Paillier keypair from them.
func GenerateKeyPair() (*PrivateKey, error) {
	var p, q *big.Int
	var err error
	for {
		p, err = rand.Prime(rand.Reader, primeBits)
		if err != nil {
			return nil, errs.New(errs.Protocol, "generating Paillier prime p", err)
		}
		q, err = rand.Prime(rand.Reader, primeBits)
		if err != nil {
			return nil, errs.New(errs.Protocol, "generating Paillier prime q", err)
		}
		if p.Cmp(q) != 0 {
			break
		}
	}
	n := new(big.Int).Mul(p, q)
	n2 := new(big.Int).Mul(n, n)

	pMinus1 := new(big.Int).Sub(p, one)
	qMinus1 := new(big.Int).Sub(q, one)
	lambda := lcm(pMinus1, qMinus1)

	// With g = N+1 (the standard simplification), L(g^λ mod N^2) = λ, so
	// μ = λ^-1 mod N directly.
	mu := new(big.Int).ModInverse(lambda, n)
	if mu == nil {
		return nil, errs.Newf(errs.Protocol, "Paillier key generation failed: λ not invertible mod N")
	}

	pub := PublicKey{N: n, N2: n2}
	return &PrivateKey{PublicKey: pub, Lambda: lambda, Mu: mu}, nil
}

func lcm(a, b *big.Int) *big.Int {
	gcd := new(big.Int).GCD(nil, nil, a, b)
	return new(big.Int).Div(new(big.Int).Mul(a, b), gcd)
}

// Encrypt computes c = (1+N)^m · r^N mod N^2 for a fresh random nonce r,
// returning the ciphertext and the nonce (callers needing a verifiable
// encryption keep the nonce; most MTA use discards it).
func (pub *PublicKey) Encrypt(m *big.Int) (ciphertext, nonce *big.Int, err error) {
	for {
		nonce, err = rand.Int(rand.Reader, pub.N)
		if err != nil {
			return nil, nil, errs.New(errs.Protocol, "sampling Paillier nonce", err)
		}
		if nonce.Sign() != 0 {
			break
		}
	}
	gm := new(big.Int).Exp(addOne(pub.N), m, pub.N2) // (1+N)^m mod N^2 == 1+mN mod N^2
	rn := new(big.Int).Exp(nonce, pub.N, pub.N2)
	c := new(big.Int).Mod(new(big.Int).Mul(gm, rn), pub.N2)
	return c, nonce, nil
}

func addOne(n *big.Int) *big.Int {
	return new(big.Int).Add(n, one)
}

// Decrypt recovers m from ciphertext c using the private key.
func (priv *PrivateKey) Decrypt(c *big.Int) *big.Int {
	u := new(big.Int).Exp(c, priv.Lambda, priv.N2)
	l := lFunction(u, priv.N)
	return new(big.Int).Mod(new(big.Int).Mul(l, priv.Mu), priv.N)
}

// lFunction computes L(x) = (x-1)/N, the standard Paillier decryption step.
func lFunction(x, n *big.Int) *big.Int {
	t := new(big.Int).Sub(x, one)
	return new(big.Int).Div(t, n)
}

// DecryptSigned decrypts c and interprets the result as a signed integer
// in (-N/2, N/2] rather than the canonical residue in [0, N): callers that
// encrypted a value known to lie in that symmetric range (the MTA masking
// in the signing engine) get back the actual signed value instead of its
// positive residue mod N.
func (priv *PrivateKey) DecryptSigned(c *big.Int) *big.Int {
	raw := priv.Decrypt(c)
	half := new(big.Int).Rsh(priv.N, 1)
	if raw.Cmp(half) > 0 {
		return new(big.Int).Sub(raw, priv.N)
	}
	return raw
}

// HomomorphicAdd returns an encryption of m1+m2 given encryptions of each.
func (pub *PublicKey) HomomorphicAdd(c1, c2 *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Mul(c1, c2), pub.N2)
}

// HomomorphicMulConst returns an encryption of k*m given an encryption of m.
func (pub *PublicKey) HomomorphicMulConst(c, k *big.Int) *big.Int {
	return new(big.Int).Exp(c, k, pub.N2)
}
