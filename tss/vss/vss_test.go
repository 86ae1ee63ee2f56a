package vss

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"dit/tss/curve"
)

func TestShareVerifiesAgainstCommitments(t *testing.T) {
	secret, err := curve.RandomScalar()
	require.NoError(t, err)
	poly, err := NewPolynomial(secret, 2)
	require.NoError(t, err)
	commitments := poly.Commitments()

	for _, idx := range []int{1, 2, 3, 4} {
		share := poly.Evaluate(big.NewInt(int64(idx)))
		require.True(t, VerifyShare(commitments, idx, share), "share for party %d should verify", idx)
	}
}

func TestTamperedShareFailsVerification(t *testing.T) {
	secret, err := curve.RandomScalar()
	require.NoError(t, err)
	poly, err := NewPolynomial(secret, 1)
	require.NoError(t, err)
	commitments := poly.Commitments()

	share := poly.Evaluate(big.NewInt(1))
	tampered := curve.AddMod(share, big.NewInt(1))
	require.False(t, VerifyShare(commitments, 1, tampered))
}

func TestReconstructSecretFromThresholdShares(t *testing.T) {
	secret, err := curve.RandomScalar()
	require.NoError(t, err)
	threshold := 2
	poly, err := NewPolynomial(secret, threshold)
	require.NoError(t, err)

	indices := []int{1, 2, 3}
	shares := make(map[int]*big.Int)
	for _, i := range indices {
		shares[i] = poly.Evaluate(big.NewInt(int64(i)))
	}
	got := ReconstructSecret(indices, shares)
	require.Equal(t, 0, got.Cmp(secret))
}
