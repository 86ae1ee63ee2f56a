package zkp

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"dit/tss/curve"
)

func TestSchnorrProofVerifies(t *testing.T) {
	x, err := curve.RandomScalar()
	require.NoError(t, err)
	y := curve.ScalarBaseMul(x)

	proof, err := Prove(x)
	require.NoError(t, err)
	require.True(t, Verify(y, proof))
}

func TestSchnorrProofRejectsWrongPublicPoint(t *testing.T) {
	x, err := curve.RandomScalar()
	require.NoError(t, err)
	other, err := curve.RandomScalar()
	require.NoError(t, err)
	wrongY := curve.ScalarBaseMul(other)

	proof, err := Prove(x)
	require.NoError(t, err)
	require.False(t, Verify(wrongY, proof))
}

func TestDLogStatementDistinctGenerators(t *testing.T) {
	n := big.NewInt(1000000007 * 998244353)
	stmt := NewDLogStatement(n, []byte("party-1"))
	require.NotEqual(t, 0, stmt.H1.Cmp(stmt.H2))
}
