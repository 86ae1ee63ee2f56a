package keystore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealUnsealRoundTrip(t *testing.T) {
	dir := t.TempDir()

	plaintext := []byte("threshold share material, handle with care")
	sealed, err := seal(dir, plaintext)
	require.NoError(t, err)
	require.False(t, bytes.Contains(sealed, plaintext), "ciphertext must not leak the plaintext")

	got, err := unseal(dir, sealed)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestSealIsNonDeterministic(t *testing.T) {
	dir := t.TempDir()

	plaintext := []byte("same plaintext, different IV each time")
	a, err := seal(dir, plaintext)
	require.NoError(t, err)
	b, err := seal(dir, plaintext)
	require.NoError(t, err)
	require.NotEqual(t, a, b, "a fresh IV must be drawn for each seal call")

	gotA, err := unseal(dir, a)
	require.NoError(t, err)
	gotB, err := unseal(dir, b)
	require.NoError(t, err)
	require.Equal(t, plaintext, gotA)
	require.Equal(t, plaintext, gotB)
}

func TestLoadOrCreateSealKeyIsStable(t *testing.T) {
	dir := t.TempDir()

	k1, err := loadOrCreateSealKey(dir)
	require.NoError(t, err)
	k2, err := loadOrCreateSealKey(dir)
	require.NoError(t, err)
	require.Equal(t, k1.aesKey, k2.aesKey)
	require.Equal(t, k1.twofishKey, k2.twofishKey)
}

func TestUnsealRejectsTruncatedInput(t *testing.T) {
	dir := t.TempDir()
	_, err := unseal(dir, []byte("short"))
	require.Error(t, err)
}
