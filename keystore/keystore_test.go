package keystore

import (
	"bytes"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"dit/tss/curve"
	"dit/tss/paillier"
	"dit/tss/party"
	"dit/tss/zkp"
)

func sampleKeyPair(t *testing.T) *party.KeyPair {
	t.Helper()
	sk, err := paillier.GenerateKeyPair()
	require.NoError(t, err)
	return &party.KeyPair{
		Index:          1,
		Params:         party.Parameters{Participants: 3, Threshold: 1},
		Share:          big.NewInt(424242),
		PaillierSK:     sk,
		GroupPublicKey: curve.ScalarBaseMul(big.NewInt(7)),
		VSSCommitments: map[int][]*curve.Point{1: {curve.ScalarBaseMul(big.NewInt(7))}},
		PaillierPKs:    map[int]*paillier.PublicKey{1: &sk.PublicKey},
		DLogStatements: map[int]*zkp.DLogStatement{},
	}
}

func TestSaveLoadKeyPairRoundTrip(t *testing.T) {
	dir, err := Dir(t.TempDir())
	require.NoError(t, err)

	kp := sampleKeyPair(t)
	require.NoError(t, SaveKeyPair(dir, kp))

	got, err := LoadKeyPair(dir)
	require.NoError(t, err)
	require.Equal(t, 0, got.Share.Cmp(kp.Share))
	require.Equal(t, 0, got.GroupPublicKey.X.Cmp(kp.GroupPublicKey.X))
}

func TestSaveKeyPairSealsFileAtRest(t *testing.T) {
	dir, err := Dir(t.TempDir())
	require.NoError(t, err)

	kp := sampleKeyPair(t)
	require.NoError(t, SaveKeyPair(dir, kp))

	raw, err := os.ReadFile(filepath.Join(dir, "public_key.json"))
	require.NoError(t, err)
	require.False(t, bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")),
		"public_key.json must not be stored as plain JSON")

	_, err = os.Stat(filepath.Join(dir, sealKeyFile))
	require.NoError(t, err, "a seal key must be generated alongside the sealed key pair")
}

func TestLoadKeyPairFailsWithMismatchedSealKey(t *testing.T) {
	dir, err := Dir(t.TempDir())
	require.NoError(t, err)

	kp := sampleKeyPair(t)
	require.NoError(t, SaveKeyPair(dir, kp))

	// Swap in a different seal key, simulating a public_key.json copied
	// out of its original .dit directory.
	otherDir, err := Dir(t.TempDir())
	require.NoError(t, err)
	_, err = loadOrCreateSealKey(otherDir)
	require.NoError(t, err)
	otherKey, err := os.ReadFile(filepath.Join(otherDir, sealKeyFile))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, sealKeyFile), otherKey, 0o600))

	_, err = LoadKeyPair(dir)
	require.Error(t, err)
}

func TestSaveLoadKeyFileRoundTrip(t *testing.T) {
	dir, err := Dir(t.TempDir())
	require.NoError(t, err)

	keyID := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, SaveKeyFile(dir, "-----BEGIN PGP PUBLIC KEY BLOCK-----\n...\n", keyID))

	got, err := LoadKeyID(dir)
	require.NoError(t, err)
	require.Equal(t, keyID, got)
}
