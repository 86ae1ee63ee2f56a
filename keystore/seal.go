// Sealing at rest for the secret material keystore persists: a repo
// clone's .dit directory holds the only copy of this party's DKG share,
// so the file permissions that protect it are backed by GNUnet's own
// two-layer AES+Twofish stream-cipher scheme, adapted from
// gnunet-go's crypto/symmetric.go.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"os"
	"path/filepath"

	"golang.org/x/crypto/twofish"

	"dit/errs"
)

const (
	sealKeyFile = "seal.key"
	sealKeySize = 64 // 32 bytes AES key + 32 bytes Twofish key
	sealIVSize  = 32 // 16 bytes AES IV + 16 bytes Twofish IV
)

// sealKey is the two-layer key a repository's .dit directory seals its
// persisted key pair with.
type sealKey struct {
	aesKey     []byte
	twofishKey []byte
}

// loadOrCreateSealKey reads dir/seal.key, generating a fresh random one
// on first use. The key never leaves dir, so a sealed public_key.json is
// only readable from the clone that produced it.
func loadOrCreateSealKey(dir string) (*sealKey, error) {
	path := filepath.Join(dir, sealKeyFile)
	raw, err := os.ReadFile(path)
	if err == nil {
		if len(raw) != sealKeySize {
			return nil, errs.Newf(errs.Decode, "seal key %s is corrupt (want %d bytes, got %d)", path, sealKeySize, len(raw))
		}
		return &sealKey{aesKey: raw[:32], twofishKey: raw[32:]}, nil
	}
	if !os.IsNotExist(err) {
		return nil, errs.New(errs.FileSystem, "reading "+path, err)
	}
	raw = make([]byte, sealKeySize)
	if _, err := rand.Read(raw); err != nil {
		return nil, errs.New(errs.FileSystem, "generating seal key", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return nil, errs.New(errs.FileSystem, "writing "+path, err)
	}
	return &sealKey{aesKey: raw[:32], twofishKey: raw[32:]}, nil
}

// seal encrypts data under dir's seal key with a fresh random IV,
// returning iv||ciphertext.
func seal(dir string, data []byte) ([]byte, error) {
	key, err := loadOrCreateSealKey(dir)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, sealIVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, errs.New(errs.FileSystem, "generating seal iv", err)
	}
	out, err := twoLayerEncrypt(data, key, iv)
	if err != nil {
		return nil, errs.New(errs.Decode, "sealing key pair", err)
	}
	return append(iv, out...), nil
}

// unseal reverses seal.
func unseal(dir string, sealed []byte) ([]byte, error) {
	if len(sealed) < sealIVSize {
		return nil, errs.Newf(errs.Decode, "sealed key pair is truncated")
	}
	key, err := loadOrCreateSealKey(dir)
	if err != nil {
		return nil, err
	}
	iv, ciphertext := sealed[:sealIVSize], sealed[sealIVSize:]
	out, err := twoLayerDecrypt(ciphertext, key, iv)
	if err != nil {
		return nil, errs.New(errs.Decode, "unsealing key pair", err)
	}
	return out, nil
}

// twoLayerEncrypt implements GNUnet's two-layer scheme:
// OUT = twofish_cfb(aes_cfb(IN)).
func twoLayerEncrypt(data []byte, key *sealKey, iv []byte) ([]byte, error) {
	aesBlock, err := aes.NewCipher(key.aesKey)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cipher.NewCFBEncrypter(aesBlock, iv[:16]).XORKeyStream(out, data)

	tf, err := twofish.NewCipher(key.twofishKey)
	if err != nil {
		return nil, err
	}
	cipher.NewCFBEncrypter(tf, iv[16:]).XORKeyStream(out, out)
	return out, nil
}

// twoLayerDecrypt reverses twoLayerEncrypt: OUT = aes_cfb(twofish_cfb(IN)).
func twoLayerDecrypt(data []byte, key *sealKey, iv []byte) ([]byte, error) {
	tf, err := twofish.NewCipher(key.twofishKey)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cipher.NewCFBDecrypter(tf, iv[16:]).XORKeyStream(out, data)

	aesBlock, err := aes.NewCipher(key.aesKey)
	if err != nil {
		return nil, err
	}
	cipher.NewCFBDecrypter(aesBlock, iv[:16]).XORKeyStream(out, out)
	return out, nil
}
