// Package keystore persists the artifacts a successful DKG run produces
// into a repository's .git/.dit directory: the raw key-pair share a party
// needs to take part in future signing operations, and the OpenPGP
// material (armored public key, raw key-ID) external verifiers and git
// itself consume.
package keystore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"dit/errs"
	"dit/tss/party"
	"dit/util"
)

const dirName = ".dit"

// Dir returns <gitDir>/.dit, creating it if necessary.
func Dir(gitDir string) (string, error) {
	dir := filepath.Join(gitDir, dirName)
	if err := util.EnforceDirExists(dir); err != nil {
		return "", errs.New(errs.FileSystem, "creating "+dir, err)
	}
	return dir, nil
}

// SaveKeyPair writes kp, sealed under dir's own seal key, as
// public_key.json under dir. Despite the name this file carries the
// party's full DKG share, not just public material, so it is encrypted
// at rest rather than written out as plain JSON.
func SaveKeyPair(dir string, kp *party.KeyPair) error {
	raw, err := json.MarshalIndent(kp, "", "  ")
	if err != nil {
		return errs.New(errs.Decode, "encoding key pair", err)
	}
	sealed, err := seal(dir, raw)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "public_key.json")
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return errs.New(errs.FileSystem, "writing "+path, err)
	}
	return nil
}

// LoadKeyPair reads public_key.json back from dir and unseals it.
func LoadKeyPair(dir string) (*party.KeyPair, error) {
	path := filepath.Join(dir, "public_key.json")
	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.FileSystem, "reading "+path, err)
	}
	raw, err := unseal(dir, sealed)
	if err != nil {
		return nil, err
	}
	kp := new(party.KeyPair)
	if err := json.Unmarshal(raw, kp); err != nil {
		return nil, errs.New(errs.Decode, "decoding key pair", err)
	}
	return kp, nil
}

// SaveKeyFile writes the armored OpenPGP public-key message to
// keyfile.pgp, and the raw 8-byte key-ID to keyid, under dir.
func SaveKeyFile(dir string, armoredKey string, keyID []byte) error {
	keyfilePath := filepath.Join(dir, "keyfile.pgp")
	if err := os.WriteFile(keyfilePath, []byte(armoredKey), 0o644); err != nil {
		return errs.New(errs.FileSystem, "writing "+keyfilePath, err)
	}
	keyidPath := filepath.Join(dir, "keyid")
	if err := os.WriteFile(keyidPath, keyID, 0o644); err != nil {
		return errs.New(errs.FileSystem, "writing "+keyidPath, err)
	}
	return nil
}

// LoadKeyID reads back the raw key-ID written by SaveKeyFile.
func LoadKeyID(dir string) ([]byte, error) {
	path := filepath.Join(dir, "keyid")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.FileSystem, "reading "+path, err)
	}
	return raw, nil
}
