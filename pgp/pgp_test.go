package pgp

import (
	"encoding/hex"
	"math/big"
	"testing"
)

func mustBigInt(t *testing.T, s string) *big.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		t.Fatalf("bad hex literal %q", s)
	}
	return n
}

func TestPublicKeyPacketBitExact(t *testing.T) {
	x := mustBigInt(t, "FEF3AABB21A88FEA5BC502FD734C58EBFC8B906697F1B9ED2089479D4A8E77A9")
	y := mustBigInt(t, "1E67A0A2613DD9EB1CC891CD64E5420DA8C6C93B61A91EE3A468A0B158084A1D")
	pk := &PublicKey{CreatedAt: 0x60F8184A, X: x, Y: y}

	body := pk.Raw()
	if len(body) != 0x4F {
		t.Fatalf("public key body length = %#x, want 0x4F", len(body))
	}
	formatted := pk.Formatted()
	if formatted[1] != 0x4F {
		t.Fatalf("formatted length byte = %#x, want 0x4F", formatted[1])
	}

	keyID := pk.KeyID()
	want := []byte{0xD1, 0x1D, 0xDB, 0x06, 0x0E, 0x9B, 0xFA, 0xE6}
	if hex.EncodeToString(keyID) != hex.EncodeToString(want) {
		t.Errorf("key-ID = %X, want %X", keyID, want)
	}
}

func TestFingerprintInvariants(t *testing.T) {
	x := mustBigInt(t, "FEF3AABB21A88FEA5BC502FD734C58EBFC8B906697F1B9ED2089479D4A8E77A9")
	y := mustBigInt(t, "1E67A0A2613DD9EB1CC891CD64E5420DA8C6C93B61A91EE3A468A0B158084A1D")
	pk := &PublicKey{CreatedAt: 0x60F8184A, X: x, Y: y}

	fp1 := pk.Fingerprint()
	if len(fp1) != 20 {
		t.Fatalf("fingerprint length = %d, want 20", len(fp1))
	}
	fp2 := pk.Fingerprint()
	if hex.EncodeToString(fp1) != hex.EncodeToString(fp2) {
		t.Error("fingerprint not stable across calls")
	}
	if hex.EncodeToString(pk.KeyID()) != hex.EncodeToString(fp1[len(fp1)-8:]) {
		t.Error("key-ID must equal the fingerprint's last 8 bytes")
	}
}

func TestRadix64Encoding(t *testing.T) {
	b1, _ := hex.DecodeString("14FB9C03D97E")
	if got := radix64.EncodeToString(b1); got != "FPucA9l+" {
		t.Errorf("radix64(%X) = %q, want FPucA9l+", b1, got)
	}
	b2, _ := hex.DecodeString("14FB9C03D9")
	if got := radix64.EncodeToString(b2); got != "FPucA9k=" {
		t.Errorf("radix64(%X) = %q, want FPucA9k=", b2, got)
	}
}

func TestMPIBitLength(t *testing.T) {
	if got := bitLen([]byte{0x01}); got != 1 {
		t.Errorf("bitLen([01]) = %d, want 1", got)
	}
	data, _ := hex.DecodeString("6B000000000000000000000000000000000000000000000000000000000000FF")
	if len(data) != 32 {
		t.Fatalf("test fixture must be 32 bytes, got %d", len(data))
	}
	if got := bitLen(data); got != 255 {
		t.Errorf("bitLen(32 bytes starting 6B) = %d, want 255", got)
	}
}

func TestSubpacketLengthEncodingShortestForm(t *testing.T) {
	cases := []struct {
		n       int
		wantLen int
	}{
		{0, 1},
		{191, 1},
		{192, 2},
		{8383, 2},
		{8384, 5},
		{100000, 5},
	}
	for _, c := range cases {
		got := encodeLength(c.n)
		if len(got) != c.wantLen {
			t.Errorf("encodeLength(%d) produced %d bytes, want %d", c.n, len(got), c.wantLen)
		}
	}
}

func TestArmorDearmorRoundTrip(t *testing.T) {
	sig := NewPartialSignature(SigTypeBinaryDocument, []Subpacket{CreationTimeSubpacket(1700000000)})
	sig.Finalize([]byte{0xD1, 0x1D, 0xDB, 0x06, 0x0E, 0x9B, 0xFA, 0xE6}, [2]byte{0x8A, 0x59}, big.NewInt(12345), big.NewInt(67890))
	binary := sig.Formatted()

	armored := Armor(binary)
	decoded, err := Dearmor(armored)
	if err != nil {
		t.Fatalf("Dearmor failed: %v", err)
	}
	if hex.EncodeToString(decoded) != hex.EncodeToString(binary) {
		t.Errorf("round trip mismatch:\n got:  %X\n want: %X", decoded, binary)
	}
}

func TestDearmorRejectsBadChecksum(t *testing.T) {
	sig := NewPartialSignature(SigTypeBinaryDocument, nil)
	sig.Finalize([]byte{1, 2, 3, 4, 5, 6, 7, 8}, [2]byte{0, 0}, big.NewInt(1), big.NewInt(2))
	armored := Armor(sig.Formatted())
	crcAt := len(armored) - len(armorFooter) - 4 // the four radix-64 checksum characters
	tampered := armored[:crcAt] + "AAAA" + armored[crcAt+4:]
	if _, err := Dearmor(tampered); err == nil {
		t.Error("expected checksum mismatch error")
	}
}

func TestCertificationSubpacketOrder(t *testing.T) {
	fp := make([]byte, 20)
	subs := CertificationSubpackets(fp, 1700000000)
	wantTypes := []byte{
		SubSignatureCreationTime,
		SubIssuerFingerprint,
		SubKeyFlags,
		SubPreferredSymmetric,
		SubPreferredHash,
		SubPreferredCompression,
		SubKeyServerPrefs,
	}
	if len(subs) != len(wantTypes) {
		t.Fatalf("got %d subpackets, want %d", len(subs), len(wantTypes))
	}
	for i, want := range wantTypes {
		if subs[i].Type != want {
			t.Errorf("subpacket %d type = %d, want %d", i, subs[i].Type, want)
		}
	}
}

func TestKeyMessageAndTagMessageFinalize(t *testing.T) {
	x := mustBigInt(t, "FEF3AABB21A88FEA5BC502FD734C58EBFC8B906697F1B9ED2089479D4A8E77A9")
	y := mustBigInt(t, "1E67A0A2613DD9EB1CC891CD64E5420DA8C6C93B61A91EE3A468A0B158084A1D")
	pk := &PublicKey{CreatedAt: 0x60F8184A, X: x, Y: y}
	uid := &UserID{ID: "Alice <alice@example.org>"}

	msg := NewKeyMessage(pk, uid, 0x60F8184A)
	if msg.Signature.Finalized() {
		t.Fatal("signature should start unfinalized")
	}
	preimage := msg.HashPreimage(nil)
	if len(preimage) == 0 {
		t.Fatal("expected non-empty hash preimage")
	}
	msg.Signature.Finalize(pk.KeyID(), [2]byte{0x8A, 0x59}, big.NewInt(111), big.NewInt(222))
	if !msg.Signature.Finalized() {
		t.Fatal("expected signature to be finalized")
	}
	formatted := msg.Formatted()
	if len(formatted) == 0 {
		t.Fatal("expected non-empty formatted message")
	}

	tagMsg := NewTagMessage(1700000000)
	preimage2 := tagMsg.HashPreimage([]byte("object deadbeef\ntype commit\ntag 0.1\n\nhello\n"))
	if len(preimage2) == 0 {
		t.Fatal("expected non-empty tag hash preimage")
	}
}
