package pgp

// Message is an OpenPGP packet sequence constrained to one of the two
// shapes dit produces: a self-certified public key (PublicKey, UserID,
// Signature) or a standalone document signature (Signature alone).
type Message struct {
	PublicKey *PublicKey
	UserID    *UserID
	Signature *Signature
}

// NewKeyMessage starts a self-certification message for a freshly
// generated group key: the fixed hashed-subpacket set the spec requires,
// ready for the caller to hash and finalize.
func NewKeyMessage(pk *PublicKey, uid *UserID, createdAt uint32) *Message {
	hashed := CertificationSubpackets(pk.Fingerprint(), createdAt)
	return &Message{
		PublicKey: pk,
		UserID:    uid,
		Signature: NewPartialSignature(SigTypePositiveCertUID, hashed),
	}
}

// NewTagMessage starts a standalone binary-document signature over a Git
// tag pre-image.
func NewTagMessage(createdAt uint32) *Message {
	hashed := []Subpacket{CreationTimeSubpacket(createdAt)}
	return &Message{
		Signature: NewPartialSignature(SigTypeBinaryDocument, hashed),
	}
}

// HashPreimage returns the full byte sequence that must be digested to
// produce this message's signature: for a key message, the public-key and
// user-ID hashable views precede the signature's own hashable preimage;
// for a tag message, the caller's document bytes (passed in) precede it.
func (m *Message) HashPreimage(document []byte) []byte {
	var out []byte
	if m.PublicKey != nil {
		out = append(out, m.PublicKey.Hashable()...)
	}
	if m.UserID != nil {
		out = append(out, m.UserID.Hashable()...)
	}
	out = append(out, document...)
	out = append(out, m.Signature.HashablePreimage()...)
	return out
}

// Formatted concatenates the formatted view of every packet present, in
// the order RFC 4880 requires: PublicKey, UserID, Signature.
func (m *Message) Formatted() []byte {
	var out []byte
	if m.PublicKey != nil {
		out = append(out, m.PublicKey.Formatted()...)
	}
	if m.UserID != nil {
		out = append(out, m.UserID.Formatted()...)
	}
	out = append(out, m.Signature.Formatted()...)
	return out
}

// Armored ASCII-armors the Signature packet alone, the form dit attaches
// to a Git tag object.
func (m *Message) Armored() string {
	return Armor(m.Signature.Formatted())
}
