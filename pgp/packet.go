// Package pgp assembles RFC 4880 OpenPGP packets byte-exactly: Public-Key,
// User-ID, and Signature packets over a secp256k1/ECDSA key, their
// fingerprint/key-ID derivation, and ASCII-armored output.
package pgp

// Packet tags (old packet format, RFC 4880 section 4.3).
const (
	TagSignature = 2
	TagPublicKey = 6
	TagUserID    = 13
)

// View is the capability set every packet variant exposes: its raw and
// formatted byte views. The hashable view differs in shape per packet type
// and is a separate method (Hashable or HashablePreimage).
type View interface {
	Raw() []byte       // body only
	Formatted() []byte // header + body, as it appears on the wire
}

// encodePacketHeader builds an old-format packet header: a tag byte with
// the MSB set and bit 6 clear, bits 5-2 the packet tag, and the low two bits
// selecting a 1, 2, or 4-byte length field, followed by that length.
func encodePacketHeader(tag int, length int) []byte {
	switch {
	case length < 1<<8:
		return []byte{byte(0x80 | (tag << 2) | 0), byte(length)}
	case length < 1<<16:
		return []byte{byte(0x80 | (tag << 2) | 1), byte(length >> 8), byte(length)}
	default:
		return []byte{
			byte(0x80 | (tag << 2) | 2),
			byte(length >> 24), byte(length >> 16), byte(length >> 8), byte(length),
		}
	}
}

func formatPacket(tag int, body []byte) []byte {
	return append(encodePacketHeader(tag, len(body)), body...)
}
