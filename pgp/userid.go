package pgp

// UserID is an RFC 4880 User ID packet: a free-form UTF-8 string, typically
// "Name <email>".
type UserID struct {
	ID string
}

// Raw is the packet body: the UTF-8 bytes of the ID, verbatim.
func (u *UserID) Raw() []byte {
	return []byte(u.ID)
}

// Hashable is the certification pre-image for a User-ID packet:
// 0xB4 || len:u32 || body.
func (u *UserID) Hashable() []byte {
	body := u.Raw()
	out := make([]byte, 0, 5+len(body))
	n := uint32(len(body))
	out = append(out, 0xB4, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	out = append(out, body...)
	return out
}

// Formatted is the packet as it appears in a key file: header + body.
func (u *UserID) Formatted() []byte {
	return formatPacket(TagUserID, u.Raw())
}
