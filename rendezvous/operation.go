// Package rendezvous holds the types shared between the rendezvous server
// and its HTTP client: the per-project operation descriptor, the tag
// pre-image record, and the mailbox key format both sides agree on.
package rendezvous

import "fmt"

// Kind identifies which variant of the operation tagged union is active.
type Kind string

const (
	KindIdle    Kind = "idle"
	KindKeyGen  Kind = "keygen"
	KindSignKey Kind = "signkey"
	KindSignTag Kind = "signtag"
	KindBlame   Kind = "blame"
)

// Operation is the tagged union describing a project's current activity.
// Only the fields relevant to Kind are meaningful; the server never
// interprets the others.
type Operation struct {
	Kind         Kind       `json:"kind"`
	ID           string     `json:"id,omitempty"` // assigned on the Idle -> X transition
	Participants int        `json:"participants,omitempty"`
	Threshold    int        `json:"threshold,omitempty"`
	Leader       string     `json:"leader,omitempty"`
	Email        string     `json:"email,omitempty"`
	Epoch        int64      `json:"epoch,omitempty"`
	Tag          *TagRecord `json:"tag,omitempty"`
}

// Idle returns the zero-value Idle operation.
func Idle() Operation { return Operation{Kind: KindIdle} }

// Quota returns the participant quota this operation enforces at signup:
// n for KeyGen, t+1 for SignKey/SignTag, 0 otherwise.
func (op Operation) Quota() int {
	switch op.Kind {
	case KindKeyGen:
		return op.Participants
	case KindSignKey, KindSignTag:
		return op.Threshold + 1
	default:
		return 0
	}
}

// TagRecord fully determines a Git annotated-tag pre-image.
type TagRecord struct {
	CreatorName string `json:"creator_name"`
	Email       string `json:"email"`
	Epoch       int64  `json:"epoch"`
	Timezone    string `json:"timezone"`
	CommitHash  string `json:"commit_hash"`
	TagName     string `json:"tag_name"`
	Message     string `json:"message"`
}

// Preimage renders the exact byte sequence signed for an annotated tag.
func (t *TagRecord) Preimage() string {
	return fmt.Sprintf("object %s\ntype commit\ntag %s\ntagger %s <%s> %d %s\n\n%s\n",
		t.CommitHash, t.TagName, t.CreatorName, t.Email, t.Epoch, t.Timezone, t.Message)
}

// BroadcastKey is the mailbox key a broadcast write/read uses.
func BroadcastKey(from int, round string) string {
	return fmt.Sprintf("%d-%s", from, round)
}

// P2PKey is the mailbox key a point-to-point write/read uses.
func P2PKey(from, to int, round string) string {
	return fmt.Sprintf("%d-%d-%s", from, to, round)
}
