// Package transport defines the narrow interface the DKG and signing
// engines use to talk to their peers, so that those engines stay
// independent of how messages actually travel (HTTP rendezvous server,
// an in-process fake for tests, or anything else implementing the same
// four operations).
package transport

// Channel is the message-passing contract a protocol round needs:
// broadcast one payload per round and block until every other party's
// broadcast for that round has arrived, or do the point-to-point
// equivalent.
type Channel interface {
	// Broadcast publishes payload under this party's name for round.
	Broadcast(round string, payload []byte) error
	// PollBroadcasts blocks until every index in [1, n] except me has
	// broadcast for round, then returns their payloads keyed by index.
	PollBroadcasts(round string, n, me int) (map[int][]byte, error)
	// SendP2P sends payload to party `to` under this party's name for round.
	SendP2P(to int, round string, payload []byte) error
	// PollP2P blocks until every index in [1, n] except me has sent this
	// party a p2p message for round, then returns the payloads keyed by
	// sender index.
	PollP2P(round string, n, me int) (map[int][]byte, error)
}
