// Package channel implements dit/tss/transport.Channel over HTTP against a
// rendezvous server: broadcasts and p2p sends are POSTs to /set, and the
// corresponding polls retry /get until every expected entry has arrived.
// The retry discipline mirrors the original Rust client: a handful of
// quick retries for one-shot calls, and patient, unbounded polling for
// the blocking receive calls a protocol round waits on.
package channel

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"dit/errs"
	"dit/rendezvous"
	"dit/tss/transport"
)

var _ transport.Channel = (*Channel)(nil)

const (
	postRetries  = 3
	postDelay    = 250 * time.Millisecond
	pollInterval = 25 * time.Millisecond
)

// Channel is an HTTP-backed rendezvous client scoped to one project and one
// party index within it.
type Channel struct {
	client      *http.Client
	addr        string
	projectName string
	me          int
}

// New returns a Channel that talks to the rendezvous server at addr
// (e.g. "http://localhost:8080") on behalf of party index me within
// project projectName.
func New(addr, projectName string, me int) *Channel {
	return &Channel{client: &http.Client{}, addr: addr, projectName: projectName, me: me}
}

// StartOperation asks the server to transition the project from Idle to op,
// returning the server-assigned operation (with its ID filled in).
func (c *Channel) StartOperation(op rendezvous.Operation) (rendezvous.Operation, error) {
	var resp rendezvous.OperationResponse
	err := c.postOnce("/start-operation", rendezvous.StartOperationRequest{ProjectName: c.projectName, Operation: op}, &resp)
	return resp.Operation, err
}

// CurrentOperation fetches the project's current operation.
func (c *Channel) CurrentOperation() (rendezvous.Operation, error) {
	var resp rendezvous.OperationResponse
	err := c.postOnce("/get-operation", rendezvous.ProjectRequest{ProjectName: c.projectName}, &resp)
	return resp.Operation, err
}

// EndOperation returns the project to Idle.
func (c *Channel) EndOperation() error {
	return c.endOperation(false)
}

// AbortOperation ends the project's current operation into the terminal
// Blame state instead of Idle, so a peer calling CurrentOperation
// observes the abort rather than finding the project silently back at
// Idle as if nothing had failed.
func (c *Channel) AbortOperation() error {
	return c.endOperation(true)
}

func (c *Channel) endOperation(blame bool) error {
	var resp rendezvous.OperationResponse
	return c.postOnce("/end-operation", rendezvous.EndOperationRequest{ProjectName: c.projectName, Blame: blame}, &resp)
}

// SignupKeyGen claims the next free DKG participant slot.
func (c *Channel) SignupKeyGen() (rendezvous.SignupResponse, error) {
	return c.signup("/signupkeygen")
}

// SignupSign claims the next free signer slot.
func (c *Channel) SignupSign() (rendezvous.SignupResponse, error) {
	return c.signup("/signupsign")
}

func (c *Channel) signup(path string) (rendezvous.SignupResponse, error) {
	var resp rendezvous.SignupResponse
	err := c.postOnce(path, rendezvous.SignupRequest{ProjectName: c.projectName}, &resp)
	return resp, err
}

// Broadcast implements transport.Channel.
func (c *Channel) Broadcast(round string, payload []byte) error {
	key := rendezvous.BroadcastKey(c.me, round)
	return c.set(key, payload)
}

// SendP2P implements transport.Channel.
func (c *Channel) SendP2P(to int, round string, payload []byte) error {
	key := rendezvous.P2PKey(c.me, to, round)
	return c.set(key, payload)
}

// PollBroadcasts implements transport.Channel.
func (c *Channel) PollBroadcasts(round string, n, me int) (map[int][]byte, error) {
	out := make(map[int][]byte, n-1)
	for i := 1; i <= n; i++ {
		if i == me {
			continue
		}
		payload, err := c.poll(rendezvous.BroadcastKey(i, round))
		if err != nil {
			return nil, err
		}
		out[i] = payload
	}
	return out, nil
}

// PollP2P implements transport.Channel.
func (c *Channel) PollP2P(round string, n, me int) (map[int][]byte, error) {
	out := make(map[int][]byte, n-1)
	for i := 1; i <= n; i++ {
		if i == me {
			continue
		}
		payload, err := c.poll(rendezvous.P2PKey(i, me, round))
		if err != nil {
			return nil, err
		}
		out[i] = payload
	}
	return out, nil
}

func (c *Channel) set(key string, value []byte) error {
	var resp struct{}
	return c.postOnce("/set", rendezvous.SetRequest{ProjectName: c.projectName, Key: key, Value: value}, &resp)
}

// poll retries /get until the entry under key is found. There is no bound
// on the number of attempts, and a failed /get is retried the same way as
// a missing entry: the caller is blocked on another party's round, which
// may legitimately take a while, so the only way out short of success is
// the process being killed.
func (c *Channel) poll(key string) ([]byte, error) {
	for {
		var resp rendezvous.GetResponse
		err := c.postOnce("/get", rendezvous.GetRequest{ProjectName: c.projectName, Key: key}, &resp)
		if err == nil && resp.Found {
			return resp.Value, nil
		}
		time.Sleep(pollInterval)
	}
}

// postOnce POSTs body as JSON to path and decodes the JSON response into
// out. It makes up to postRetries attempts, postDelay apart; an attempt
// fails on a transport error, an error status, or an undecodable response,
// and the last failure is returned as a Connection error.
func (c *Channel) postOnce(path string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errs.New(errs.Decode, "encoding rendezvous request", err)
	}

	var lastErr error
	for attempt := 0; attempt < postRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(postDelay)
		}
		resp, err := c.client.Post(c.addr+path, "application/json", bytes.NewReader(raw))
		if err != nil {
			lastErr = err
			continue
		}
		status := resp.StatusCode
		decErr := json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if status >= http.StatusBadRequest {
			lastErr = errs.Newf(errs.Connection, "rendezvous server rejected %s: status %d", path, status)
			continue
		}
		if decErr != nil {
			lastErr = errs.New(errs.Decode, "decoding rendezvous response", decErr)
			continue
		}
		return nil
	}
	return errs.New(errs.Connection, "calling rendezvous server "+path, lastErr)
}
