package signing

import (
	"crypto/sha256"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"dit/tss/curve"
	"dit/tss/keygen"
	"dit/tss/party"
	"dit/tss/transport"
)

// memChannel is an in-process fake of transport.Channel backed by shared
// maps, standing in for the HTTP rendezvous channel in tests.
type memChannel struct {
	me int
	mu *sync.Mutex
	cv *sync.Cond

	broadcasts map[string]map[int][]byte
	p2p        map[string]map[int]map[int][]byte // round -> to -> from -> payload
}

func newMemHub(indices []int) map[int]*memChannel {
	mu := &sync.Mutex{}
	cv := sync.NewCond(mu)
	broadcasts := make(map[string]map[int][]byte)
	p2p := make(map[string]map[int]map[int][]byte)
	chans := make(map[int]*memChannel, len(indices))
	for _, i := range indices {
		chans[i] = &memChannel{me: i, mu: mu, cv: cv, broadcasts: broadcasts, p2p: p2p}
	}
	return chans
}

func (c *memChannel) Broadcast(round string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broadcasts[round] == nil {
		c.broadcasts[round] = make(map[int][]byte)
	}
	c.broadcasts[round][c.me] = payload
	c.cv.Broadcast()
	return nil
}

func (c *memChannel) PollBroadcasts(round string, n, me int) (map[int][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		have := c.broadcasts[round]
		out := make(map[int][]byte)
		for i, v := range have {
			if i != me {
				out[i] = v
			}
		}
		if len(out) == n-1 {
			return out, nil
		}
		c.cv.Wait()
	}
}

func (c *memChannel) SendP2P(to int, round string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.p2p[round] == nil {
		c.p2p[round] = make(map[int]map[int][]byte)
	}
	if c.p2p[round][to] == nil {
		c.p2p[round][to] = make(map[int][]byte)
	}
	c.p2p[round][to][c.me] = payload
	c.cv.Broadcast()
	return nil
}

func (c *memChannel) PollP2P(round string, n, me int) (map[int][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		have := c.p2p[round][me]
		if len(have) == n-1 {
			out := make(map[int][]byte, len(have))
			for i, v := range have {
				out[i] = v
			}
			return out, nil
		}
		c.cv.Wait()
	}
}

func runDKG(t *testing.T, n, threshold int) map[int]*party.KeyPair {
	t.Helper()
	params := party.Parameters{Participants: n, Threshold: threshold}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i + 1
	}
	chans := newMemHub(indices)

	results := make(map[int]*party.KeyPair, n)
	errsOut := make(map[int]error, n)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, idx := range indices {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			kp, err := keygen.Run(chans[idx], params, idx)
			mu.Lock()
			results[idx] = kp
			errsOut[idx] = err
			mu.Unlock()
		}(idx)
	}
	wg.Wait()

	for _, idx := range indices {
		require.NoError(t, errsOut[idx], "party %d failed DKG", idx)
	}
	return results
}

func runSigning(t *testing.T, keys map[int]*party.KeyPair, signers []int, digest [32]byte) map[int]*Result {
	t.Helper()
	chans := newMemHub(signers)

	results := make(map[int]*Result, len(signers))
	errsOut := make(map[int]error, len(signers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, idx := range signers {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			res, err := Run(chans[idx], keys[idx], signers, digest)
			mu.Lock()
			results[idx] = res
			errsOut[idx] = err
			mu.Unlock()
		}(idx)
	}
	wg.Wait()

	for _, idx := range signers {
		require.NoError(t, errsOut[idx], "party %d failed signing", idx)
	}
	return results
}

func TestSigningProducesValidSignature(t *testing.T) {
	const n, threshold = 4, 2
	keys := runDKG(t, n, threshold)
	digest := sha256.Sum256([]byte("sign me"))

	signers := []int{1, 2, 3}
	results := runSigning(t, keys, signers, digest)

	first := results[signers[0]]
	require.True(t, curve.Verify(keys[signers[0]].GroupPublicKey, digest[:], first.R, first.S))
	for _, idx := range signers[1:] {
		require.Equal(t, 0, first.R.Cmp(results[idx].R), "party %d computed a different r", idx)
		require.Equal(t, 0, first.S.Cmp(results[idx].S), "party %d computed a different s", idx)
		require.Equal(t, first.Parity, results[idx].Parity, "party %d computed a different recovery bit", idx)
	}
}

func TestSigningAgreesAcrossDifferentSignerSubsets(t *testing.T) {
	const n, threshold = 4, 2
	keys := runDKG(t, n, threshold)
	digest := sha256.Sum256([]byte("same message, different quorum"))

	resultsA := runSigning(t, keys, []int{1, 2, 3}, digest)
	resultsB := runSigning(t, keys, []int{2, 3, 4}, digest)

	require.True(t, curve.Verify(keys[1].GroupPublicKey, digest[:], resultsA[1].R, resultsA[1].S))
	require.True(t, curve.Verify(keys[1].GroupPublicKey, digest[:], resultsB[2].R, resultsB[2].S))
}

var _ transport.Channel = (*memChannel)(nil)
