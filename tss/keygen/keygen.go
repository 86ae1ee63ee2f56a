// Package keygen implements the five-round distributed key generation
// protocol: every party contributes a Feldman-shared secret, the parties'
// contributions sum to the group secret, and each party ends up holding a
// Shamir share of that sum plus the group's public point and every
// party's Paillier encryption key.
package keygen

import (
	"crypto/sha256"
	"encoding/json"
	"math/big"

	"dit/errs"
	"dit/tss/curve"
	"dit/tss/paillier"
	"dit/tss/party"
	"dit/tss/transport"
	"dit/tss/vss"
	"dit/tss/zkp"
	"dit/util"
)

const (
	round1 = "dkg-round1"
	round2 = "dkg-round2"
	round3 = "dkg-round3"
	round4 = "dkg-round4"
	round5 = "dkg-round5"
)

type round2Msg struct {
	Y          pointJSON             `json:"y"`
	Nonce      []byte                `json:"nonce"`
	PaillierPK *paillier.PublicKey   `json:"paillier_pk"`
}

type round4Msg struct {
	Commitments []pointJSON          `json:"commitments"`
	Statement   *zkp.DLogStatement   `json:"dlog_statement"`
}

type pointJSON struct {
	X, Y *big.Int
}

func toPointJSON(p *curve.Point) pointJSON { return pointJSON{X: p.X, Y: p.Y} }
func (p pointJSON) toPoint() *curve.Point  { return &curve.Point{X: p.X, Y: p.Y} }

// Run executes the DKG protocol for this party (1-based index) against
// the given channel, yielding its persisted key-pair share on success.
// Any stage failure aborts the run; the caller is expected to move the
// server-side operation to Blame.
func Run(ch transport.Channel, params party.Parameters, index int) (*party.KeyPair, error) {
	n := params.Participants

	secret, err := curve.RandomScalar()
	if err != nil {
		return nil, errs.New(errs.Protocol, "sampling DKG secret contribution", err)
	}
	poly, err := vss.NewPolynomial(secret, params.Threshold)
	if err != nil {
		return nil, err
	}
	commitments := poly.Commitments()
	yi := commitments[0]

	paillierSK, err := paillier.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	nonce := util.NewRndArray(32)
	commitHash := commitRound1(yi, nonce)

	// Round 1: broadcast the commitment.
	if err := ch.Broadcast(round1, commitHash); err != nil {
		return nil, errs.New(errs.Connection, "broadcasting dkg round 1", err)
	}
	round1Payloads, err := ch.PollBroadcasts(round1, n, index)
	if err != nil {
		return nil, errs.New(errs.Connection, "polling dkg round 1", err)
	}

	// Round 2: broadcast the opening.
	r2 := round2Msg{Y: toPointJSON(yi), Nonce: nonce, PaillierPK: &paillierSK.PublicKey}
	r2Bytes, err := json.Marshal(r2)
	if err != nil {
		return nil, errs.New(errs.Decode, "encoding dkg round 2 payload", err)
	}
	if err := ch.Broadcast(round2, r2Bytes); err != nil {
		return nil, errs.New(errs.Connection, "broadcasting dkg round 2", err)
	}
	round2Payloads, err := ch.PollBroadcasts(round2, n, index)
	if err != nil {
		return nil, errs.New(errs.Connection, "polling dkg round 2", err)
	}

	openings := make(map[int]round2Msg, n)
	openings[index] = r2
	for i, raw := range round2Payloads {
		var m round2Msg
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, errs.New(errs.Decode, "decoding dkg round 2 payload", err)
		}
		openings[i] = m
	}
	if err := verifyRound1Commitments(round1Payloads, openings, index); err != nil {
		return nil, err
	}

	groupY := &curve.Point{}
	for _, m := range openings {
		groupY = curve.Add(groupY, m.Y.toPoint())
	}

	// Round 3: point-to-point Shamir shares.
	for j := 1; j <= n; j++ {
		if j == index {
			continue
		}
		share := poly.Evaluate(big.NewInt(int64(j)))
		if err := ch.SendP2P(j, round3, share.Bytes()); err != nil {
			return nil, errs.New(errs.Connection, "sending dkg round 3 share", err)
		}
	}
	round3Payloads, err := ch.PollP2P(round3, n, index)
	if err != nil {
		return nil, errs.New(errs.Connection, "polling dkg round 3", err)
	}
	receivedShares := make(map[int]*big.Int, n)
	receivedShares[index] = poly.Evaluate(big.NewInt(int64(index)))
	for i, raw := range round3Payloads {
		receivedShares[i] = new(big.Int).SetBytes(raw)
	}

	// Round 4: broadcast the full VSS commitment vector and range-proof
	// statement.
	statement := zkp.NewDLogStatement(paillierSK.N, []byte{byte(index)})
	r4 := round4Msg{Commitments: pointsToJSON(commitments), Statement: statement}
	r4Bytes, err := json.Marshal(r4)
	if err != nil {
		return nil, errs.New(errs.Decode, "encoding dkg round 4 payload", err)
	}
	if err := ch.Broadcast(round4, r4Bytes); err != nil {
		return nil, errs.New(errs.Connection, "broadcasting dkg round 4", err)
	}
	round4Payloads, err := ch.PollBroadcasts(round4, n, index)
	if err != nil {
		return nil, errs.New(errs.Connection, "polling dkg round 4", err)
	}
	vssVectors := make(map[int][]*curve.Point, n)
	statements := make(map[int]*zkp.DLogStatement, n)
	vssVectors[index] = commitments
	statements[index] = statement
	for i, raw := range round4Payloads {
		var m round4Msg
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, errs.New(errs.Decode, "decoding dkg round 4 payload", err)
		}
		vssVectors[i] = jsonToPoints(m.Commitments)
		statements[i] = m.Statement
	}

	// Verify every received share lies on the sender's broadcast polynomial,
	// and that commitments[0] matches the opened Y_i from round 2.
	for i, vec := range vssVectors {
		if !curve.Equal(vec[0], openings[i].Y.toPoint()) {
			return nil, errs.Newf(errs.Protocol, "party %d: VSS commitment vector does not match opened contribution", i)
		}
		if !vss.VerifyShare(vec, index, receivedShares[i]) {
			return nil, errs.Newf(errs.Protocol, "party %d: received share failed VSS verification", i)
		}
	}

	// Round 5: Schnorr proof of knowledge of each party's contribution.
	proof, err := zkp.Prove(secret)
	if err != nil {
		return nil, errs.New(errs.Protocol, "generating dkg round 5 proof", err)
	}
	r5Bytes, err := json.Marshal(proof)
	if err != nil {
		return nil, errs.New(errs.Decode, "encoding dkg round 5 payload", err)
	}
	if err := ch.Broadcast(round5, r5Bytes); err != nil {
		return nil, errs.New(errs.Connection, "broadcasting dkg round 5", err)
	}
	round5Payloads, err := ch.PollBroadcasts(round5, n, index)
	if err != nil {
		return nil, errs.New(errs.Connection, "polling dkg round 5", err)
	}
	proofs := make(map[int]*zkp.SchnorrProof, n)
	proofs[index] = proof
	for i, raw := range round5Payloads {
		var p zkp.SchnorrProof
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, errs.New(errs.Decode, "decoding dkg round 5 payload", err)
		}
		proofs[i] = &p
	}
	for i, p := range proofs {
		if !zkp.Verify(openings[i].Y.toPoint(), p) {
			return nil, errs.Newf(errs.Protocol, "party %d: DLog proof of knowledge failed", i)
		}
	}

	// Finalize: this party's share of the group secret is the sum of all
	// received (and its own) evaluations.
	totalShare := new(big.Int)
	for _, s := range receivedShares {
		totalShare = curve.AddMod(totalShare, s)
	}

	paillierPKs := make(map[int]*paillier.PublicKey, n)
	for i, m := range openings {
		paillierPKs[i] = m.PaillierPK
	}

	return &party.KeyPair{
		Index:          index,
		Params:         params,
		Share:          totalShare,
		PaillierSK:     paillierSK,
		GroupPublicKey: groupY,
		VSSCommitments: vssVectors,
		PaillierPKs:    paillierPKs,
		DLogStatements: statements,
	}, nil
}

func commitRound1(y *curve.Point, nonce []byte) []byte {
	h := sha256.New()
	h.Write(y.X.Bytes())
	h.Write(y.Y.Bytes())
	h.Write(nonce)
	return h.Sum(nil)
}

func verifyRound1Commitments(commits map[int][]byte, openings map[int]round2Msg, self int) error {
	for i, m := range openings {
		if i == self {
			continue
		}
		want, ok := commits[i]
		if !ok {
			return errs.Newf(errs.Protocol, "party %d: missing round 1 commitment", i)
		}
		got := commitRound1(m.Y.toPoint(), m.Nonce)
		if string(got) != string(want) {
			return errs.Newf(errs.Protocol, "party %d: round 2 opening does not match round 1 commitment", i)
		}
	}
	return nil
}

func pointsToJSON(pts []*curve.Point) []pointJSON {
	out := make([]pointJSON, len(pts))
	for i, p := range pts {
		out[i] = toPointJSON(p)
	}
	return out
}

func jsonToPoints(pts []pointJSON) []*curve.Point {
	out := make([]*curve.Point, len(pts))
	for i, p := range pts {
		out[i] = p.toPoint()
	}
	return out
}
