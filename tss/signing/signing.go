// Package signing implements the seven-round distributed ECDSA signing
// protocol over a t+1 subset of a DKG group: each signer contributes a
// nonce share, the shares are combined via pairwise MTA (multiplicative-
// to-additive) conversion over Paillier ciphertexts so no party learns
// another's share in the clear, and the subset jointly reconstructs a
// standard (r, s, recovery-bit) ECDSA signature.
package signing

import (
	"crypto/rand"
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
	round1 = "sign-round1"
	round2 = "sign-round2"
	round3 = "sign-round3"
	round5 = "sign-round5"
	round6 = "sign-round6"
	round7 = "sign-round7"
)

// Result is the signature a successful run produces.
type Result struct {
	R, S   *big.Int
	Parity byte // recovery bit: parity of R's y-coordinate
}

type pointJSON struct{ X, Y *big.Int }

func toPointJSON(p *curve.Point) pointJSON { return pointJSON{X: p.X, Y: p.Y} }
func (p pointJSON) toPoint() *curve.Point  { return &curve.Point{X: p.X, Y: p.Y} }

type round2Msg struct {
	Commitment []byte    `json:"commitment"` // hash-commitment to g^{gamma_i}
	MtaK       *big.Int  `json:"mta_k"`      // Enc_i(k_i), the MTA message A for both gamma and w
	GW         pointJSON `json:"gw"`         // g^{w_i}
}

type mtaPair struct {
	Gamma *big.Int `json:"gamma"` // Enc_i(k_i*gamma_j - beta'_ji)
	W     *big.Int `json:"w"`     // Enc_i(k_i*w_j - nu'_ji)
}

type round5Msg struct {
	Delta *big.Int `json:"delta"`
	Gamma *big.Int `json:"gamma"` // decommitment of round2's g^{gamma_i}
	Nonce []byte   `json:"nonce"`
}

// Run executes distributed signing for this party over signers (the
// 1-based indices of the t+1 subset participating, which must include
// this party's own index), producing a signature over digest.
func Run(ch transport.Channel, kp *party.KeyPair, signers []int, digest [32]byte) (*Result, error) {
	n := len(signers)
	self := kp.Index

	lambda := vss.LagrangeCoefficient(self, signers)
	w := curve.MulMod(lambda, kp.Share)

	k, err := curve.RandomScalar()
	if err != nil {
		return nil, errs.New(errs.Protocol, "sampling signing nonce k_i", err)
	}
	gamma, err := curve.RandomScalar()
	if err != nil {
		return nil, errs.New(errs.Protocol, "sampling signing blinding gamma_i", err)
	}
	commitG := curve.ScalarBaseMul(gamma)

	nonce := util.NewRndArray(32)

	// Round 1: reveal participation, so every signer agrees on the subset.
	if err := ch.Broadcast(round1, []byte{byte(self)}); err != nil {
		return nil, errs.New(errs.Connection, "broadcasting sign round 1", err)
	}
	if _, err := ch.PollBroadcasts(round1, n, self); err != nil {
		return nil, errs.New(errs.Connection, "polling sign round 1", err)
	}

	// Round 2: commitment to g^gamma_i, MTA message A (Enc_i(k_i)), and g^w_i.
	encK, _, err := kp.PaillierSK.PublicKey.Encrypt(k)
	if err != nil {
		return nil, errs.New(errs.Protocol, "encrypting k_i for MTA", err)
	}
	gw := curve.ScalarBaseMul(w)
	r2 := round2Msg{Commitment: commitPoint(commitG, nonce), MtaK: encK, GW: toPointJSON(gw)}
	r2Bytes, err := json.Marshal(r2)
	if err != nil {
		return nil, errs.New(errs.Decode, "encoding sign round 2 payload", err)
	}
	if err := ch.Broadcast(round2, r2Bytes); err != nil {
		return nil, errs.New(errs.Connection, "broadcasting sign round 2", err)
	}
	round2Payloads, err := ch.PollBroadcasts(round2, n, self)
	if err != nil {
		return nil, errs.New(errs.Connection, "polling sign round 2", err)
	}
	peers := make(map[int]round2Msg, n)
	peers[self] = r2
	for i, raw := range round2Payloads {
		var m round2Msg
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, errs.New(errs.Decode, "decoding sign round 2 payload", err)
		}
		peers[i] = m
	}

	// Round 3: pairwise MTA. For every other signer j, use j's encrypted
	// k_j to produce additive shares of k_j*gamma_self and k_j*w_self, and
	// symmetrically let j do the same with our own encrypted k_self.
	type outShare struct{ beta, nu *big.Int }
	myShares := make(map[int]outShare, n)

	for _, j := range signers {
		if j == self {
			continue
		}
		pkJ := kp.PaillierPKs[j]
		cGamma, betaPrime, err := mtaRespond(pkJ, peers[j].MtaK, gamma)
		if err != nil {
			return nil, err
		}
		cW, nuPrime, err := mtaRespond(pkJ, peers[j].MtaK, w)
		if err != nil {
			return nil, err
		}
		pair := mtaPair{Gamma: cGamma, W: cW}
		payload, err := json.Marshal(pair)
		if err != nil {
			return nil, errs.New(errs.Decode, "encoding sign round 3 payload", err)
		}
		if err := ch.SendP2P(j, round3, payload); err != nil {
			return nil, errs.New(errs.Connection, "sending sign round 3 MTA response", err)
		}
		// mtaRespond returns the mask it subtracted from the owner's plaintext
		// (k_j*factor - mask); our own additive share is +mask, so the two
		// halves sum back to k_j*factor.
		myShares[j] = outShare{
			beta: new(big.Int).Mod(betaPrime, curve.N),
			nu:   new(big.Int).Mod(nuPrime, curve.N),
		}
	}
	round3Payloads, err := ch.PollP2P(round3, n, self)
	if err != nil {
		return nil, errs.New(errs.Connection, "polling sign round 3", err)
	}

	betaSum, nuSum := new(big.Int), new(big.Int)
	for _, sh := range myShares {
		betaSum = curve.AddMod(betaSum, sh.beta)
		nuSum = curve.AddMod(nuSum, sh.nu)
	}
	alphaSum, muSum := new(big.Int), new(big.Int)
	for _, raw := range round3Payloads {
		var pair mtaPair
		if err := json.Unmarshal(raw, &pair); err != nil {
			return nil, errs.New(errs.Decode, "decoding sign round 3 payload", err)
		}
		alphaRaw := kp.PaillierSK.DecryptSigned(pair.Gamma)
		muRaw := kp.PaillierSK.DecryptSigned(pair.W)
		alphaSum = curve.AddMod(alphaSum, alphaRaw)
		muSum = curve.AddMod(muSum, muRaw)
	}

	// Round 4 (local, no messages): delta_i and sigma_i.
	delta := curve.AddMod(curve.MulMod(k, gamma), curve.AddMod(alphaSum, betaSum))
	sigma := curve.AddMod(curve.MulMod(k, w), curve.AddMod(muSum, nuSum))

	// Round 5: broadcast delta_i and the decommitment of gamma_i.
	r5 := round5Msg{Delta: delta, Gamma: gamma, Nonce: nonce}
	r5Bytes, err := json.Marshal(r5)
	if err != nil {
		return nil, errs.New(errs.Decode, "encoding sign round 5 payload", err)
	}
	if err := ch.Broadcast(round5, r5Bytes); err != nil {
		return nil, errs.New(errs.Connection, "broadcasting sign round 5", err)
	}
	round5Payloads, err := ch.PollBroadcasts(round5, n, self)
	if err != nil {
		return nil, errs.New(errs.Connection, "polling sign round 5", err)
	}
	deltaSum := new(big.Int).Set(delta)
	gammaPoint := commitG
	for i, raw := range round5Payloads {
		var m round5Msg
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, errs.New(errs.Decode, "decoding sign round 5 payload", err)
		}
		opened := curve.ScalarBaseMul(m.Gamma)
		if got := commitPoint(opened, m.Nonce); string(got) != string(peers[i].Commitment) {
			return nil, errs.Newf(errs.Protocol, "party %d: round 5 decommitment does not match round 2 commitment", i)
		}
		deltaSum = curve.AddMod(deltaSum, m.Delta)
		gammaPoint = curve.Add(gammaPoint, opened)
	}
	deltaInv := curve.Inverse(deltaSum)
	r := curve.ScalarMul(gammaPoint, deltaInv)
	rX := new(big.Int).Mod(r.X, curve.N)

	// Round 6: zk consistency — prove knowledge of w_i behind the g^{w_i}
	// broadcast in round 2, binding each signer's weighted share into r's
	// reconstruction.
	proof, err := zkp.Prove(w)
	if err != nil {
		return nil, errs.New(errs.Protocol, "generating sign round 6 proof", err)
	}
	r6Bytes, err := json.Marshal(proof)
	if err != nil {
		return nil, errs.New(errs.Decode, "encoding sign round 6 payload", err)
	}
	if err := ch.Broadcast(round6, r6Bytes); err != nil {
		return nil, errs.New(errs.Connection, "broadcasting sign round 6", err)
	}
	round6Payloads, err := ch.PollBroadcasts(round6, n, self)
	if err != nil {
		return nil, errs.New(errs.Connection, "polling sign round 6", err)
	}
	for i, raw := range round6Payloads {
		var p zkp.SchnorrProof
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, errs.New(errs.Decode, "decoding sign round 6 payload", err)
		}
		if !zkp.Verify(peers[i].GW.toPoint(), &p) {
			return nil, errs.Newf(errs.Protocol, "party %d: signing consistency proof failed", i)
		}
	}

	// Round 7: local signature share, then combine.
	m := new(big.Int).SetBytes(digest[:])
	si := curve.AddMod(curve.MulMod(m, k), curve.MulMod(rX, sigma))
	r7Bytes, err := json.Marshal(si)
	if err != nil {
		return nil, errs.New(errs.Decode, "encoding sign round 7 payload", err)
	}
	if err := ch.Broadcast(round7, r7Bytes); err != nil {
		return nil, errs.New(errs.Connection, "broadcasting sign round 7", err)
	}
	round7Payloads, err := ch.PollBroadcasts(round7, n, self)
	if err != nil {
		return nil, errs.New(errs.Connection, "polling sign round 7", err)
	}
	sSum := new(big.Int).Set(si)
	for _, raw := range round7Payloads {
		var sj big.Int
		if err := json.Unmarshal(raw, &sj); err != nil {
			return nil, errs.New(errs.Decode, "decoding sign round 7 payload", err)
		}
		sSum = curve.AddMod(sSum, &sj)
	}

	if !curve.Verify(kp.GroupPublicKey, digest[:], rX, sSum) {
		return nil, errs.Newf(errs.Protocol, "aggregated signature failed verification")
	}

	return &Result{R: rX, S: sSum, Parity: byte(r.Y.Bit(0))}, nil
}

func commitPoint(p *curve.Point, nonce []byte) []byte {
	h := sha256.New()
	h.Write(p.X.Bytes())
	h.Write(p.Y.Bytes())
	h.Write(nonce)
	return h.Sum(nil)
}

// mtaRespond is the receiving half of one MTA instance: given the
// counterparty's Paillier public key and their encryption of a secret k,
// and our own factor (gamma_i or w_i), return a masked ciphertext to send
// back and the random mask we subtracted (so the caller derives its own
// additive share as +mask mod N).
//
// The mask is sampled from a quarter of the Paillier modulus, not all of
// it: k*factor is bounded by roughly curve.N^2 (a few hundred bits), so
// bounding the mask to N/4 keeps k*factor-mask inside (-N/2, N/2) and
// therefore recoverable as a signed value on decryption, while the mask
// itself stays large enough to statistically hide k*factor.
func mtaRespond(counterpartyPK *paillier.PublicKey, encK *big.Int, factor *big.Int) (masked, mask *big.Int, err error) {
	bound := new(big.Int).Rsh(counterpartyPK.N, 2)
	mask, err = rand.Int(rand.Reader, bound)
	if err != nil {
		return nil, nil, errs.New(errs.Protocol, "sampling MTA mask", err)
	}
	scaled := counterpartyPK.HomomorphicMulConst(encK, factor)
	negMask := new(big.Int).Mod(new(big.Int).Neg(mask), counterpartyPK.N)
	encNegMask, _, err := counterpartyPK.Encrypt(negMask)
	if err != nil {
		return nil, nil, errs.New(errs.Protocol, "encrypting MTA mask", err)
	}
	masked = counterpartyPK.HomomorphicAdd(scaled, encNegMask)
	return masked, mask, nil
}
