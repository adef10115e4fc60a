package keymanager

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Chaumian blind Schnorr signatures have no library implementation
// anywhere in the reference corpus (confirmed: no pack repo or
// other_examples/ file implements this primitive). This file hand-rolls
// the classic Abe-Okamoto blind Schnorr construction directly atop
// btcec/v2's exported elliptic-curve primitives (JacobianPoint,
// ScalarBaseMultNonConst, AddNonConst), the same low-level building
// blocks the btcec/v2/schnorr package itself uses internally -- it is
// deliberately NOT BIP340 (which has no blind variant), so it does not
// reuse the schnorr subpackage's ParseSignature/Verify helpers.
//
// Protocol, per role:
//
//	signer:  k  (secret nonce, derived from the Alice's HD path)
//	         R = k*G                          (sent to the requester)
//	         d  (round secret key), P = d*G    (round public key)
//	requester: picks blinding scalars (alpha, beta), computes
//	         R' = R + alpha*G + beta*P
//	         e' = H(R' || P || message)         (final challenge)
//	         e  = e' + beta                     (blinded challenge, sent to signer)
//	signer:  s = k + e*d                        (blind signature, returned)
//	requester: s' = s + alpha                   (unblinds)
//	final signature (R', s') verifies: s'*G == R' + e'*P
//
// The coordinator only ever plays the signer role; blinding/unblinding
// happens client-side and is out of this module's scope.

// issueBlindSignature computes s = k + e*d mod n, where k is the nonce
// scalar at the Alice's HD path and e is the blinded challenge the
// requester sent as blindedMessage.
func issueBlindSignature(k, d *btcec.ModNScalar, blindedMessage []byte) ([]byte, error) {
	e, err := scalarFromBytes(blindedMessage)
	if err != nil {
		return nil, fmt.Errorf("blinded challenge: %w", err)
	}

	var ed btcec.ModNScalar
	ed.Set(&e).Mul(d)

	var s btcec.ModNScalar
	s.Set(k).Add(&ed)

	sBytes := s.Bytes()
	return sBytes[:], nil
}

// verifyBlindSignature checks a final unblinded signature (R', s') over
// message against the round public key P, recomputing e' = H(R'||P||m)
// independently so the coordinator never needs to have seen the blinded
// challenge the requester actually used.
func verifyBlindSignature(roundPubKey *btcec.PublicKey, message []byte, sig []byte) (bool, error) {
	if len(sig) != 65 {
		return false, fmt.Errorf("signature must be 65 bytes (33-byte R + 32-byte s), got %d", len(sig))
	}
	rPoint, err := btcec.ParsePubKey(sig[:33])
	if err != nil {
		return false, fmt.Errorf("parse R: %w", err)
	}
	sPrime, err := scalarFromBytes(sig[33:])
	if err != nil {
		return false, fmt.Errorf("parse s: %w", err)
	}

	challenge := hashToScalar(serializePoint(rPoint), serializePoint(roundPubKey), message)

	// s'*G
	var lhs btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&sPrime, &lhs)
	lhs.ToAffine()

	// R' + e'*P
	var eP btcec.JacobianPoint
	var pJac btcec.JacobianPoint
	roundPubKey.AsJacobian(&pJac)
	btcec.ScalarMultNonConst(&challenge, &pJac, &eP)

	var rJac btcec.JacobianPoint
	rPoint.AsJacobian(&rJac)

	var rhs btcec.JacobianPoint
	btcec.AddNonConst(&rJac, &eP, &rhs)
	rhs.ToAffine()

	return lhs.X.Equals(&rhs.X) && lhs.Y.Equals(&rhs.Y), nil
}

func scalarFromBytes(b []byte) (btcec.ModNScalar, error) {
	var s btcec.ModNScalar
	if len(b) != 32 {
		return s, fmt.Errorf("scalar must be 32 bytes, got %d", len(b))
	}
	overflow := s.SetByteSlice(b)
	if overflow {
		return s, fmt.Errorf("scalar overflows curve order")
	}
	return s, nil
}

func hashToScalar(parts ...[]byte) btcec.ModNScalar {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	digest := h.Sum(nil)
	var s btcec.ModNScalar
	s.SetByteSlice(digest)
	return s
}

func serializePoint(p *btcec.PublicKey) []byte {
	return p.SerializeCompressed()
}
