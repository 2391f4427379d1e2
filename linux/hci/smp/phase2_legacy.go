package smp

import (
	"bytes"
)

// runPhase2Legacy runs LE Legacy Pairing: TK selection by association
// model, a single c1-based confirm/random exchange, and STK derivation
// via s1. [Vol 3, Part H, 2.3.5.5]
func (s *session) runPhase2Legacy() error {
	ctx := s.ctx

	switch ctx.pType {
	case JustWorks:
		ctx.tk = make([]byte, 16)
	case Oob:
		if len(s.auth.OOBData) == 16 {
			ctx.tk = s.auth.OOBData
		} else {
			ctx.tk = make([]byte, 16)
		}
	case Passkey:
		pk, err := s.getOrAssignPasskey()
		if err != nil {
			return err
		}
		ctx.passkey = pk
		ctx.tk = legacyTK(pk)
	case NumericComp:
		// Legacy pairing has no Numeric Comparison association model;
		// Phase 1 never selects it when secureConnections is false.
		ctx.tk = make([]byte, 16)
	}

	localRandom, err := randomNonce()
	if err != nil {
		return err
	}
	ctx.localRandom = localRandom

	ia, ra, iat, rat := ctx.iaRa()
	localConfirm, err := c1(ctx.tk, localRandom, ctx.preq, ctx.pres, iat, rat, ia, ra)
	if err != nil {
		return err
	}
	ctx.localConfirm = localConfirm

	if ctx.isInitiator() {
		if err := sendPDU(s.tx, buildPairingConfirm(localConfirm)); err != nil {
			return err
		}
		pdu, err := s.w.waitPacket(pairingConfirm)
		if err != nil {
			return err
		}
		ctx.remoteConfirm = pdu[1:]

		if err := sendPDU(s.tx, buildPairingRandom(localRandom)); err != nil {
			return err
		}
		rpdu, err := s.w.waitPacket(pairingRandom)
		if err != nil {
			return err
		}
		ctx.remoteRandom = rpdu[1:]
	} else {
		pdu, err := s.w.waitPacket(pairingConfirm)
		if err != nil {
			return err
		}
		ctx.remoteConfirm = pdu[1:]
		if err := sendPDU(s.tx, buildPairingConfirm(localConfirm)); err != nil {
			return err
		}

		rpdu, err := s.w.waitPacket(pairingRandom)
		if err != nil {
			return err
		}
		ctx.remoteRandom = rpdu[1:]
		if err := sendPDU(s.tx, buildPairingRandom(localRandom)); err != nil {
			return err
		}
	}

	expected, err := c1(ctx.tk, ctx.remoteRandom, ctx.preq, ctx.pres, iat, rat, ia, ra)
	if err != nil {
		return err
	}
	if !bytes.Equal(expected, ctx.remoteConfirm) {
		return newFailure(ReasonConfirmValueFailed, ErrConfirmValueFailed)
	}

	// STK = s1(TK, Srand, Mrand) on both sides, regardless of which
	// random value is local: s1 is not symmetric in its two arguments, so
	// swapping in localRandom/remoteRandom here would let the two peers
	// derive different keys. [Vol 3, Part H, 2.3.5.5]
	mRand, sRand := ctx.initiatorResponderNonces()
	stk, err := s1(ctx.tk, sRand, mRand)
	if err != nil {
		return err
	}
	ctx.shortTermKey = stk
	ctx.legacy = true
	return nil
}
