package smp

import (
	"bytes"
)

// runPhase2SC runs LE Secure Connections Stage 1 (public key exchange and
// authentication) and Stage 2 (MacKey/LTK derivation and the DHKey
// Check). [Vol 3, Part H, 2.3.5.6]
func (s *session) runPhase2SC() error {
	if err := s.exchangePublicKeys(); err != nil {
		return err
	}

	switch s.ctx.pType {
	case JustWorks:
		if err := s.confirmRandomRound(0x00); err != nil {
			return err
		}
	case NumericComp:
		if err := s.confirmRandomRound(0x00); err != nil {
			return err
		}
		if err := s.numericComparison(); err != nil {
			return err
		}
	case Passkey:
		pk, err := s.getOrAssignPasskey()
		if err != nil {
			return err
		}
		s.ctx.passkey = pk
		for i := 0; i < passkeyIterationCount; i++ {
			bit := byte((pk >> uint(i)) & 1)
			z := byte(0x80) | bit
			if err := s.confirmRandomRound(z); err != nil {
				return err
			}
		}
	case Oob:
		if err := s.confirmRandomRound(0x00); err != nil {
			return err
		}
	}

	return s.deriveKeysAndCheckDHKey()
}

// exchangePublicKeys generates this side's ECDH key pair and trades
// public keys with the peer. The initiator sends first; the CVE-2020-26558
// check rejects a peer that echoes our own key back.
func (s *session) exchangePublicKeys() error {
	keys, err := GenerateKeys()
	if err != nil {
		return err
	}
	s.ctx.ecdhKeys = keys
	localXY := MarshalPublicKeyXY(keys.public)

	var remoteXY []byte
	if s.ctx.isInitiator() {
		if err := sendPDU(s.tx, buildPublicKey(localXY)); err != nil {
			return err
		}
		pdu, err := s.w.waitPacket(pairingPublicKey)
		if err != nil {
			return err
		}
		remoteXY = pdu[1:]
	} else {
		pdu, err := s.w.waitPacket(pairingPublicKey)
		if err != nil {
			return err
		}
		remoteXY = pdu[1:]
		if err := sendPDU(s.tx, buildPublicKey(localXY)); err != nil {
			return err
		}
	}

	if samePublicKey(keys.public, remoteXY) {
		return newFailure(ReasonUnspecifiedReason, ErrReflectionAttack)
	}

	remotePub, ok := UnmarshalPublicKey(remoteXY)
	if !ok {
		return newFailure(ReasonInvalidParameters, ErrInvalidParameters)
	}
	s.ctx.remotePubKeyXY = remoteXY
	s.ctx.remotePubKey = remotePub

	dhKey, err := GenerateSecret(keys.private, remotePub)
	if err != nil {
		return newFailure(ReasonDHKeyCheckFailed, err)
	}
	s.ctx.dhKey = dhKey
	return nil
}

// confirmRandomRound runs one commit/reveal round of Stage 1. For Just
// Works, Numeric Comparison, and OOB (z == 0x00) only the responder
// commits to a nonce: it sends Cb first, the initiator replies with its
// (uncommitted) nonce Na, the responder reveals Nb, and only the
// initiator verifies Cb against the revealed Nb. For Passkey Entry
// (z has the 0x80 bit set) both sides commit and both verify each of the
// 20 rounds. [Vol 3, Part H, 2.3.5.6.2, 2.3.5.6.3]
func (s *session) confirmRandomRound(z byte) error {
	ctx := s.ctx
	mutualConfirm := z != 0x00

	nonce, err := randomNonce()
	if err != nil {
		return err
	}

	localX := MarshalPublicKeyX(ctx.ecdhKeys.public)
	remoteX := MarshalPublicKeyX(ctx.remotePubKey)

	localConfirm, err := f4(localX, remoteX, nonce, z)
	if err != nil {
		return err
	}

	if ctx.isInitiator() {
		pdu, err := s.w.waitPacket(pairingConfirm)
		if err != nil {
			return err
		}
		ctx.remoteConfirm = pdu[1:]

		if mutualConfirm {
			if err := sendPDU(s.tx, buildPairingConfirm(localConfirm)); err != nil {
				return err
			}
		}
		if err := sendPDU(s.tx, buildPairingRandom(nonce)); err != nil {
			return err
		}
		rpdu, err := s.w.waitPacket(pairingRandom)
		if err != nil {
			return err
		}
		ctx.remoteRandom = rpdu[1:]
		ctx.localRandom = nonce

		check, err := f4(remoteX, localX, ctx.remoteRandom, z)
		if err != nil {
			return err
		}
		if !bytes.Equal(check, ctx.remoteConfirm) {
			return newFailure(ReasonConfirmValueFailed, ErrConfirmValueFailed)
		}
		return nil
	}

	if err := sendPDU(s.tx, buildPairingConfirm(localConfirm)); err != nil {
		return err
	}
	if mutualConfirm {
		pdu, err := s.w.waitPacket(pairingConfirm)
		if err != nil {
			return err
		}
		ctx.remoteConfirm = pdu[1:]
	}

	rpdu, err := s.w.waitPacket(pairingRandom)
	if err != nil {
		return err
	}
	ctx.remoteRandom = rpdu[1:]
	ctx.localRandom = nonce
	if err := sendPDU(s.tx, buildPairingRandom(nonce)); err != nil {
		return err
	}

	if mutualConfirm {
		check, err := f4(remoteX, localX, ctx.remoteRandom, z)
		if err != nil {
			return err
		}
		if !bytes.Equal(check, ctx.remoteConfirm) {
			return newFailure(ReasonConfirmValueFailed, ErrConfirmValueFailed)
		}
	}
	return nil
}

// numericComparison computes the 6-digit comparison value and asks the
// UI to confirm both sides are displaying the same number.
func (s *session) numericComparison() error {
	ctx := s.ctx
	localX := MarshalPublicKeyX(ctx.ecdhKeys.public)
	remoteX := MarshalPublicKeyX(ctx.remotePubKey)

	var u, v, x, y []byte
	if ctx.isInitiator() {
		u, v, x, y = localX, remoteX, ctx.localRandom, ctx.remoteRandom
	} else {
		u, v, x, y = remoteX, localX, ctx.remoteRandom, ctx.localRandom
	}

	value, err := g2(u, v, x, y)
	if err != nil {
		return err
	}

	ok, err := s.ui.ConfirmNumeric(value)
	if err != nil {
		return err
	}
	if !ok {
		return newFailure(ReasonNumericComparisonFailed, ErrNumericComparisonFailed)
	}
	return nil
}

// getOrAssignPasskey resolves the passkey Passkey Entry uses: the value
// pre-supplied via AuthData if set, a freshly generated value shown
// through the UI when this side displays, or a value the local user
// enters through RequestPasskey when this side is the one that types.
func (s *session) getOrAssignPasskey() (int, error) {
	if s.auth.Passkey != 0 {
		return s.auth.Passkey, nil
	}

	displays, _ := passkeyRoles(s.ctx.localCfg, s.ctx.remoteCfg)
	if displays {
		pk, err := randomPasskey()
		if err != nil {
			return 0, err
		}
		s.ui.DisplayPasskey(pk)
		return pk, nil
	}

	return s.ui.RequestPasskey()
}

// deriveKeysAndCheckDHKey computes MacKey/LTK via f5 and exchanges and
// verifies the DHKey Check values via f6, completing the stub the
// teacher's checkDHKeyCheck() left unimplemented.
func (s *session) deriveKeysAndCheckDHKey() error {
	ctx := s.ctx
	n1, n2 := ctx.initiatorResponderNonces()
	a1, a2 := ctx.initiatorResponderAddrFields()

	mk, ltk, err := f5(ctx.dhKey, n1, n2, a1, a2)
	if err != nil {
		return err
	}
	ctx.macKey = mk
	ctx.longTermKey = ltk

	r, err := s.rValue()
	if err != nil {
		return err
	}

	localIOCap := ctx.ioCapBytes(true)
	remoteIOCap := ctx.ioCapBytes(false)

	// Ea = f6(MacKey, Na, Nb, r, IOcapA, A1, A2) computed by the initiator;
	// Eb = f6(MacKey, Nb, Na, r, IOcapB, A2, A1) computed by the responder.
	var localCheck, expectedRemote []byte
	if ctx.isInitiator() {
		localCheck, err = f6(ctx.macKey, n1, n2, r, localIOCap, a1, a2)
		if err == nil {
			expectedRemote, err = f6(ctx.macKey, n2, n1, r, remoteIOCap, a2, a1)
		}
	} else {
		localCheck, err = f6(ctx.macKey, n2, n1, r, localIOCap, a2, a1)
		if err == nil {
			expectedRemote, err = f6(ctx.macKey, n1, n2, r, remoteIOCap, a1, a2)
		}
	}
	if err != nil {
		return err
	}

	// The initiator sends Ea first and checks Eb on receipt; the
	// responder waits for and checks Ea before sending Eb.
	// [Vol 3, Part H, 2.3.5.6.5]
	if ctx.isInitiator() {
		if err := sendPDU(s.tx, buildDHKeyCheck(localCheck)); err != nil {
			return err
		}
	}

	pdu, err := s.w.waitPacket(pairingDHKeyCheck)
	if err != nil {
		return err
	}
	ctx.remoteDHKeyCheck = pdu[1:]
	if !bytes.Equal(expectedRemote, ctx.remoteDHKeyCheck) {
		return newFailure(ReasonDHKeyCheckFailed, ErrDHKeyCheckFailed)
	}

	if !ctx.isInitiator() {
		if err := sendPDU(s.tx, buildDHKeyCheck(localCheck)); err != nil {
			return err
		}
	}

	ctx.ediv = 0
	ctx.randVal = 0
	ctx.legacy = false
	return nil
}

// rValue is the "r" input to f6: the passkey (as a 16-byte field) for
// Passkey Entry, the OOB random for OOB, or 16 zero bytes otherwise.
func (s *session) rValue() ([]byte, error) {
	switch s.ctx.pType {
	case Passkey:
		return legacyTK(s.ctx.passkey), nil
	case Oob:
		if len(s.auth.OOBData) == 16 {
			return s.auth.OOBData, nil
		}
		return make([]byte, 16), nil
	default:
		return make([]byte, 16), nil
	}
}

func randomPasskey() (int, error) {
	b, err := randomNonce()
	if err != nil {
		return 0, err
	}
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return int(v % 1000000), nil
}
