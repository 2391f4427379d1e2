package smp

import (
	"encoding/binary"

	"crypto/rand"

	"github.com/rigado/ble/linux/hci"
)

// distributeKeys runs Phase 3: each side sends the keys the negotiated
// InitKeyDist/RespKeyDist masks call for, in ENC_INFO -> MASTER_ID ->
// ID_INFO -> ID_ADDR_INFO -> SIGN_INFO order. The initiator's keys go
// first, then the responder's, matching the Core Spec's distribution
// sequence. Secure Connections never distributes the encryption key
// itself (the LTK came from f5), only identity and signing keys.
func (s *session) distributeKeys() error {
	ctx := s.ctx

	initCfg, respCfg := ctx.localCfg, ctx.remoteCfg
	if !ctx.isInitiator() {
		initCfg, respCfg = ctx.remoteCfg, ctx.localCfg
	}
	negInit := initCfg.InitKeyDist & respCfg.InitKeyDist
	negResp := initCfg.RespKeyDist & respCfg.RespKeyDist

	localMask, remoteMask := negResp, negInit
	if ctx.isInitiator() {
		localMask, remoteMask = negInit, negResp
	}

	if ctx.isInitiator() {
		if err := s.sendKeys(localMask); err != nil {
			return err
		}
		if err := s.recvKeys(remoteMask); err != nil {
			return err
		}
	} else {
		if err := s.recvKeys(remoteMask); err != nil {
			return err
		}
		if err := s.sendKeys(localMask); err != nil {
			return err
		}
	}

	ctx.bond = finalBondInfo(ctx)
	return nil
}

// sendKeys emits this side's distributed keys in Core Spec order, masked
// by the negotiated key distribution bits for this side.
func (s *session) sendKeys(mask byte) error {
	ctx := s.ctx

	if mask&hci.KeyDistEncKey != 0 && !ctx.secureConnections {
		ltk, ediv, randVal, err := newLegacyDistributedLTK()
		if err != nil {
			return err
		}
		ctx.longTermKey = ltk
		ctx.ediv = ediv
		ctx.randVal = randVal
		if err := sendPDU(s.tx, buildEncryptionInformation(ltk)); err != nil {
			return err
		}
		if err := sendPDU(s.tx, buildMasterIdentification(ediv, randVal)); err != nil {
			return err
		}
	}

	if mask&hci.KeyDistIdKey != 0 {
		irk := ctx.localCfg.LocalIRK
		if irk == nil {
			irk = make([]byte, 16)
		}
		ctx.localIRK = irk
		if err := sendPDU(s.tx, buildIdentityInformation(irk)); err != nil {
			return err
		}
		if err := sendPDU(s.tx, buildIdentityAddrInformation(ctx.localAddrType, ctx.localAddr)); err != nil {
			return err
		}
	}

	if mask&hci.KeyDistSignKey != 0 {
		csrk := ctx.localCfg.LocalCSRK
		if csrk == nil {
			csrk = make([]byte, 16)
		}
		ctx.localCSRK = csrk
		if err := sendPDU(s.tx, buildSigningInformation(csrk)); err != nil {
			return err
		}
	}

	return nil
}

// recvKeys waits for the peer's distributed keys in Core Spec order,
// masked by the negotiated key distribution bits for the peer's side.
func (s *session) recvKeys(mask byte) error {
	ctx := s.ctx

	if mask&hci.KeyDistEncKey != 0 && !ctx.secureConnections {
		pdu, err := s.w.waitPacket(encryptionInformation)
		if err != nil {
			return err
		}
		ctx.longTermKey = pdu[1:]

		pdu, err = s.w.waitPacket(masterIdentification)
		if err != nil {
			return err
		}
		ctx.ediv = binary.LittleEndian.Uint16(pdu[1:3])
		ctx.randVal = binary.LittleEndian.Uint64(pdu[3:11])
	}

	if mask&hci.KeyDistIdKey != 0 {
		pdu, err := s.w.waitPacket(identityInformation)
		if err != nil {
			return err
		}
		ctx.remoteIRK = pdu[1:]

		pdu, err = s.w.waitPacket(identityAddrInformation)
		if err != nil {
			return err
		}
		ctx.remoteIdentityAddrType = pdu[1]
		ctx.remoteIdentityAddr = pdu[2:8]
	}

	if mask&hci.KeyDistSignKey != 0 {
		pdu, err := s.w.waitPacket(signingInformation)
		if err != nil {
			return err
		}
		ctx.remoteCSRK = pdu[1:]
	}

	return nil
}

// newLegacyDistributedLTK generates the LTK/EDIV/Rand this side hands to
// its peer in Phase 3 of a legacy pairing; this is distinct from (and
// replaces, for future reconnections) the STK the link is currently
// encrypted with.
func newLegacyDistributedLTK() (ltk []byte, ediv uint16, randVal uint64, err error) {
	ltk = make([]byte, 16)
	if _, err = rand.Read(ltk); err != nil {
		return nil, 0, 0, err
	}
	buf := make([]byte, 10)
	if _, err = rand.Read(buf); err != nil {
		return nil, 0, 0, err
	}
	ediv = binary.LittleEndian.Uint16(buf[:2])
	randVal = binary.LittleEndian.Uint64(buf[2:])
	return ltk, ediv, randVal, nil
}

// finalBondInfo assembles the BondInfo saved at the end of a session,
// folding in whatever identity and signing keys Phase 3 exchanged on top
// of the encryption key Phase 2 (or this phase, for legacy) produced.
func finalBondInfo(c *pairingContext) hci.BondInfo {
	irk := c.remoteIRK
	identityAddr := c.remoteIdentityAddr
	identityAddrType := c.remoteIdentityAddrType
	if identityAddr == nil {
		identityAddr = c.remoteAddr
		identityAddrType = c.remoteAddrType
	}
	return hci.NewBondInfoWithIdentity(c.longTermKey, c.ediv, c.randVal, c.legacy, irk, identityAddr, identityAddrType, c.remoteCSRK)
}
