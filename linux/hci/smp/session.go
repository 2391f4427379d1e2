package smp

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/pkg/errors"
	"github.com/rigado/ble"
	"github.com/rigado/ble/linux/hci"
)

// session runs one pairing attempt end to end on its own goroutine,
// mirroring the single std::thread the AOSP PairingHandlerLe dedicates to
// a pairing attempt. All state lives in ctx; the goroutine blocks on q
// between steps and is driven by events the manager posts to it (inbound
// PDUs, LE_LONG_TERM_KEY_REQUEST notifications, command-status results)
// plus its own internal 30-second quiet timeout. UI prompts are answered
// by synchronous calls on the session goroutine, not through q.
type session struct {
	ctx *pairingContext

	q *eventQueue
	w *waiter

	tx  L2CAPSender
	cmd CommandPort
	ui  UIPort
	bm  hci.BondManager

	auth ble.AuthData

	log ble.Logger

	done chan error
}

func newSession(localCfg hci.SmpConfig, bm hci.BondManager, tx L2CAPSender, cmd CommandPort, ui UIPort,
	localAddr, remoteAddr []byte, localAddrType, remoteAddrType uint8, role smpRole, auth ble.AuthData, log ble.Logger) *session {

	q := newEventQueue()
	s := &session{
		ctx: &pairingContext{
			localCfg:       localCfg,
			localAddr:      localAddr,
			remoteAddr:     remoteAddr,
			localAddrType:  localAddrType,
			remoteAddrType: remoteAddrType,
			role:           role,
		},
		q:    q,
		w:    newWaiter(q),
		tx:   tx,
		cmd:  cmd,
		ui:   ui,
		bm:   bm,
		auth: auth,
		log:  log,
		done: make(chan error, 1),
	}
	return s
}

func (s *session) start() {
	go func() {
		s.done <- s.run()
	}()
}

// run is the pairing state machine. Any error return here is the
// session's final result; run always wipes crypto scratch on the way
// out, win or lose.
func (s *session) run() (err error) {
	defer s.ctx.wipe()
	defer func() {
		if err != nil {
			s.log.Warnf("pairing failed: %v", err)
			if pf, ok := err.(*PairingFailure); !ok || (pf.Local && !pf.Silent) {
				_ = sendPDU(s.tx, buildFailed(failureReason(err)))
			}
		}
	}()

	if err = s.exchangeFeatures(); err != nil {
		return err
	}

	s.ctx.secureConnections = secureConnectionsRequested(s.ctx.localCfg, s.ctx.remoteCfg)
	keySize, err := effectiveKeySize(s.ctx.localCfg, s.ctx.remoteCfg)
	if err != nil {
		return err
	}
	s.ctx.keySize = keySize
	s.ctx.pType = determinePairingType(s.ctx.localCfg, s.ctx.remoteCfg, s.ctx.secureConnections, s.ctx.isInitiator())
	s.log.Infof("pairing type selected: %s (secure connections: %v)", s.ctx.pType, s.ctx.secureConnections)

	if s.ctx.pType == JustWorks && s.ctx.localCfg.AuthReq&hci.AuthReqMitm != 0 {
		return newFailure(ReasonAuthenticationRequirements, ErrAuthReqNotMet)
	}

	if s.ctx.secureConnections {
		if err = s.runPhase2SC(); err != nil {
			return err
		}
	} else {
		if err = s.runPhase2Legacy(); err != nil {
			return err
		}
	}

	if err = s.startEncryption(); err != nil {
		return err
	}

	if err = s.distributeKeys(); err != nil {
		return err
	}

	return s.saveBond()
}

// exchangeFeatures runs Phase 1: the central sends PAIRING_REQUEST, the
// peripheral answers with PAIRING_RESPONSE, and both sides record the
// raw 7-byte PDUs (needed verbatim by legacy c1). Only the responder
// prompts for user consent, after receiving PAIRING_REQUEST but before
// answering with PAIRING_RESPONSE: the initiator is the one asking to
// pair in the first place and needs no separate accept prompt.
// [Vol 3, Part H, 2.3.5.1]
func (s *session) exchangeFeatures() error {
	if s.ctx.isInitiator() {
		s.ctx.preq = buildPairingReq(s.ctx.localCfg)
		if err := sendPDU(s.tx, s.ctx.preq); err != nil {
			return err
		}
		pdu, err := s.w.waitPacket(pairingResponse)
		if err != nil {
			return err
		}
		s.ctx.pres = pdu
		cfg, err := parseSmpConfig(pdu)
		if err != nil {
			return err
		}
		s.ctx.remoteCfg = cfg
		return nil
	}

	pdu, err := s.w.waitPacket(pairingRequest)
	if err != nil {
		return err
	}
	s.ctx.preq = pdu
	cfg, err := parseSmpConfig(pdu)
	if err != nil {
		return err
	}
	s.ctx.remoteCfg = cfg

	if err := s.confirmPairing(); err != nil {
		return err
	}

	s.ctx.pres = buildPairingRsp(s.ctx.localCfg)
	return sendPDU(s.tx, s.ctx.pres)
}

// confirmPairing asks the user whether to proceed with this pairing
// attempt at all, the first step of the pairing lifecycle.
func (s *session) confirmPairing() error {
	accept, err := s.ui.ConfirmPairing()
	if err != nil {
		return err
	}
	if !accept {
		return newFailure(ReasonUnspecifiedReason, errors.New("pairing rejected by user"))
	}
	return nil
}

func (s *session) saveBond() error {
	if s.bm == nil || s.ctx.bond == nil {
		return nil
	}
	addr := hex.EncodeToString(s.ctx.remoteAddr)
	return s.bm.Save(addr, s.ctx.bond)
}

func randomNonce() ([]byte, error) {
	r := make([]byte, 16)
	if _, err := rand.Read(r); err != nil {
		return nil, err
	}
	return r, nil
}

// failureReason maps a run() error to the wire reason byte a local
// PAIRING_FAILED should carry. A remote-originated PairingFailure is not
// re-sent (the peer already knows); an unrecognized error becomes
// ReasonUnspecifiedReason.
func failureReason(err error) byte {
	if pf, ok := err.(*PairingFailure); ok {
		return pf.Reason
	}
	return ReasonUnspecifiedReason
}
