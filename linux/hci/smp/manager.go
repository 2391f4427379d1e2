package smp

import (
	"fmt"
	"sync"
	"time"

	"github.com/rigado/ble"
	"github.com/rigado/ble/linux/hci"
)

// manager implements hci.SmpManager. One manager is bound to a single
// Conn; Pair and the inbound-PDU Handle path both run against the single
// *session the manager currently owns.
type manager struct {
	cfg hci.SmpConfig
	log ble.Logger

	mu        sync.Mutex
	cur       *session
	writeFn   func([]byte) (int, error)
	encFn     func(hci.BondInfo) error
	nopFn     func() error
	ltkReplyF func([]byte) error
	bm        hci.BondManager

	localAddr, remoteAddr         []byte
	localAddrType, remoteAddrType uint8
}

func newManager(cfg hci.SmpConfig, log ble.Logger) *manager {
	return &manager{cfg: cfg, log: log}
}

func (m *manager) SetWritePDUFunc(f func([]byte) (int, error))  { m.writeFn = f }
func (m *manager) SetEncryptFunc(f func(hci.BondInfo) error)    { m.encFn = f }
func (m *manager) SetNOPFunc(f func() error)                    { m.nopFn = f }
func (m *manager) SetBondManager(bm hci.BondManager)            { m.bm = bm }
func (m *manager) SetLongTermKeyReplyFunc(f func([]byte) error) { m.ltkReplyF = f }

func (m *manager) InitContext(localAddr, remoteAddr []byte, localAddrType, remoteAddrType uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.localAddr, m.remoteAddr = localAddr, remoteAddr
	m.localAddrType, m.remoteAddrType = localAddrType, remoteAddrType
}

// funcSender adapts the WritePDU callback to L2CAPSender.
type funcSender struct{ f func([]byte) (int, error) }

func (s funcSender) WritePDU(pdu []byte) (int, error) { return s.f(pdu) }

// funcCommandPort adapts the callbacks the Conn supplies to CommandPort. A
// legacy STK is wrapped in a transient BondInfo with EDIV/Rand zeroed, since
// the underlying controller command for starting encryption with an STK
// takes the same three fields (LTK, EDIV, Rand) it does for a bonded LTK.
// nop, if set, is invoked once after a successful encryption start as the
// workaround some controllers need before they accept the next HCI command.
// ltkReply submits LE_LONG_TERM_KEY_REQUEST_REPLY, the peripheral's answer
// to the controller's LE_LONG_TERM_KEY_REQUEST event.
type funcCommandPort struct {
	enc      func(hci.BondInfo) error
	nop      func() error
	ltkReply func([]byte) error
}

func (c funcCommandPort) StartEncryption(bondInfo hci.BondInfo) error {
	if c.enc == nil {
		return fmt.Errorf("smp: no encrypt function configured")
	}
	err := c.enc(bondInfo)
	if err == nil && c.nop != nil {
		_ = c.nop()
	}
	return err
}

func (c funcCommandPort) StartLegacyEncryption(shortTermKey []byte) error {
	return c.StartEncryption(hci.NewBondInfo(shortTermKey, 0, 0, true))
}

func (c funcCommandPort) ReplyLongTermKeyRequest(longTermKey []byte) error {
	if c.ltkReply == nil {
		return fmt.Errorf("smp: no long term key reply function configured")
	}
	return c.ltkReply(longTermKey)
}

func (m *manager) newSession(ui UIPort, auth ble.AuthData, role smpRole) *session {
	m.mu.Lock()
	tx := funcSender{m.writeFn}
	cmd := funcCommandPort{enc: m.encFn, nop: m.nopFn, ltkReply: m.ltkReplyF}
	bm := m.bm
	localAddr, remoteAddr := m.localAddr, m.remoteAddr
	localAddrType, remoteAddrType := m.localAddrType, m.remoteAddrType
	m.mu.Unlock()

	s := newSession(m.cfg, bm, tx, cmd, ui, localAddr, remoteAddr, localAddrType, remoteAddrType, role, auth, m.log)
	m.mu.Lock()
	m.cur = s
	m.mu.Unlock()
	return s
}

// Handle delivers an inbound SMP PDU to the running session, or, when no
// session is running and the PDU is a PAIRING_REQUEST, starts one acting
// as responder driven by a Just Works-only UI (a peer-initiated pairing
// with no caller-supplied AuthData gets the safe default).
func (m *manager) Handle(in []byte) error {
	m.mu.Lock()
	s := m.cur
	m.mu.Unlock()

	if s == nil {
		if len(in) == 0 || in[0] != pairingRequest {
			return newFailure(ReasonCommandNotSupported, ErrUnexpectedPDU)
		}
		s = m.newSession(ble.NewPairingUI(ble.AuthData{}), ble.AuthData{}, rolePeripheral)
		s.start()
	}

	s.q.PostPDU(in)
	return nil
}

// HandleLongTermKeyRequest notifies the running peripheral-role session
// that the controller raised LE_LONG_TERM_KEY_REQUEST for this connection.
func (m *manager) HandleLongTermKeyRequest() error {
	m.mu.Lock()
	s := m.cur
	m.mu.Unlock()

	if s == nil {
		return fmt.Errorf("smp: no session running")
	}
	s.q.PostLongTermKeyRequest()
	return nil
}

// HandleCommandStatus delivers the controller's completion status for a
// previously submitted encryption command to the running session.
func (m *manager) HandleCommandStatus(err error) error {
	m.mu.Lock()
	s := m.cur
	m.mu.Unlock()

	if s == nil {
		return fmt.Errorf("smp: no session running")
	}
	s.q.PostCommandStatus(err)
	return nil
}

// Pair drives a full pairing session as the initiator, blocking until it
// completes, fails, or to elapses.
func (m *manager) Pair(authData ble.AuthData, to time.Duration) error {
	ui := ble.NewPairingUI(authData)
	s := m.newSession(ui, authData, roleCentral)
	s.start()

	if to <= 0 {
		to = sessionTimeout
	}

	select {
	case err := <-s.done:
		return err
	case <-time.After(to):
		s.q.PostExit()
		<-s.done
		return timeoutFailure()
	}
}

// StartEncryption re-establishes link encryption using a previously
// bonded peer's stored LTK, without running a new pairing session.
func (m *manager) StartEncryption() error {
	m.mu.Lock()
	remoteAddr := m.remoteAddr
	bm := m.bm
	cmd := funcCommandPort{enc: m.encFn, nop: m.nopFn, ltkReply: m.ltkReplyF}
	m.mu.Unlock()

	if bm == nil {
		return fmt.Errorf("smp: no bond manager configured")
	}
	addr := fmt.Sprintf("%x", remoteAddr)
	bond, err := bm.Find(addr)
	if err != nil {
		return err
	}
	return cmd.StartEncryption(bond)
}

func (m *manager) BondInfoFor(addr string) (hci.BondInfo, error) {
	if m.bm == nil {
		return nil, fmt.Errorf("smp: no bond manager configured")
	}
	return m.bm.Find(addr)
}

func (m *manager) DeleteBondInfo(addr string) error {
	if m.bm == nil {
		return fmt.Errorf("smp: no bond manager configured")
	}
	return m.bm.Delete(addr)
}

// LegacyPairingInfo reports the just-completed session's legacy STK, if
// the last Pair/Handle session used LE Legacy Pairing.
func (m *manager) LegacyPairingInfo() (bool, []byte) {
	m.mu.Lock()
	s := m.cur
	m.mu.Unlock()
	if s == nil {
		return false, nil
	}
	return s.ctx.legacy, s.ctx.shortTermKey
}
