package smp

import (
	"fmt"
	"testing"
	"time"

	"github.com/rigado/ble"
	"github.com/rigado/ble/linux/hci"
)

// loopback wires one session's outbound PDUs directly onto its peer's
// event queue, standing in for the L2CAP fixed channel.
type loopback struct {
	peer *session
}

func (l *loopback) WritePDU(pdu []byte) (int, error) {
	if len(pdu) < 4 {
		return 0, fmt.Errorf("short L2CAP frame")
	}
	l.peer.q.PostPDU(pdu[4:])
	return len(pdu), nil
}

// fakeCommandPort stands in for the controller on both sides of an
// encryption start. A central's StartEncryption/StartLegacyEncryption
// simulates the controller-to-controller handshake raising
// LE_LONG_TERM_KEY_REQUEST on the peripheral; a peripheral's
// ReplyLongTermKeyRequest simulates the link finishing encryption,
// completing the command status both sides are waiting on. The
// peripheral's own status is queued before the call returns, so it is
// always ahead of any key PDU the central sends once its status arrives.
type fakeCommandPort struct {
	q     *eventQueue
	peerQ *eventQueue
}

func (f *fakeCommandPort) StartEncryption(hci.BondInfo) error {
	go f.peerQ.PostLongTermKeyRequest()
	return nil
}

func (f *fakeCommandPort) StartLegacyEncryption([]byte) error {
	go f.peerQ.PostLongTermKeyRequest()
	return nil
}

func (f *fakeCommandPort) ReplyLongTermKeyRequest([]byte) error {
	f.q.PostCommandStatus(nil)
	go f.peerQ.PostCommandStatus(nil)
	return nil
}

// fixedUI answers every prompt the same way, recording the numeric
// comparison value it was shown for assertions.
type fixedUI struct {
	acceptPairing bool
	acceptNumeric bool
	passkey       int
	lastNumeric   int
}

func (u *fixedUI) DisplayPasskey(int)             {}
func (u *fixedUI) RequestPasskey() (int, error)   { return u.passkey, nil }
func (u *fixedUI) ConfirmPairing() (bool, error)  { return u.acceptPairing, nil }
func (u *fixedUI) ConfirmNumeric(value int) (bool, error) {
	u.lastNumeric = value
	return u.acceptNumeric, nil
}

func quietLog() ble.Logger { return ble.GetLogger() }

// newHarness builds two sessions (central and peripheral) connected by an
// in-memory loopback, ready to have start() called on both.
func newHarness(centralCfg, peripheralCfg hci.SmpConfig, centralAuth, peripheralAuth ble.AuthData, centralUI, peripheralUI UIPort) (central, peripheral *session) {
	centralAddr := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	peripheralAddr := []byte{0x11, 0x12, 0x13, 0x14, 0x15, 0x16}

	centralCmd := &fakeCommandPort{}
	peripheralCmd := &fakeCommandPort{}
	centralTx := &loopback{}
	peripheralTx := &loopback{}

	central = newSession(centralCfg, nil, centralTx, centralCmd, centralUI,
		centralAddr, peripheralAddr, 0x00, 0x00, roleCentral, centralAuth, quietLog())
	peripheral = newSession(peripheralCfg, nil, peripheralTx, peripheralCmd, peripheralUI,
		peripheralAddr, centralAddr, 0x00, 0x00, rolePeripheral, peripheralAuth, quietLog())

	centralTx.peer = peripheral
	peripheralTx.peer = central
	centralCmd.q, centralCmd.peerQ = central.q, peripheral.q
	peripheralCmd.q, peripheralCmd.peerQ = peripheral.q, central.q

	return central, peripheral
}

func runHarness(t *testing.T, central, peripheral *session) (centralErr, peripheralErr error) {
	t.Helper()
	central.start()
	peripheral.start()

	timeout := time.After(5 * time.Second)
	centralDone, peripheralDone := central.done, peripheral.done
	for centralDone != nil || peripheralDone != nil {
		select {
		case err := <-centralDone:
			centralErr = err
			centralDone = nil
		case err := <-peripheralDone:
			peripheralErr = err
			peripheralDone = nil
		case <-timeout:
			t.Fatal("pairing did not complete within timeout")
		}
	}
	return centralErr, peripheralErr
}

func scConfig(ioCap byte, mitm bool) hci.SmpConfig {
	authReq := hci.AuthReqBonding | hci.AuthReqSC
	if mitm {
		authReq |= hci.AuthReqMitm
	}
	return hci.SmpConfig{
		IoCap:       ioCap,
		OobFlag:     0x00,
		AuthReq:     authReq,
		MaxKeySize:  16,
		InitKeyDist: hci.KeyDistIdKey | hci.KeyDistSignKey,
		RespKeyDist: hci.KeyDistIdKey | hci.KeyDistSignKey,
	}
}

func legacyConfig(ioCap byte, mitm bool) hci.SmpConfig {
	authReq := hci.AuthReqBonding
	if mitm {
		authReq |= hci.AuthReqMitm
	}
	return hci.SmpConfig{
		IoCap:       ioCap,
		OobFlag:     0x00,
		AuthReq:     authReq,
		MaxKeySize:  16,
		InitKeyDist: hci.KeyDistEncKey | hci.KeyDistIdKey | hci.KeyDistSignKey,
		RespKeyDist: hci.KeyDistEncKey | hci.KeyDistIdKey | hci.KeyDistSignKey,
	}
}

func TestSecureConnectionsJustWorksEndToEnd(t *testing.T) {
	cCfg := scConfig(hci.IoCapNoInputNoOutput, false)
	pCfg := scConfig(hci.IoCapNoInputNoOutput, false)
	centralUI := &fixedUI{acceptPairing: true, acceptNumeric: true}
	peripheralUI := &fixedUI{acceptPairing: true, acceptNumeric: true}

	central, peripheral := newHarness(cCfg, pCfg, ble.AuthData{}, ble.AuthData{}, centralUI, peripheralUI)
	centralErr, peripheralErr := runHarness(t, central, peripheral)

	if centralErr != nil {
		t.Fatalf("central pairing failed: %v", centralErr)
	}
	if peripheralErr != nil {
		t.Fatalf("peripheral pairing failed: %v", peripheralErr)
	}
	if central.ctx.pType != JustWorks {
		t.Fatalf("expected JustWorks, got %v", central.ctx.pType)
	}
	if len(central.ctx.bond.LongTermKey()) == 0 {
		t.Fatal("central has no LTK after pairing")
	}
}

func TestSecureConnectionsNumericComparisonEndToEnd(t *testing.T) {
	cCfg := scConfig(hci.IoCapDisplayYesNo, true)
	pCfg := scConfig(hci.IoCapDisplayYesNo, true)
	centralUI := &fixedUI{acceptPairing: true, acceptNumeric: true}
	peripheralUI := &fixedUI{acceptPairing: true, acceptNumeric: true}

	central, peripheral := newHarness(cCfg, pCfg, ble.AuthData{}, ble.AuthData{}, centralUI, peripheralUI)
	centralErr, peripheralErr := runHarness(t, central, peripheral)

	if centralErr != nil || peripheralErr != nil {
		t.Fatalf("pairing failed: central=%v peripheral=%v", centralErr, peripheralErr)
	}
	if central.ctx.pType != NumericComp {
		t.Fatalf("expected NumericComparison, got %v", central.ctx.pType)
	}
	if centralUI.lastNumeric != peripheralUI.lastNumeric {
		t.Fatalf("numeric comparison values diverged: central=%d peripheral=%d", centralUI.lastNumeric, peripheralUI.lastNumeric)
	}
}

func TestSecureConnectionsNumericComparisonUserRejects(t *testing.T) {
	cCfg := scConfig(hci.IoCapDisplayYesNo, true)
	pCfg := scConfig(hci.IoCapDisplayYesNo, true)
	centralUI := &fixedUI{acceptPairing: true, acceptNumeric: true}
	peripheralUI := &fixedUI{acceptPairing: true, acceptNumeric: false}

	central, peripheral := newHarness(cCfg, pCfg, ble.AuthData{}, ble.AuthData{}, centralUI, peripheralUI)
	centralErr, peripheralErr := runHarness(t, central, peripheral)

	if centralErr == nil && peripheralErr == nil {
		t.Fatal("expected pairing to fail when one side rejects the numeric comparison")
	}
}

func TestSecureConnectionsPasskeyEntryEndToEnd(t *testing.T) {
	cCfg := scConfig(hci.IoCapKeyboardOnly, true)
	pCfg := scConfig(hci.IoCapDisplayOnly, true)

	// central is keyboard-only, peripheral display-only: peripheral
	// displays the generated passkey, central's user enters the same
	// value. Shared between the two fake UIs via a channel.
	shown := make(chan int, 1)
	peripheralUI := &capturingUI{fixedUI: fixedUI{acceptPairing: true}, shown: shown}
	centralUI := &enteringUI{fixedUI: fixedUI{acceptPairing: true}, shown: shown}

	central, peripheral := newHarness(cCfg, pCfg, ble.AuthData{}, ble.AuthData{}, centralUI, peripheralUI)
	centralErr, peripheralErr := runHarness(t, central, peripheral)
	if centralErr != nil || peripheralErr != nil {
		t.Fatalf("pairing failed: central=%v peripheral=%v", centralErr, peripheralErr)
	}
	if central.ctx.pType != Passkey {
		t.Fatalf("expected Passkey, got %v", central.ctx.pType)
	}
	if len(central.ctx.bond.LongTermKey()) != 16 {
		t.Fatalf("expected a 16-byte LTK, got %d bytes", len(central.ctx.bond.LongTermKey()))
	}
}

// capturingUI records the passkey it is asked to display onto a channel
// the peer side reads from.
type capturingUI struct {
	fixedUI
	shown chan int
}

func (u *capturingUI) DisplayPasskey(pk int) {
	u.shown <- pk
}

// enteringUI blocks RequestPasskey until the peer's capturingUI has
// displayed a value.
type enteringUI struct {
	fixedUI
	shown chan int
}

func (u *enteringUI) RequestPasskey() (int, error) {
	return <-u.shown, nil
}

func TestLegacyJustWorksEndToEnd(t *testing.T) {
	cCfg := legacyConfig(hci.IoCapNoInputNoOutput, false)
	pCfg := legacyConfig(hci.IoCapNoInputNoOutput, false)
	centralUI := &fixedUI{acceptPairing: true, acceptNumeric: true}
	peripheralUI := &fixedUI{acceptPairing: true, acceptNumeric: true}

	central, peripheral := newHarness(cCfg, pCfg, ble.AuthData{}, ble.AuthData{}, centralUI, peripheralUI)
	centralErr, peripheralErr := runHarness(t, central, peripheral)

	if centralErr != nil || peripheralErr != nil {
		t.Fatalf("pairing failed: central=%v peripheral=%v", centralErr, peripheralErr)
	}
	if !central.ctx.legacy {
		t.Fatal("expected legacy pairing to be selected")
	}
	if len(central.ctx.bond.LongTermKey()) != 16 {
		t.Fatalf("expected a 16-byte distributed LTK, got %d bytes", len(central.ctx.bond.LongTermKey()))
	}
}

func TestReflectionAttackRejected(t *testing.T) {
	keys, err := GenerateKeys()
	if err != nil {
		t.Fatal(err)
	}
	xy := MarshalPublicKeyXY(keys.public)

	if !samePublicKey(keys.public, xy) {
		t.Fatal("expected samePublicKey to detect an echoed public key")
	}

	other, err := GenerateKeys()
	if err != nil {
		t.Fatal(err)
	}
	if samePublicKey(keys.public, MarshalPublicKeyXY(other.public)) {
		t.Fatal("samePublicKey false positive on two distinct keys")
	}
}
