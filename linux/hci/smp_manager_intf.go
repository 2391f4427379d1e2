package hci

import (
	"time"

	"github.com/rigado/ble"
)

// SmpManager drives one Security Manager session against a single
// connected peer. A Conn owns exactly one SmpManager for its lifetime.
type SmpManager interface {
	SetWritePDUFunc(f func([]byte) (int, error))
	SetEncryptFunc(f func(BondInfo) error)
	SetNOPFunc(f func() error)
	SetBondManager(bm BondManager)

	// SetLongTermKeyReplyFunc wires the peripheral-side answer to
	// LE_LONG_TERM_KEY_REQUEST: submitting LE_LONG_TERM_KEY_REQUEST_REPLY
	// with the given key.
	SetLongTermKeyReplyFunc(f func(longTermKey []byte) error)

	InitContext(localAddr, remoteAddr []byte, localAddrType, remoteAddrType uint8)

	// Handle processes one inbound SMP PDU (the L2CAP payload, opcode
	// byte first) addressed to CidSMP.
	Handle(in []byte) error

	// HandleLongTermKeyRequest notifies the running session, if this
	// device is acting as peripheral, that the controller raised
	// LE_LONG_TERM_KEY_REQUEST for this connection.
	HandleLongTermKeyRequest() error

	// HandleCommandStatus delivers the controller's completion status for
	// the previously submitted LE_START_ENCRYPTION or
	// LE_LONG_TERM_KEY_REQUEST_REPLY command to the running session. A nil
	// err means the command completed successfully.
	HandleCommandStatus(err error) error

	// Pair drives a full pairing session to completion or failure,
	// blocking until the session ends or the timeout elapses.
	Pair(authData ble.AuthData, to time.Duration) error

	// StartEncryption kicks off link-layer encryption with the bond the
	// bond manager holds for the remote address given to InitContext (a
	// successful Pair saves its bond there). It fails when no bond manager
	// is set or no bond is stored for that address.
	StartEncryption() error

	BondInfoFor(addr string) (BondInfo, error)
	DeleteBondInfo(addr string) error

	// LegacyPairingInfo reports whether the just-completed session used
	// legacy pairing and, if so, its short term key.
	LegacyPairingInfo() (bool, []byte)
}

// SmpManagerFactory builds a SmpManager bound to a particular device
// configuration.
type SmpManagerFactory interface {
	Create(config SmpConfig) SmpManager
}
