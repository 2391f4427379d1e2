package smp

import "github.com/rigado/ble/linux/hci"

// L2CAPSender is the narrow transport port a session uses to emit SMP
// PDUs. It is satisfied by the manager's wrapper around the callback given
// to SetWritePDUFunc (which cmd/smplab points at an in-memory loopback),
// and by an in-memory loopback in tests.
type L2CAPSender interface {
	WritePDU(pdu []byte) (int, error)
}

// CommandPort is the narrow HCI command port a session uses once key
// material is ready. An error from StartEncryption or
// StartLegacyEncryption means the command could not be submitted; the
// command's completion status arrives afterwards as a command-status
// event on the session's queue, and a non-success status there fails the
// session too. The original implementation this design is based on
// silently discarded that status, which this session treats as a bug.
// ReplyLongTermKeyRequest answers
// the controller's LE_LONG_TERM_KEY_REQUEST event, the peripheral side
// of starting encryption: the central submits LE_START_ENCRYPTION, the
// peripheral waits to be asked for its key instead.
type CommandPort interface {
	StartEncryption(bondInfo hci.BondInfo) error
	StartLegacyEncryption(shortTermKey []byte) error
	ReplyLongTermKeyRequest(longTermKey []byte) error
}

// UIPort is the narrow user-interface port a session uses to satisfy
// Passkey Entry, Numeric Comparison, and pairing-acceptance prompts.
type UIPort interface {
	DisplayPasskey(passkey int)
	RequestPasskey() (int, error)
	ConfirmNumeric(value int) (bool, error)
	ConfirmPairing() (bool, error)
}
