package smp

import (
	"github.com/pkg/errors"
)

// Pairing Failed reason codes. [Vol 3, Part H, 3.5.5]
const (
	ReasonPasskeyEntryFailed       = 0x01
	ReasonOobNotAvailable          = 0x02
	ReasonAuthenticationRequirements = 0x03
	ReasonConfirmValueFailed       = 0x04
	ReasonPairingNotSupported      = 0x05
	ReasonEncryptionKeySize        = 0x06
	ReasonCommandNotSupported      = 0x07
	ReasonUnspecifiedReason        = 0x08
	ReasonRepeatedAttempts         = 0x09
	ReasonInvalidParameters        = 0x0A
	ReasonDHKeyCheckFailed         = 0x0B
	ReasonNumericComparisonFailed  = 0x0C
	ReasonBrEdrPairingInProgress   = 0x0D
	ReasonCrossTransportNotAllowed = 0x0E
	ReasonKeyRejected              = 0x0F
)

var reasonStrings = map[byte]string{
	ReasonPasskeyEntryFailed:         "passkey entry failed",
	ReasonOobNotAvailable:            "OOB not available",
	ReasonAuthenticationRequirements: "authentication requirements",
	ReasonConfirmValueFailed:        "confirm value failed",
	ReasonPairingNotSupported:       "pairing not supported",
	ReasonEncryptionKeySize:         "encryption key size",
	ReasonCommandNotSupported:       "command not supported",
	ReasonUnspecifiedReason:         "unspecified reason",
	ReasonRepeatedAttempts:          "repeated attempts",
	ReasonInvalidParameters:         "invalid parameters",
	ReasonDHKeyCheckFailed:          "DHKey check failed",
	ReasonNumericComparisonFailed:   "numeric comparison failed",
	ReasonBrEdrPairingInProgress:    "BR/EDR pairing in progress",
	ReasonCrossTransportNotAllowed:  "cross-transport key derivation not allowed",
	ReasonKeyRejected:               "key rejected",
}

func reasonString(r byte) string {
	if s, ok := reasonStrings[r]; ok {
		return s
	}
	return "unknown reason"
}

// Sentinel causes, wrapped by PairingFailure so callers can errors.Is/As
// against the underlying condition independent of the wire reason code.
var (
	ErrConfirmValueFailed      = errors.New("confirm value check failed")
	ErrDHKeyCheckFailed        = errors.New("DHKey check failed")
	ErrNumericComparisonFailed = errors.New("numeric comparison rejected")
	ErrReflectionAttack        = errors.New("remote public key equals local public key")
	ErrEncryptionStartFailed   = errors.New("LE_START_ENCRYPTION command failed")
	ErrSessionTimeout          = errors.New("SMP session timed out")
	ErrUnexpectedPDU           = errors.New("unexpected PDU for current pairing state")
	ErrInvalidParameters       = errors.New("invalid SMP PDU parameters")
	ErrEncryptionKeySize       = errors.New("effective encryption key size below the 7-octet minimum")
	ErrAuthReqNotMet           = errors.New("MITM protection required but IO capabilities only permit Just Works")
)

// PairingFailure is the error a session fails with. Reason is the SMP
// reason code to send (or that was received) in a PAIRING_FAILED PDU;
// Local is false when the reason came from the peer rather than being
// detected locally. Silent marks a Timeout or Exit termination, which per
// [Vol 3, Part H, 3.4] and the Core Spec's session-removal rules ends the
// attempt without emitting any further PDU, even though it is detected
// locally.
type PairingFailure struct {
	Reason byte
	Local  bool
	Silent bool
	cause  error
}

func newFailure(reason byte, cause error) *PairingFailure {
	return &PairingFailure{Reason: reason, Local: true, cause: cause}
}

func remoteFailure(reason byte) *PairingFailure {
	return &PairingFailure{Reason: reason, Local: false, cause: errors.Errorf("peer sent PAIRING_FAILED: %s", reasonString(reason))}
}

// timeoutFailure reports the session's 30-second quiet timer expiring or
// an external Exit, neither of which the peer knows about yet: the
// session simply disappears rather than sending a PAIRING_FAILED PDU.
func timeoutFailure() *PairingFailure {
	return &PairingFailure{Reason: ReasonUnspecifiedReason, Local: true, Silent: true, cause: ErrSessionTimeout}
}

func (f *PairingFailure) Error() string {
	who := "remote"
	if f.Local {
		who = "local"
	}
	return errors.Wrapf(f.cause, "%s pairing failure (reason 0x%02X: %s)", who, f.Reason, reasonString(f.Reason)).Error()
}

func (f *PairingFailure) Unwrap() error {
	return f.cause
}
