package smp

import "time"

// SMP opcodes. [Vol 3, Part H, 3.3]
const (
	pairingRequest          = 0x01
	pairingResponse         = 0x02
	pairingConfirm          = 0x03
	pairingRandom           = 0x04
	pairingFailed           = 0x05
	encryptionInformation   = 0x06
	masterIdentification    = 0x07
	identityInformation     = 0x08
	identityAddrInformation = 0x09
	signingInformation      = 0x0A
	securityRequest         = 0x0B
	pairingPublicKey        = 0x0C
	pairingDHKeyCheck       = 0x0D
	pairingKeypress         = 0x0E

	passkeyIterationCount = 20

	oobDataAbsent = 0x00
	oobDataPreset = 0x01

	authReqBondMask = byte(0x03)
	authReqBond     = byte(0x01)
	authReqNoBond   = byte(0x00)
)

// pairingType identifies the association model selected for this session.
type pairingType int

const (
	JustWorks pairingType = iota
	NumericComp
	Passkey
	Oob
)

var pairingTypeStrings = map[pairingType]string{
	JustWorks:   "JustWorks",
	NumericComp: "NumericComparison",
	Passkey:     "PasskeyEntry",
	Oob:         "OutOfBand",
}

func (t pairingType) String() string {
	if s, ok := pairingTypeStrings[t]; ok {
		return s
	}
	return "Unknown"
}

// sessionTimeout is the SM timer (Vol 3, Part H, 3.4). Expiry with no
// activity terminates the session.
const sessionTimeout = 30 * time.Second
