package hci

// IO capability values exchanged in PAIRING_REQUEST/RESPONSE. [Vol 3, Part H, 2.3.2]
const (
	IoCapDisplayOnly     = byte(0x00)
	IoCapDisplayYesNo    = byte(0x01)
	IoCapKeyboardOnly    = byte(0x02)
	IoCapNoInputNoOutput = byte(0x03)
	IoCapKeyboardDisplay = byte(0x04)

	// IoCapsReservedStart marks the first value Core Spec reserves; values
	// at or above this are treated as Just Works by determinePairingType.
	IoCapsReservedStart = byte(0x05)
)

// AuthReq bit positions. [Vol 3, Part H, 3.5.1]
const (
	AuthReqBondingMask = byte(0x03)
	AuthReqBonding     = byte(0x01)
	AuthReqMitm        = byte(0x04)
	AuthReqSC          = byte(0x08)
	AuthReqKeypress    = byte(0x10)
	AuthReqCT2         = byte(0x20)
)

// Key distribution/generation bit positions for the InitKeyDist/RespKeyDist
// fields. [Vol 3, Part H, 3.6.1]
const (
	KeyDistEncKey  = byte(0x01)
	KeyDistIdKey   = byte(0x02)
	KeyDistSignKey = byte(0x04)
	KeyDistLinkKey = byte(0x08)
)

// OobPreset marks that authenticated OOB data is available, in the
// OobDataFlag field of a pairing request/response.
const OobPreset = byte(0x01)

// SmpConfig configures the local SMP feature set advertised in this
// device's PAIRING_REQUEST/RESPONSE, mirroring the fields the original
// rigado-ble SmpConfig is referenced with throughout linux/hci/smp.
type SmpConfig struct {
	IoCap       byte
	OobFlag     byte
	AuthReq     byte
	MaxKeySize  byte
	InitKeyDist byte
	RespKeyDist byte

	// LocalIRK and LocalCSRK are this device's own identity resolving and
	// signing keys, handed out during Phase 3 key distribution when the
	// negotiated key distribution bits call for them. Left nil, the
	// corresponding PDU carries 16 zero bytes rather than being skipped,
	// matching a device that set the bit but has no real key material yet.
	LocalIRK  []byte
	LocalCSRK []byte
}

// DefaultSmpConfig matches what most BLE peripherals advertise: no IO, no
// OOB, bonding requested, Secure Connections enabled, full key
// distribution in both directions, max key size.
var DefaultSmpConfig = SmpConfig{
	IoCap:       IoCapNoInputNoOutput,
	OobFlag:     0x00,
	AuthReq:     AuthReqBonding | AuthReqSC,
	MaxKeySize:  16,
	InitKeyDist: KeyDistEncKey | KeyDistIdKey | KeyDistSignKey,
	RespKeyDist: KeyDistEncKey | KeyDistIdKey | KeyDistSignKey,
}

// Encrypter is implemented by anything that can kick off link-layer
// encryption with a bond's long term key (or the session's short term key,
// for legacy pairing).
type Encrypter interface {
	Encrypt() error
}
