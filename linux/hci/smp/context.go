package smp

import (
	"crypto"

	"github.com/rigado/ble/linux/hci"
)

type smpRole int

const (
	roleCentral smpRole = iota
	rolePeripheral
)

// pairingContext is the mutable state one pairing session accumulates as
// it runs: negotiated feature sets, nonces, confirm values, key material,
// and the association model chosen in Phase 1.
type pairingContext struct {
	localCfg  hci.SmpConfig
	remoteCfg hci.SmpConfig

	preq []byte
	pres []byte

	localAddr, remoteAddr         []byte
	localAddrType, remoteAddrType uint8

	role smpRole

	secureConnections bool
	pType             pairingType
	keySize           byte

	localRandom, remoteRandom   []byte
	localConfirm, remoteConfirm []byte

	ecdhKeys       *ECDHKeys
	remotePubKeyXY []byte
	remotePubKey   crypto.PublicKey
	dhKey          []byte
	macKey         []byte

	tk           []byte
	shortTermKey []byte
	longTermKey  []byte

	passkey      int
	passkeyRound int

	localDHKeyCheck  []byte
	remoteDHKeyCheck []byte

	ediv    uint16
	randVal uint64
	legacy  bool

	localIRK  []byte
	remoteIRK []byte

	localCSRK  []byte
	remoteCSRK []byte

	remoteIdentityAddr     []byte
	remoteIdentityAddrType uint8

	bond hci.BondInfo
}

func (c *pairingContext) isInitiator() bool { return c.role == roleCentral }

// iaRa returns the initiator's and responder's (address, addrType) pairs
// for c1: the central's first when the local device is central, the
// remote's first when the local device is peripheral. The teacher's call
// sites always passed the local device's values first, which is wrong
// for a peripheral acting as responder.
func (c *pairingContext) iaRa() (ia, ra []byte, iat, rat uint8) {
	if c.isInitiator() {
		return c.localAddr, c.remoteAddr, c.localAddrType, c.remoteAddrType
	}
	return c.remoteAddr, c.localAddr, c.remoteAddrType, c.localAddrType
}

// initiatorResponderAddrFields returns the (address||addrType) 7-byte
// fields f5/f6 call A1/A2, in wire order with the address type as the last
// octet, which f5/f6's byte swap turns into the most significant octet as
// in the Core Spec's own test vectors: A1 is always the initiator's, A2 the
// responder's, regardless of which one is the local device.
func (c *pairingContext) initiatorResponderAddrFields() (a1, a2 []byte) {
	ia, ra, iat, rat := c.iaRa()
	a1 = append(append([]byte{}, ia...), iat)
	a2 = append(append([]byte{}, ra...), rat)
	return a1, a2
}

// initiatorResponderNonces returns (N1, N2) as f5 defines them: the
// initiator's nonce first, the responder's second.
func (c *pairingContext) initiatorResponderNonces() (n1, n2 []byte) {
	if c.isInitiator() {
		return c.localRandom, c.remoteRandom
	}
	return c.remoteRandom, c.localRandom
}

// ioCapBytes builds the 3-byte AuthReq||OobFlag||IoCap field f6 consumes,
// for whichever side owns it. Like every other f6 operand it is kept in
// wire order, so IoCap comes first and AuthReq last.
func (c *pairingContext) ioCapBytes(local bool) []byte {
	cfg := c.remoteCfg
	if local {
		cfg = c.localCfg
	}
	return []byte{cfg.IoCap, cfg.OobFlag, cfg.AuthReq}
}

// newSessionBondInfo builds the BondInfo Secure Connections hands to
// StartEncryption: the LTK applies directly, so EDIV/Rand are zero.
// Identity and signing keys, if any, are filled in by Phase 3 and folded
// into a replacement BondInfo before the bond is saved.
func newSessionBondInfo(c *pairingContext) hci.BondInfo {
	return hci.NewBondInfo(c.longTermKey, 0, 0, false)
}

func zeroBytes(bufs ...[]byte) {
	for _, b := range bufs {
		for i := range b {
			b[i] = 0
		}
	}
}

// wipe zeroizes every piece of cryptographic scratch this context holds,
// regardless of how the session ended. The session's results (LTK, STK,
// and the IRK/CSRK values shared with the bond and the device config) are
// left intact.
func (c *pairingContext) wipe() {
	zeroBytes(
		c.localRandom, c.remoteRandom,
		c.localConfirm, c.remoteConfirm,
		c.dhKey, c.macKey,
		c.tk,
		c.localDHKeyCheck, c.remoteDHKeyCheck,
		c.remotePubKeyXY,
	)
	if c.ecdhKeys != nil {
		if priv, ok := c.ecdhKeys.private.([]byte); ok {
			zeroBytes(priv)
		}
		c.ecdhKeys = nil
	}
}
