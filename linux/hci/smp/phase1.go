package smp

import "github.com/rigado/ble/linux/hci"

// ioCapsTableSC is the Secure Connections IO capability mapping.
// [Vol 3, Part H, Table 2.8] Rows are the initiator's IoCap, columns the
// responder's; only consulted when at least one side requested MITM
// protection.
var ioCapsTableSC = [5][5]pairingType{
	{JustWorks, JustWorks, Passkey, JustWorks, Passkey},
	{JustWorks, NumericComp, Passkey, JustWorks, NumericComp},
	{Passkey, Passkey, Passkey, JustWorks, Passkey},
	{JustWorks, JustWorks, JustWorks, JustWorks, JustWorks},
	{Passkey, NumericComp, Passkey, JustWorks, NumericComp},
}

// ioCapsTableLegacy is the LE Legacy Pairing IO capability mapping.
// [Vol 3, Part H, Table 2.4]
var ioCapsTableLegacy = [5][5]pairingType{
	{JustWorks, JustWorks, Passkey, JustWorks, Passkey},
	{JustWorks, JustWorks, Passkey, JustWorks, Passkey},
	{Passkey, Passkey, Passkey, JustWorks, Passkey},
	{JustWorks, JustWorks, JustWorks, JustWorks, JustWorks},
	{Passkey, Passkey, Passkey, JustWorks, Passkey},
}

// determinePairingType selects the association model for this session.
// OOB short-circuits everything else; if neither side asked for MITM
// protection Just Works is used regardless of IO capabilities; an
// out-of-range (reserved) IO capability value falls back to Just Works.
func determinePairingType(localCfg, remoteCfg hci.SmpConfig, secureConnections, localIsInitiator bool) pairingType {
	localOOB := localCfg.OobFlag == hci.OobPreset
	remoteOOB := remoteCfg.OobFlag == hci.OobPreset
	// Secure Connections OOB only needs one side to have received
	// authenticated data (it can be sent one-way); Legacy OOB requires
	// both sides to have exchanged it, since Legacy OOB data IS the TK.
	// [Vol 3, Part H, 2.3.5.1]
	if secureConnections && (localOOB || remoteOOB) {
		return Oob
	}
	if !secureConnections && localOOB && remoteOOB {
		return Oob
	}

	localMITM := localCfg.AuthReq&hci.AuthReqMitm != 0
	remoteMITM := remoteCfg.AuthReq&hci.AuthReqMitm != 0
	if !localMITM && !remoteMITM {
		return JustWorks
	}

	li, ri := int(localCfg.IoCap), int(remoteCfg.IoCap)
	if li >= int(hci.IoCapsReservedStart) || ri >= int(hci.IoCapsReservedStart) {
		return JustWorks
	}

	table := ioCapsTableLegacy
	if secureConnections {
		table = ioCapsTableSC
	}

	if localIsInitiator {
		return table[li][ri]
	}
	return table[ri][li]
}

// passkeyRoles decides which side of a Passkey Entry exchange displays
// the generated passkey and which side's user types one in. When both
// devices are keyboard-only, both enter the same externally agreed value.
func passkeyRoles(localCfg, remoteCfg hci.SmpConfig) (localDisplays, localEnters bool) {
	lc, rc := localCfg.IoCap, remoteCfg.IoCap
	switch {
	case lc == hci.IoCapKeyboardOnly && rc == hci.IoCapKeyboardOnly:
		return false, true
	case lc == hci.IoCapKeyboardOnly:
		return false, true
	case rc == hci.IoCapKeyboardOnly:
		return true, false
	case lc == hci.IoCapKeyboardDisplay && rc != hci.IoCapKeyboardDisplay:
		return false, true
	default:
		return true, false
	}
}

// secureConnectionsRequested reports whether both sides' AuthReq carry
// the SC bit; pairing only proceeds via LE Secure Connections when both
// peers advertise support.
func secureConnectionsRequested(localCfg, remoteCfg hci.SmpConfig) bool {
	return localCfg.AuthReq&hci.AuthReqSC != 0 && remoteCfg.AuthReq&hci.AuthReqSC != 0
}

// effectiveKeySize is the smaller of the two requested encryption key
// sizes. A result below the Core Spec's 7-octet minimum is a pairing
// failure, not something to silently clamp upward. [Vol 3, Part H, 2.3.4]
func effectiveKeySize(localCfg, remoteCfg hci.SmpConfig) (byte, error) {
	sz := localCfg.MaxKeySize
	if remoteCfg.MaxKeySize < sz {
		sz = remoteCfg.MaxKeySize
	}
	if sz < 7 {
		return 0, newFailure(ReasonEncryptionKeySize, ErrEncryptionKeySize)
	}
	if sz > 16 {
		sz = 16
	}
	return sz, nil
}
