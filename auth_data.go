package ble

// AuthData carries the user-supplied inputs a pairing session may need
// while it runs: a fixed passkey for Passkey Entry, OOB data exchanged out
// of band before pairing starts, and the callback hooks a UI uses to
// answer prompts the session raises mid-pairing.
type AuthData struct {
	// Passkey is used for Passkey Entry association when non-zero. Left at
	// zero, a side that displays the passkey generates a random one and a
	// side that types it in asks AssignPasskey for a value.
	Passkey int

	// OOBData, when 16 bytes long, is the value received out of band
	// before pairing began: the TK for Legacy OOB pairing, the r value for
	// Secure Connections OOB. Any other length is treated as 16 zero bytes.
	OOBData []byte

	// AssignPasskey is invoked when this side has to type in the six-digit
	// passkey and Passkey above is zero. It must return a value in
	// [0, 999999].
	AssignPasskey func() int

	// DisplayPasskey is invoked with the locally generated passkey when
	// this device's IO capability requires it to be shown to the user.
	DisplayPasskey func(passkey int)

	// ConfirmNumeric is invoked during Numeric Comparison with the
	// six-digit value both sides computed; it must return true to accept.
	ConfirmNumeric func(value int) bool

	// AcceptPairing is invoked when the session reaches the point of
	// asking the user whether to proceed with pairing at all.
	AcceptPairing func() bool
}

// PairingUI is the narrow interface a pairing session uses to prompt a
// user. A zero-value AuthData satisfies every prompt with a reasonable
// Just Works default; callers that need Numeric Comparison or Passkey
// Entry must supply the matching AuthData callback.
type PairingUI interface {
	DisplayPasskey(passkey int)
	RequestPasskey() (int, error)
	ConfirmNumeric(value int) (bool, error)
	ConfirmPairing() (bool, error)
}

// authDataUI adapts an AuthData's callbacks to the PairingUI interface,
// defaulting every prompt that has no callback set.
type authDataUI struct {
	auth AuthData
}

// NewPairingUI wraps auth in a PairingUI, defaulting unset prompts to
// values appropriate for Just Works pairing.
func NewPairingUI(auth AuthData) PairingUI {
	return &authDataUI{auth: auth}
}

func (u *authDataUI) DisplayPasskey(passkey int) {
	if u.auth.DisplayPasskey != nil {
		u.auth.DisplayPasskey(passkey)
	}
}

func (u *authDataUI) RequestPasskey() (int, error) {
	if u.auth.Passkey != 0 {
		return u.auth.Passkey, nil
	}
	if u.auth.AssignPasskey != nil {
		return u.auth.AssignPasskey(), nil
	}
	return 0, nil
}

func (u *authDataUI) ConfirmNumeric(value int) (bool, error) {
	if u.auth.ConfirmNumeric != nil {
		return u.auth.ConfirmNumeric(value), nil
	}
	return true, nil
}

func (u *authDataUI) ConfirmPairing() (bool, error) {
	if u.auth.AcceptPairing != nil {
		return u.auth.AcceptPairing(), nil
	}
	return true, nil
}
