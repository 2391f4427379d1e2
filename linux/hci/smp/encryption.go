package smp

// startEncryption brings the link up to the encryption level Phase 2
// negotiated. The two roles get there differently: the central submits
// LE_START_ENCRYPTION and blocks for the command's actual completion
// status; the peripheral instead waits for the controller to raise
// LE_LONG_TERM_KEY_REQUEST and answers it with the same key material.
// The original implementation this is based on fired the central's
// command and moved straight to key distribution without checking its
// completion status; a controller that rejects the command (bad key,
// link already encrypting, wrong peer) would leave the session believing
// pairing had succeeded. Treating a non-success status as a terminal
// failure here closes that gap, for both roles.
func (s *session) startEncryption() error {
	if s.ctx.isInitiator() {
		return s.startEncryptionAsCentral()
	}
	return s.startEncryptionAsPeripheral()
}

func (s *session) startEncryptionAsCentral() error {
	ctx := s.ctx

	var err error
	if ctx.secureConnections {
		ctx.bond = newSessionBondInfo(ctx)
		err = s.cmd.StartEncryption(ctx.bond)
	} else {
		err = s.cmd.StartLegacyEncryption(ctx.shortTermKey)
	}
	if err != nil {
		return newFailure(ReasonUnspecifiedReason, err)
	}

	if err := s.w.waitCommandStatus(); err != nil {
		return newFailure(ReasonUnspecifiedReason, err)
	}
	return nil
}

// startEncryptionAsPeripheral waits for LE_LONG_TERM_KEY_REQUEST and
// replies with the LTK (Secure Connections) or STK (Legacy) Phase 2
// produced, then waits for the controller to confirm the link actually
// went encrypted.
func (s *session) startEncryptionAsPeripheral() error {
	ctx := s.ctx

	if err := s.w.waitLongTermKeyRequest(); err != nil {
		return newFailure(ReasonUnspecifiedReason, err)
	}

	key := ctx.shortTermKey
	if ctx.secureConnections {
		ctx.bond = newSessionBondInfo(ctx)
		key = ctx.longTermKey
	}
	if err := s.cmd.ReplyLongTermKeyRequest(key); err != nil {
		return newFailure(ReasonUnspecifiedReason, err)
	}

	if err := s.w.waitCommandStatus(); err != nil {
		return newFailure(ReasonUnspecifiedReason, err)
	}
	return nil
}
