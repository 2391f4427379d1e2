package smp

import "github.com/pkg/errors"

// waiter sits on top of an eventQueue, turning raw events into the typed
// PDUs the phase state machines expect. UI prompts are answered
// synchronously through PairingUI, not through this queue, so the session
// goroutine only ever needs to wait for PDUs and command-status results.
type waiter struct {
	q *eventQueue
}

func newWaiter(q *eventQueue) *waiter {
	return &waiter{q: q}
}

func reasonFromPDU(pdu []byte) byte {
	if len(pdu) > 1 {
		return pdu[1]
	}
	return ReasonUnspecifiedReason
}

// waitPacket blocks for the next SMP PDU with the given opcode. A
// PAIRING_FAILED PDU for any other opcode surfaces the peer's reason.
// An early PAIRING_CONFIRM that arrives while the session goroutine is
// still blocked in a synchronous UI prompt needs no special caching: it
// simply sits in the FIFO queue behind the events ahead of it and is
// read in order once the prompt returns and the session resumes waiting.
func (w *waiter) waitPacket(opcode byte) ([]byte, error) {
	for {
		ev := w.q.WaitForEvent()
		switch ev.typ {
		case eventExit:
			return nil, timeoutFailure()
		case eventL2CAP:
			if len(ev.pdu) == 0 {
				return nil, newFailure(ReasonInvalidParameters, ErrInvalidParameters)
			}
			code := ev.pdu[0]
			if code == pairingFailed {
				return nil, remoteFailure(reasonFromPDU(ev.pdu))
			}
			if code == opcode {
				return ev.pdu, nil
			}
			return nil, newFailure(ReasonUnspecifiedReason,
				errors.Errorf("expected opcode 0x%02X, got 0x%02X", opcode, code))
		default:
			return nil, newFailure(ReasonUnspecifiedReason,
				errors.Errorf("expected an L2CAP command, got event type %v", ev.typ))
		}
	}
}

// waitCommandStatus blocks for the HCI command-status event following a
// previously sent command (e.g. LE_START_ENCRYPTION).
func (w *waiter) waitCommandStatus() error {
	for {
		ev := w.q.WaitForEvent()
		switch ev.typ {
		case eventExit:
			return timeoutFailure()
		case eventCommandStatus:
			return ev.err
		}
	}
}

// waitLongTermKeyRequest blocks for the controller's
// LE_LONG_TERM_KEY_REQUEST event, the peripheral-side trigger to reply
// with the key material Phase 2 produced.
func (w *waiter) waitLongTermKeyRequest() error {
	for {
		ev := w.q.WaitForEvent()
		switch ev.typ {
		case eventExit:
			return timeoutFailure()
		case eventLTKRequest:
			return nil
		}
	}
}
