package smp

import (
	"sync"
	"time"
)

type eventType int

const (
	eventL2CAP eventType = iota
	eventCommandStatus
	eventLTKRequest
	eventExit
)

// pairingEvent is the single type posted onto a session's event queue,
// mirroring the PairingEvent union the AOSP pairing handler pushes
// between its I/O threads and its single state-machine thread. UI
// prompts are answered synchronously through PairingUI instead of this
// queue, since the session goroutine itself blocks on the callback.
type pairingEvent struct {
	typ eventType

	pdu []byte // eventL2CAP
	err error  // eventCommandStatus
}

// eventQueue is a FIFO of pairingEvents with a single waiter. All posting
// methods are safe to call from any goroutine; WaitForEvent must only be
// called from the session's own goroutine.
type eventQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []pairingEvent
	closed   bool
	timedOut bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *eventQueue) post(e pairingEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, e)
	q.cond.Broadcast()
}

func (q *eventQueue) PostPDU(pdu []byte) {
	q.post(pairingEvent{typ: eventL2CAP, pdu: pdu})
}

func (q *eventQueue) PostCommandStatus(err error) {
	q.post(pairingEvent{typ: eventCommandStatus, err: err})
}

// PostLongTermKeyRequest notifies a peripheral-role session that the
// controller has raised LE_LONG_TERM_KEY_REQUEST for its connection.
func (q *eventQueue) PostLongTermKeyRequest() {
	q.post(pairingEvent{typ: eventLTKRequest})
}

func (q *eventQueue) PostExit() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = append(q.items, pairingEvent{typ: eventExit})
	q.cond.Broadcast()
}

// WaitForEvent pops the next queued event, or blocks up to sessionTimeout
// for one to arrive. An empty queue after the timeout elapses yields an
// Exit event, matching the Core Spec's 30-second SM timer.
func (q *eventQueue) WaitForEvent() pairingEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 && !q.closed {
		timer := time.AfterFunc(sessionTimeout, func() {
			q.mu.Lock()
			q.timedOut = true
			q.mu.Unlock()
			q.cond.Broadcast()
		})
		for len(q.items) == 0 && !q.closed && !q.timedOut {
			q.cond.Wait()
		}
		timer.Stop()
		q.timedOut = false
	}

	if len(q.items) == 0 {
		return pairingEvent{typ: eventExit}
	}

	e := q.items[0]
	q.items = q.items[1:]
	return e
}
