// Package ipi carries messages between harts. A message is a bit in the
// receiving hart's mailbox word; the CLINT software interrupt tells the
// receiver to look at it.
package ipi

import (
	"sync/atomic"

	"github.com/gosbi/gosbi/firmware/clint"
)

// Message is a set of requests for a hart.
type Message uint32

const (
	// MsgSoft raises a supervisor software interrupt on the receiver.
	MsgSoft Message = 1 << iota

	// MsgFenceI asks the receiver to execute fence.i.
	MsgFenceI

	// MsgSfenceVMA asks the receiver to flush its address translation caches.
	MsgSfenceVMA
)

// Mailbox holds the pending messages of every hart.
type Mailbox struct {
	clint clint.Clint
	slots []atomic.Uint32
}

// NewMailbox returns an empty mailbox for harts harts, signalled through c.
func NewMailbox(c clint.Clint, harts int) *Mailbox {
	return &Mailbox{
		clint: c,
		slots: make([]atomic.Uint32, harts),
	}
}

// Harts returns the number of harts the mailbox serves.
func (m *Mailbox) Harts() int {
	return len(m.slots)
}

// Send posts msg to hart and interrupts it. Messages to the same hart that
// are not yet received are merged.
func (m *Mailbox) Send(hart int, msg Message) {
	slot := &m.slots[hart]
	for {
		old := slot.Load()
		if slot.CompareAndSwap(old, old|uint32(msg)) {
			break
		}
	}
	m.clint.SendSoft(hart)
}

// Receive acknowledges the software interrupt of hart and takes all of its
// pending messages. It returns 0 for a wakeup without messages.
//
// msip is cleared first so that a message posted after the swap raises a new
// interrupt instead of being lost.
func (m *Mailbox) Receive(hart int) Message {
	m.clint.ClearSoft(hart)
	return Message(m.slots[hart].Swap(0))
}

// Pending returns the messages waiting for hart without taking them.
func (m *Mailbox) Pending(hart int) Message {
	return Message(m.slots[hart].Load())
}
