package mqtt

import "log"

// pending is a message held back while the broker is unreachable.
type pending struct {
	topic    string
	payload  []byte
	retained bool
}

// DefaultOutboxSize bounds the messages held while disconnected.
const DefaultOutboxSize = 16

// outbox holds the newest non-retained messages published while
// disconnected so they can be sent after reconnecting. When full the oldest
// message is overwritten. Callers must synchronize.
type outbox struct {
	slots  []pending
	next   int
	n      int
	warned bool
}

func newOutbox(size int) *outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &outbox{slots: make([]pending, size)}
}

func (o *outbox) add(p pending) {
	if o.n == len(o.slots) {
		if !o.warned {
			log.Printf("mqtt: outbox full (%d messages), overwriting oldest", len(o.slots))
			o.warned = true
		}
	} else {
		o.n++
	}
	o.slots[o.next] = p
	o.next = (o.next + 1) % len(o.slots)
}

// take removes and returns the held messages, oldest first.
func (o *outbox) take() []pending {
	if o.n == 0 {
		return nil
	}
	out := make([]pending, 0, o.n)
	first := (o.next - o.n + len(o.slots)) % len(o.slots)
	for i := 0; i < o.n; i++ {
		out = append(out, o.slots[(first+i)%len(o.slots)])
	}
	o.next, o.n, o.warned = 0, 0, false
	return out
}

func (o *outbox) len() int {
	return o.n
}
