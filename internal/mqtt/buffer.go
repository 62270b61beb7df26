package mqtt

import "log"

// DefaultOutboxSize is the number of messages held while disconnected.
const DefaultOutboxSize = 128

// pending is a serialized message waiting for the broker.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a fixed-capacity FIFO of pending messages. When full the oldest
// message is overwritten. Not safe for concurrent use.
type outbox struct {
	ring    []pending
	next    int // write position
	size    int
	dropped int // overwritten since last flush
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{ring: make([]pending, capacity)}
}

func (o *outbox) add(msg pending) {
	capacity := len(o.ring)
	o.ring[o.next] = msg
	o.next = (o.next + 1) % capacity
	if o.size < capacity {
		o.size++
		return
	}
	if o.dropped == 0 {
		log.Printf("mqtt: outbox full (%d messages), dropping oldest", capacity)
	}
	o.dropped++
}

// flush returns pending messages oldest first and empties the outbox.
func (o *outbox) flush() []pending {
	if o.size == 0 {
		return nil
	}
	capacity := len(o.ring)
	out := make([]pending, 0, o.size)
	first := (o.next - o.size + capacity) % capacity
	for i := 0; i < o.size; i++ {
		out = append(out, o.ring[(first+i)%capacity])
	}
	if o.dropped > 0 {
		log.Printf("mqtt: %d messages were dropped while disconnected", o.dropped)
	}
	o.next, o.size, o.dropped = 0, 0, 0
	return out
}

func (o *outbox) len() int {
	return o.size
}
