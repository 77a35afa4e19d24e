package mqtt

import "log"

// pending is one message waiting for the broker connection.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox keeps the newest messages published while the broker is
// unreachable, up to a fixed limit. The caller synchronizes access.
type outbox struct {
	slots []pending
	first int // index of the oldest message
	n     int

	lost      int // dropped since the last take
	lostTotal int
}

func newOutbox(limit int) *outbox {
	if limit < 1 {
		limit = 1
	}
	return &outbox{slots: make([]pending, limit)}
}

// add queues msg, evicting the oldest message when full.
func (o *outbox) add(msg pending) {
	size := len(o.slots)
	if o.n < size {
		o.slots[(o.first+o.n)%size] = msg
		o.n++
		return
	}

	if o.lost == 0 {
		log.Printf("mqtt: offline queue full (%d messages), dropping oldest", size)
	}
	o.lost++
	o.lostTotal++
	o.slots[o.first] = msg
	o.first = (o.first + 1) % size
}

// take empties the outbox, returning the messages oldest first and how many
// were dropped since the previous take.
func (o *outbox) take() ([]pending, int) {
	lost := o.lost
	o.lost = 0
	if o.n == 0 {
		return nil, lost
	}

	out := make([]pending, 0, o.n)
	for i := 0; i < o.n; i++ {
		idx := (o.first + i) % len(o.slots)
		out = append(out, o.slots[idx])
		o.slots[idx] = pending{}
	}
	o.first, o.n = 0, 0
	return out, lost
}

func (o *outbox) len() int {
	return o.n
}

// dropped returns how many messages were evicted since creation.
func (o *outbox) dropped() int {
	return o.lostTotal
}
