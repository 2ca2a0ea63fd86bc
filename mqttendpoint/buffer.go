package mqttendpoint

// readBuffer is the endpoint loop's contiguous byte region backing
// spec.md §3's Read buffer invariant: every byte in [0, consumed) has
// been parsed and [consumed, size) has not. append compacts the
// unconsumed tail to offset 0 before growing, so size rises
// monotonically within a compaction interval, the way §3 requires.
//
// Only the endpoint loop's single goroutine ever touches a readBuffer,
// matching spec §5's "read buffer ... owned by the endpoint task
// alone."
type readBuffer struct {
	buf      []byte
	consumed int
}

// append compacts unconsumed bytes to offset 0, then appends data.
func (b *readBuffer) append(data []byte) {
	if b.consumed > 0 {
		n := copy(b.buf, b.buf[b.consumed:])
		b.buf = b.buf[:n]
		b.consumed = 0
	}
	b.buf = append(b.buf, data...)
}

// reset empties the buffer, for reset_for_reconnection (spec §4.5).
func (b *readBuffer) reset() {
	b.buf = nil
	b.consumed = 0
}
