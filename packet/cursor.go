package packet

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrNeedMore is returned by decode functions when buf does not yet hold
// a complete value. Callers must not treat it as a parse failure: more
// bytes are expected to arrive and the same buf prefix must be retried
// unmodified once they do. A function that returns ErrNeedMore must not
// have consumed any bytes from buf.
var ErrNeedMore = errors.New("packet: need more data")

// ErrMalformed indicates the bytes present are structurally invalid
// MQTT, independent of how many more bytes might arrive. It is never
// resolved by feeding more data.
var ErrMalformed = errors.New("packet: malformed packet")

// Cursor reads sequentially from a byte slice without ever copying or
// advancing past data it cannot fully account for. Decode functions take
// a *Cursor so that a failed decode (ErrNeedMore) leaves pos untouched,
// satisfying the "decode must not consume on NeedMore" invariant.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor wraps buf for reading starting at offset 0.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current read offset.
func (c *Cursor) Pos() int { return c.pos }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// Reset rebinds the cursor to a new buffer at offset 0. Used by the
// endpoint loop to hand the same Cursor a grown read buffer across
// successive NeedMore results.
func (c *Cursor) Reset(buf []byte) {
	c.buf = buf
	c.pos = 0
}

// byte reads a single byte, advancing pos only on success.
func (c *Cursor) byte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, ErrNeedMore
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// take returns the next n bytes without copying, advancing pos only on
// success. The returned slice aliases the cursor's buffer and must be
// copied by the caller before the buffer is reused or grown.
func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrMalformed
	}
	if c.Remaining() < n {
		return nil, ErrNeedMore
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// peek returns up to n bytes starting at pos without advancing, or
// fewer if that many aren't available yet.
func (c *Cursor) peek(n int) []byte {
	end := c.pos + n
	if end > len(c.buf) {
		end = len(c.buf)
	}
	return c.buf[c.pos:end]
}

func (c *Cursor) uint16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func (c *Cursor) uint32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// varInt decodes a Variable Byte Integer (MQTT section 1.5.5), returning
// ErrNeedMore if the terminating byte (continuation bit clear) has not
// yet arrived, and ErrMalformed if more than four bytes are seen or the
// decoded value exceeds MaxRemainingLength.
func (c *Cursor) varInt() (int, error) {
	start := c.pos
	var value, multiplier int
	for i := 0; i < 4; i++ {
		b, err := c.byte()
		if err != nil {
			c.pos = start
			return 0, err
		}
		value += int(b&0x7f) * pow128(multiplier)
		multiplier++
		if b&0x80 == 0 {
			if value > MaxRemainingLength {
				return 0, ErrMalformed
			}
			return value, nil
		}
	}
	return 0, ErrMalformed
}

func pow128(n int) int {
	v := 1
	for i := 0; i < n; i++ {
		v *= 128
	}
	return v
}

// str decodes an MQTT UTF-8 string (2-byte length prefix), rejecting an
// embedded null byte or non-shortest UTF-8 as ErrMalformed per spec.md
// §4.1's "Reject embedded null and non-shortest UTF-8" requirement.
func (c *Cursor) str() (string, error) {
	b, err := c.binary()
	if err != nil {
		return "", err
	}
	s := string(b)
	if strings.Contains(s, "\x00") {
		return "", ErrMalformed
	}
	if !utf8.ValidString(s) {
		return "", ErrMalformed
	}
	return s, nil
}

// binary decodes MQTT length-prefixed binary data, returning a copy so
// callers may retain it past buffer reuse.
func (c *Cursor) binary() ([]byte, error) {
	start := c.pos
	n, err := c.uint16()
	if err != nil {
		return nil, err
	}
	data, err := c.take(int(n))
	if err != nil {
		c.pos = start
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
