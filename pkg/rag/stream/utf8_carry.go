package stream

import "unicode/utf8"

// UTF8Carry holds back a multi-byte sequence split across chunk boundaries so
// every emitted chunk ends on a rune boundary.
type UTF8Carry struct {
	pending []byte
}

// Push returns the part of pending+chunk that is safe to emit and keeps the
// incomplete trailing sequence, if any, for the next call.
func (c *UTF8Carry) Push(chunk []byte) []byte {
	buf := chunk
	if len(c.pending) > 0 {
		buf = append(c.pending, chunk...)
		c.pending = nil
	}

	n := incompleteTail(buf)
	if n == 0 {
		return buf
	}
	c.pending = append([]byte(nil), buf[len(buf)-n:]...)
	return buf[:len(buf)-n]
}

// Flush returns whatever is still held back. At end of stream that is a
// truncated sequence; it is passed through unchanged.
func (c *UTF8Carry) Flush() []byte {
	out := c.pending
	c.pending = nil
	return out
}

// incompleteTail reports how many trailing bytes of b start a rune that is not
// yet complete. Invalid bytes count as complete.
func incompleteTail(b []byte) int {
	for n := 1; n < utf8.UTFMax && n <= len(b); n++ {
		if !utf8.RuneStart(b[len(b)-n]) {
			continue
		}
		if utf8.FullRune(b[len(b)-n:]) {
			return 0
		}
		return n
	}
	return 0
}
