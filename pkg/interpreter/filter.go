package interpreter

import "bytes"

const maxPendingSequence = 256

// screenFilter drops the cursor positioning, erase, private mode and window
// title sequences ConPTY emits while repainting. Text and SGR sequences pass
// through untouched, so prompts keep their attributes. A sequence split
// across reads is held back until it completes.
type screenFilter struct {
	pending []byte
}

func (f *screenFilter) Process(data []byte) []byte {
	buf := append(f.pending, data...)
	f.pending = nil

	out := make([]byte, 0, len(buf))
	for i := 0; i < len(buf); {
		if buf[i] != 0x1b {
			out = append(out, buf[i])
			i++
			continue
		}
		n, keep, complete := scanEscape(buf[i:])
		if !complete {
			if len(buf)-i > maxPendingSequence {
				return append(out, buf[i:]...)
			}
			f.pending = bytes.Clone(buf[i:])
			return out
		}
		if keep {
			out = append(out, buf[i:i+n]...)
		}
		i += n
	}
	return out
}

// scanEscape measures the escape sequence at the start of b and reports
// whether it should be kept. complete is false when b ends mid sequence.
func scanEscape(b []byte) (n int, keep bool, complete bool) {
	if len(b) < 2 {
		return 0, false, false
	}
	switch b[1] {
	case '[':
		for j := 2; j < len(b); j++ {
			c := b[j]
			switch {
			case c >= 0x40 && c <= 0x7e:
				return j + 1, keepCSI(c), true
			case c < 0x20 || c > 0x3f:
				// Not a valid CSI, pass what was read as text
				return j, true, true
			}
		}
		return 0, false, false
	case ']':
		for j := 2; j < len(b); j++ {
			if b[j] == 0x07 {
				return j + 1, false, true
			}
			if b[j] == 0x1b {
				if j+1 >= len(b) {
					return 0, false, false
				}
				if b[j+1] == '\\' {
					return j + 2, false, true
				}
			}
		}
		return 0, false, false
	}
	return 1, true, true
}

func keepCSI(final byte) bool {
	switch final {
	case 'H', 'f', 'J', 'K', 'X', 'h', 'l':
		return false
	}
	return true
}
