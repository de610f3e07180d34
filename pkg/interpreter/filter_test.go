package interpreter

import (
	"bytes"
	"testing"
)

func TestScreenFilter(t *testing.T) {
	tests := []struct {
		name     string
		chunks   [][]byte
		expected []byte
	}{
		{
			name:     "Clear and Home",
			chunks:   [][]byte{[]byte("\x1b[2J\x1b[HContent")},
			expected: []byte("Content"),
		},
		{
			name: "Split Sequence",
			chunks: [][]byte{
				[]byte("\x1b[2"),
				[]byte("J\x1b[HContent"),
			},
			expected: []byte("Content"),
		},
		{
			name:     "Prompt attributes kept",
			chunks:   [][]byte{[]byte("\x1b[?25l\r\n\x1b[4maggressor\x1b[0m>\x1b[K")},
			expected: []byte("\r\n\x1b[4maggressor\x1b[0m>"),
		},
		{
			name:     "OSC with BEL",
			chunks:   [][]byte{[]byte("\x1b]0;agscript\x07Content")},
			expected: []byte("Content"),
		},
		{
			name:     "OSC with ST",
			chunks:   [][]byte{[]byte("\x1b]0;Title\x1b\\Content")},
			expected: []byte("Content"),
		},
		{
			name: "Split OSC",
			chunks: [][]byte{
				[]byte("\x1b]0;Title"),
				[]byte("\x07Content"),
			},
			expected: []byte("Content"),
		},
		{
			name: "Byte by byte",
			chunks: [][]byte{
				[]byte("\x1b"),
				[]byte("["),
				[]byte("4"),
				[]byte("m"),
				[]byte("e"),
			},
			expected: []byte("\x1b[4me"),
		},
		{
			name:     "Invalid CSI passes as text",
			chunks:   [][]byte{[]byte("\x1b[1\x07a")},
			expected: []byte("\x1b[1\x07a"),
		},
		{
			name: "Unterminated sequence flushed",
			chunks: [][]byte{
				[]byte("\x1b["),
				bytes.Repeat([]byte("1"), maxPendingSequence+1),
			},
			expected: append([]byte("\x1b["), bytes.Repeat([]byte("1"), maxPendingSequence+1)...),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &screenFilter{}
			var output []byte
			for _, chunk := range tt.chunks {
				output = append(output, f.Process(chunk)...)
			}

			if !bytes.Equal(output, tt.expected) {
				t.Errorf("expected %q, got %q", tt.expected, output)
			}
		})
	}
}

func TestCommandString(t *testing.T) {
	c := Command{Path: "./agscript", Args: []string{"10.0.0.1", "50050", "op_striker", "pass"}}
	if got := c.String(); got != "./agscript 10.0.0.1 50050 op_striker pass" {
		t.Errorf("unexpected command line %q", got)
	}
}
