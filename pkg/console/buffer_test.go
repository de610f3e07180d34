package console

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExpectBufferOverflow(t *testing.T) {
	b := newExpectBuffer(16)
	b.write([]byte("0123456789"))
	b.write([]byte("abcdefghij"))

	_, err := b.wait(Literal("prompt>"), 50*time.Millisecond)
	if !errors.Is(err, ErrBufferOverflow) {
		t.Fatalf("Expected overflow, got %v", err)
	}
	if got := b.snapshot(); got != "" {
		t.Errorf("Overflow should clear the buffer, got %q", got)
	}

	// reported once, later output is matched again
	b.write([]byte("\r\nprompt>"))
	before, err := b.wait(Literal("prompt>"), 50*time.Millisecond)
	if err != nil || before != "\r\n" {
		t.Errorf("Unexpected wait result %q, %v", before, err)
	}
}

func TestExpectBufferKeepsUnreadHead(t *testing.T) {
	b := newExpectBuffer(16)
	b.write([]byte("e cmd;0123456789"))
	b.write([]byte("tail"))

	// output received before the limit still satisfies a wait
	if _, err := b.wait(Literal("e cmd;"), 50*time.Millisecond); err != nil {
		t.Fatalf("Echo wait failed: %v", err)
	}
	_, err := b.wait(Literal("prompt>"), 50*time.Millisecond)
	if !errors.Is(err, ErrBufferOverflow) {
		t.Errorf("Expected overflow for discarded output, got %v", err)
	}
}

func TestExpectBufferOverflowWakesWait(t *testing.T) {
	b := newExpectBuffer(8)
	result := make(chan error, 1)
	go func() {
		_, err := b.wait(Literal("prompt>"), time.Second)
		result <- err
	}()

	b.write([]byte("01234567"))
	b.write([]byte("89"))

	select {
	case err := <-result:
		if !errors.Is(err, ErrBufferOverflow) {
			t.Errorf("Expected overflow, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}
}

func TestExpectBufferUnbounded(t *testing.T) {
	b := newExpectBuffer(0)
	big := strings.Repeat("QUFB", 1<<18)
	b.write([]byte(big))
	b.write([]byte("\r\nprompt>"))

	before, err := b.wait(Literal("prompt>"), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(before) != len(big)+2 {
		t.Errorf("Expected %d bytes before the prompt, got %d", len(big)+2, len(before))
	}
}
