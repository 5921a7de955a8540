package decoder

import (
	"fmt"
	"strings"
	"testing"
)

func echoDecoder(buf []byte, source uint16, errCode int32, argument uint16) string {
	text := fmt.Sprintf("src=%d err=%d arg=%d", source, errCode, argument)
	n := copy(buf, text)
	return string(buf[:n])
}

func TestRegisterRejectsInvalidRange(t *testing.T) {
	r := New(4)
	if err := r.Register(10, 5, echoDecoder, 0); err != ErrInvalidRange {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestRegisterRejectsOverlap(t *testing.T) {
	r := New(4)
	if err := r.Register(60, 69, echoDecoder, 0); err != nil {
		t.Fatalf("unexpected error on first register: %v", err)
	}
	if err := r.Register(65, 80, echoDecoder, 0); err != ErrOverlap {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}

	// Table must still hold only the first entry: source 70 (inside the
	// rejected range, outside the accepted one) falls through to the
	// fallback text.
	buf := make([]byte, FormatBufSize)
	got := r.Decode(buf, 70, 1, 2, 0)
	if !strings.HasPrefix(got, "Unknown Source") {
		t.Errorf("expected fallback text for unregistered source 70, got %q", got)
	}
}

func TestRegisterFillsTableFull(t *testing.T) {
	r := New(2)
	if err := r.Register(0, 9, echoDecoder, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(10, 19, echoDecoder, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(20, 29, echoDecoder, 0); err != ErrTableFull {
		t.Fatalf("expected ErrTableFull, got %v", err)
	}
}

func TestDecodeDispatchesByRange(t *testing.T) {
	r := New(4)
	_ = r.Register(0, 49, echoDecoder, 0)
	_ = r.Register(50, 100, echoDecoder, 0)

	buf := make([]byte, FormatBufSize)
	got := r.Decode(buf, 75, -3, 9, 0)
	if got != "src=75 err=-3 arg=9" {
		t.Errorf("unexpected decode result: %q", got)
	}
}

func TestDecodeFallbackForUnknownSource(t *testing.T) {
	r := New(4)
	buf := make([]byte, FormatBufSize)
	got := r.Decode(buf, 999, 2, 3, 0)
	want := "Unknown Source : source = 999, error = 2, argument = 3"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecodeHonorsFlagMask(t *testing.T) {
	r := New(4)
	_ = r.Register(0, 100, echoDecoder, 0x01)

	buf := make([]byte, FormatBufSize)

	// flags=0 means "skip the flag check" so the entry still matches.
	if got := r.Decode(buf, 5, 1, 1, 0); strings.HasPrefix(got, "Unknown Source") {
		t.Error("expected match when queryFlags == 0")
	}

	// Non-overlapping flag bits should fall through to the fallback.
	if got := r.Decode(buf, 5, 1, 1, 0x02); !strings.HasPrefix(got, "Unknown Source") {
		t.Errorf("expected fallback for non-matching flags, got %q", got)
	}
}
