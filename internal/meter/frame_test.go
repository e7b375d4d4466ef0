// internal/meter/frame_test.go
package meter

import (
	"bytes"
	"testing"
)

func TestNewFrame_Layout(t *testing.T) {
	f := NewFrame(0x07)

	want := []byte{0x07, 0x03, 0x01, 0x00, 0x00, 0x44}
	if got := f.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("frame mismatch: got=% x want=% x", got, want)
	}
	if f.Address() != 0x07 {
		t.Fatalf("address: got=%d want=7", f.Address())
	}
}

func TestFrame_BytesIsCopy(t *testing.T) {
	f := NewFrame(1)

	b := f.Bytes()
	b[0] = 0xFF

	if f.Bytes()[0] != 1 {
		t.Fatalf("template mutated through Bytes()")
	}
}

func TestResponseSize(t *testing.T) {
	if ResponseSize != 136 {
		t.Fatalf("expected 136, got %d", ResponseSize)
	}
}

func TestParseField(t *testing.T) {
	f, err := ParseField("phase_b", "current")
	if err != nil {
		t.Fatalf("ParseField err=%v", err)
	}
	if f != (Field{PhaseB, Current}) {
		t.Fatalf("unexpected field %s", f)
	}

	if _, err := ParseField("phase_a", "frequency"); err == nil {
		t.Fatalf("expected error for per-phase frequency")
	}
	if _, err := ParseField("total", "voltage"); err == nil {
		t.Fatalf("expected error for total voltage")
	}
	if _, err := ParseField("phase_d", "voltage"); err == nil {
		t.Fatalf("expected error for unknown phase")
	}
}
