// internal/meter/decode_test.go
package meter

import (
	"encoding/binary"
	"math"
	"testing"
)

// ---- helpers ----

func buffer() []byte {
	return make([]byte, ResponseSize)
}

func put16(b []byte, reg int, v uint16) {
	binary.BigEndian.PutUint16(b[reg*2:], v)
}

func put32(b []byte, reg int, v uint32) {
	binary.BigEndian.PutUint32(b[reg*2:], v)
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

type recorder struct {
	calls  int
	values []float64
}

func (r *recorder) Publish(v float64) {
	r.calls++
	r.values = append(r.values, v)
}

func bindAll() (Sinks, map[Field]*recorder) {
	sinks := Sinks{}
	recs := make(map[Field]*recorder)
	for _, f := range Fields() {
		rec := &recorder{}
		recs[f] = rec
		sinks.Bind(f, rec)
	}
	return sinks, recs
}

// ---- tests ----

func TestFields_Count(t *testing.T) {
	if got := len(Fields()); got != 19 {
		t.Fatalf("expected 19 fields, got %d", got)
	}
}

func TestDecode_ZeroBuffer(t *testing.T) {
	r, err := Decode(buffer())
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}

	sinks, recs := bindAll()
	sinks.Publish(r)

	for f, rec := range recs {
		if rec.calls != 1 {
			t.Fatalf("%s: expected 1 publish, got %d", f, rec.calls)
		}
		if rec.values[0] != 0 {
			t.Fatalf("%s: expected 0, got %v", f, rec.values[0])
		}
	}
}

func TestDecode_WrongLengthNeverPublishes(t *testing.T) {
	for _, n := range []int{0, 1, 5, ResponseSize - 1, ResponseSize + 1, 256} {
		r, err := Decode(make([]byte, n))
		if err == nil {
			t.Fatalf("len=%d: expected error", n)
		}
		if _, ok := err.(*LengthError); !ok {
			t.Fatalf("len=%d: expected *LengthError, got %T", n, err)
		}

		sinks, recs := bindAll()
		sinks.Publish(r)
		for f, rec := range recs {
			if rec.calls != 0 {
				t.Fatalf("len=%d: %s published on rejected response", n, f)
			}
		}
	}
}

func TestDecode_ScaleRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		field Field
		reg   int
		wide  bool
		raw   uint32
		want  float64
	}{
		{"voltage A", Field{PhaseA, Voltage}, 0, false, 23012, 230.12},
		{"voltage C", Field{PhaseC, Voltage}, 2, false, 1234, 12.34},
		{"current B", Field{PhaseB, Current}, 4, false, 515, 5.15},
		{"power C", Field{PhaseC, ActivePower}, 8, false, 1800, 1800},
		{"forward A", Field{PhaseA, ForwardActiveEnergy}, 0x34, true, 10000, 100.00},
		{"forward C", Field{PhaseC, ForwardActiveEnergy}, 0x38, true, 123456, 1234.56},
		{"backward B", Field{PhaseB, BackwardActiveEnergy}, 0x3e, true, 70000, 700.00},
		{"total power", Field{Total, ActivePower}, 0x09, true, 70000, 70000},
		{"total forward", Field{Total, ForwardActiveEnergy}, 0x3A, true, 99999, 999.99},
		{"total backward", Field{Total, BackwardActiveEnergy}, 0x42, true, 5, 0.05},
		{"frequency", Field{Total, Frequency}, 0x15, false, 5001, 50.01},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := buffer()
			if tc.wide {
				put32(b, tc.reg, tc.raw)
			} else {
				put16(b, tc.reg, uint16(tc.raw))
			}

			r, err := Decode(b)
			if err != nil {
				t.Fatalf("Decode err=%v", err)
			}
			if got := r.Value(tc.field); !near(got, tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestDecode_ForwardEnergyBytes(t *testing.T) {
	b := buffer()
	copy(b[0x34*2:], []byte{0x00, 0x00, 0x27, 0x10})

	r, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	if got := r.Value(Field{PhaseA, ForwardActiveEnergy}); !near(got, 100.00) {
		t.Fatalf("expected 100.00, got %v", got)
	}
}

func TestDecode_FieldIsolation(t *testing.T) {
	for _, target := range Fields() {
		b := buffer()
		reg := layout(target)
		if reg.wide {
			put32(b, reg.offset, 100)
		} else {
			put16(b, reg.offset, 100)
		}

		r, err := Decode(b)
		if err != nil {
			t.Fatalf("Decode err=%v", err)
		}

		sinks, recs := bindAll()
		sinks.Publish(r)

		for f, rec := range recs {
			v := rec.values[0]
			if f == target {
				if v == 0 {
					t.Fatalf("%s: expected non-zero value", f)
				}
				continue
			}
			if v != 0 {
				t.Fatalf("writing %s leaked into %s (=%v)", target, f, v)
			}
		}
	}
}

func TestDecode_DirectionBitIsolation(t *testing.T) {
	phases := []Phase{PhaseA, PhaseB, PhaseC, Total}

	for bit, flipped := range phases {
		b := buffer()
		for _, f := range Fields() {
			reg := layout(f)
			if reg.wide {
				put32(b, reg.offset, 42)
			} else {
				put16(b, reg.offset, 42)
			}
		}
		put16(b, RegDirection, 1<<uint(bit))

		r, err := Decode(b)
		if err != nil {
			t.Fatalf("Decode err=%v", err)
		}

		for _, f := range Fields() {
			v := r.Value(f)
			wantNeg := f.Quantity == ActivePower && f.Phase == flipped
			if wantNeg && v >= 0 {
				t.Fatalf("bit %d: %s should be negative, got %v", bit, f, v)
			}
			if !wantNeg && v < 0 {
				t.Fatalf("bit %d: %s should not be negative, got %v", bit, f, v)
			}
		}
	}
}

func TestDecode_Direction1011(t *testing.T) {
	b := buffer()
	put16(b, 6, 100)    // phase A power
	put16(b, 7, 200)    // phase B power
	put16(b, 8, 300)    // phase C power
	put32(b, 0x09, 600) // total power
	put16(b, RegDirection, 0b1011)

	r, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}

	want := map[Field]float64{
		{PhaseA, ActivePower}: -100,
		{PhaseB, ActivePower}: -200,
		{PhaseC, ActivePower}: 300,
		{Total, ActivePower}:  -600,
	}
	for f, w := range want {
		if got := r.Value(f); got != w {
			t.Fatalf("%s: got %v want %v", f, got, w)
		}
	}
	if r.Direction != 0b1011 {
		t.Fatalf("direction not preserved: %b", r.Direction)
	}
}

func TestDecode_RawRegisters(t *testing.T) {
	b := buffer()
	put16(b, 0, 0xABCD)
	put16(b, int(RegisterCount)-1, 0x1234)

	r, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	if len(r.Registers) != int(RegisterCount) {
		t.Fatalf("expected %d registers, got %d", RegisterCount, len(r.Registers))
	}
	if r.Registers[0] != 0xABCD || r.Registers[RegisterCount-1] != 0x1234 {
		t.Fatalf("raw registers mismatch: first=%04x last=%04x", r.Registers[0], r.Registers[RegisterCount-1])
	}
}

func TestSinks_UnboundFieldsAreNoop(t *testing.T) {
	b := buffer()
	put16(b, 0, 23000)

	r, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}

	var got []float64
	sinks := Sinks{}
	sinks.Bind(Field{PhaseA, Voltage}, SinkFunc(func(v float64) { got = append(got, v) }))
	sinks.Publish(r)

	if len(got) != 1 || !near(got[0], 230.00) {
		t.Fatalf("unexpected publishes: %v", got)
	}

	// nil sinks map is a valid "nothing bound" configuration
	var none Sinks
	none.Publish(r)
}

func TestSinks_BindFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	f := Field{Total, Frequency}

	sinks := Sinks{}
	sinks.Bind(f, a)
	sinks.Bind(f, b)
	sinks.Bind(f, nil)

	r, _ := Decode(buffer())
	sinks.Publish(r)

	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("expected both sinks called once, got a=%d b=%d", a.calls, b.calls)
	}
}
