// internal/poller/rtu/client_test.go
package rtu

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/goburrow/modbus"
	"go.uber.org/zap"
)

// fakeHandler echoes a canned PDU and records what it was asked to send.
type fakeHandler struct {
	resp    *modbus.ProtocolDataUnit
	sendErr error
	encoded *modbus.ProtocolDataUnit
	slave   uint8
	closed  bool
}

func (f *fakeHandler) Encode(pdu *modbus.ProtocolDataUnit) ([]byte, error) {
	f.encoded = pdu
	return append([]byte{pdu.FunctionCode}, pdu.Data...), nil
}

func (f *fakeHandler) Decode(adu []byte) (*modbus.ProtocolDataUnit, error) {
	return f.resp, nil
}

func (f *fakeHandler) Verify(aduRequest, aduResponse []byte) error { return nil }

func (f *fakeHandler) Send(aduRequest []byte) ([]byte, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return []byte{0x00}, nil
}

func (f *fakeHandler) setSlave(id uint8) { f.slave = id }

func (f *fakeHandler) Close() error {
	f.closed = true
	return nil
}

func readReply(regs []byte) *modbus.ProtocolDataUnit {
	return &modbus.ProtocolDataUnit{
		FunctionCode: 0x03,
		Data:         append([]byte{byte(len(regs))}, regs...),
	}
}

func TestNew_RequiresPort(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatalf("expected error for empty port")
	}
}

func TestRoundTrip_StripsByteCount(t *testing.T) {
	regs := make([]byte, 136)
	regs[0] = 0x5A
	h := &fakeHandler{resp: readReply(regs)}
	c := newClient(h, zap.NewNop())

	got, err := c.roundTrip([]byte{0x01, 0x03, 0x01, 0x00, 0x00, 0x44})
	if err != nil {
		t.Fatalf("roundTrip err=%v", err)
	}
	if !bytes.Equal(got, regs) {
		t.Fatalf("payload mismatch: got %d bytes", len(got))
	}
	if h.encoded.FunctionCode != 0x03 || !bytes.Equal(h.encoded.Data, []byte{0x01, 0x00, 0x00, 0x44}) {
		t.Fatalf("unexpected encoded pdu: fc=%d data=% x", h.encoded.FunctionCode, h.encoded.Data)
	}
}

func TestRoundTrip_UsesFrameAddress(t *testing.T) {
	h := &fakeHandler{resp: readReply(make([]byte, 136))}
	c := newClient(h, zap.NewNop())

	if _, err := c.roundTrip([]byte{0x07, 0x03, 0x01, 0x00, 0x00, 0x44}); err != nil {
		t.Fatalf("roundTrip err=%v", err)
	}
	if h.slave != 0x07 {
		t.Fatalf("slave id: got=%d want=7", h.slave)
	}

	if _, err := c.roundTrip([]byte{0x02, 0x03, 0x01, 0x00, 0x00, 0x44}); err != nil {
		t.Fatalf("roundTrip err=%v", err)
	}
	if h.slave != 0x02 {
		t.Fatalf("slave id not switched: got=%d want=2", h.slave)
	}
}

func TestRTUHandler_SetSlave(t *testing.T) {
	h := rtuHandler{modbus.NewRTUClientHandler("/dev/ttyUSB0")}
	h.setSlave(0x21)

	if h.SlaveId != 0x21 {
		t.Fatalf("goburrow slave id: got=%d want=33", h.SlaveId)
	}
}

func TestRoundTrip_ExceptionPassedThrough(t *testing.T) {
	h := &fakeHandler{resp: &modbus.ProtocolDataUnit{FunctionCode: 0x83, Data: []byte{0x02}}}
	c := newClient(h, zap.NewNop())

	got, err := c.roundTrip([]byte{0x01, 0x03, 0x01, 0x00, 0x00, 0x44})
	if err != nil {
		t.Fatalf("roundTrip err=%v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1-byte exception payload, got %d", len(got))
	}
}

func TestRoundTrip_SendErrorWrapped(t *testing.T) {
	cause := errors.New("serial: timeout")
	c := newClient(&fakeHandler{sendErr: cause}, zap.NewNop())

	_, err := c.roundTrip([]byte{0x01, 0x03, 0x01, 0x00, 0x00, 0x44})

	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if rerr.Op != "send" || !errors.Is(err, cause) {
		t.Fatalf("unexpected error: %v", err)
	}
	if rerr.Code() != transportErrorCode {
		t.Fatalf("code: got=%d want=%d", rerr.Code(), transportErrorCode)
	}
}

func TestSend_DeliversResponse(t *testing.T) {
	h := &fakeHandler{resp: readReply(make([]byte, 136))}
	c := newClient(h, zap.NewNop())
	defer c.Close()

	c.Send([]byte{0x01, 0x03, 0x01, 0x00, 0x00, 0x44})

	select {
	case resp := <-c.Responses():
		if resp.Err != nil {
			t.Fatalf("unexpected err=%v", resp.Err)
		}
		if len(resp.Data) != 136 {
			t.Fatalf("expected 136 bytes, got %d", len(resp.Data))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for response")
	}
}

func TestClose_ReleasesHandler(t *testing.T) {
	h := &fakeHandler{}
	c := newClient(h, zap.NewNop())

	if err := c.Close(); err != nil {
		t.Fatalf("Close err=%v", err)
	}
	if !h.closed {
		t.Fatalf("handler not closed")
	}

	// Send after Close is a no-op.
	c.Send([]byte{0x01, 0x03})
	if err := c.Close(); err != nil {
		t.Fatalf("second Close err=%v", err)
	}
}
