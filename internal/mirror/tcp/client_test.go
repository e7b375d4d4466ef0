// internal/mirror/tcp/client_test.go
package tcp

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"
	"time"
)

// ---- loopback modbus-tcp slave ----

type request struct {
	unitID uint8
	fc     byte
	addr   uint16
	values []uint16
}

type slave struct {
	ln net.Listener

	mu       sync.Mutex
	requests []request
}

// newSlave answers FC16 requests by echoing address and quantity.
func newSlave(t *testing.T) *slave {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &slave{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *slave) serve(conn net.Conn) {
	defer conn.Close()

	for {
		// MBAP: txid(2) proto(2) len(2) unit(1)
		hdr := make([]byte, 7)
		if _, err := io.ReadFull(conn, hdr); err != nil {
			return
		}
		pdu := make([]byte, int(binary.BigEndian.Uint16(hdr[4:6]))-1)
		if _, err := io.ReadFull(conn, pdu); err != nil {
			return
		}

		// fc(1) addr(2) qty(2) count(1) values
		req := request{unitID: hdr[6], fc: pdu[0], addr: binary.BigEndian.Uint16(pdu[1:3])}
		qty := int(binary.BigEndian.Uint16(pdu[3:5]))
		for i := 0; i < qty; i++ {
			req.values = append(req.values, binary.BigEndian.Uint16(pdu[6+2*i:]))
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		resp := make([]byte, 0, 12)
		resp = append(resp, hdr[0:4]...)
		resp = binary.BigEndian.AppendUint16(resp, 6)
		resp = append(resp, hdr[6], pdu[0])
		resp = append(resp, pdu[1:5]...)
		if _, err := conn.Write(resp); err != nil {
			return
		}
	}
}

func (s *slave) received() []request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]request(nil), s.requests...)
}

func dial(t *testing.T, s *slave) *EndpointClient {
	t.Helper()

	c, err := NewEndpointClient(Config{Endpoint: s.ln.Addr().String(), Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewEndpointClient: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// ---- tests ----

func TestWriteRegisters_SwitchesUnitPerWrite(t *testing.T) {
	s := newSlave(t)
	c := dial(t, s)

	if err := c.WriteRegisters(areaHoldingRegisters, 1, 100, []uint16{0x1234, 0xABCD}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := c.WriteRegisters(areaHoldingRegisters, 9, 40, []uint16{7}); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got := s.received()
	if len(got) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(got))
	}

	if got[0].unitID != 1 || got[0].fc != 0x10 || got[0].addr != 100 {
		t.Fatalf("first request = %+v", got[0])
	}
	if len(got[0].values) != 2 || got[0].values[0] != 0x1234 || got[0].values[1] != 0xABCD {
		t.Fatalf("first request values = %#v", got[0].values)
	}
	if got[1].unitID != 9 || got[1].addr != 40 || got[1].values[0] != 7 {
		t.Fatalf("second request = %+v", got[1])
	}
}

func TestWriteRegisters_RejectsNonHoldingArea(t *testing.T) {
	s := newSlave(t)
	c := dial(t, s)

	for _, area := range []byte{1, 2, 4} {
		if err := c.WriteRegisters(area, 1, 0, []uint16{1}); err == nil {
			t.Fatalf("area %d: expected error", area)
		}
	}
	if n := len(s.received()); n != 0 {
		t.Fatalf("rejected writes reached the bus: %d requests", n)
	}
}

func TestNewEndpointClient_RequiresEndpoint(t *testing.T) {
	if _, err := NewEndpointClient(Config{}); err == nil {
		t.Fatalf("expected error")
	}
}
