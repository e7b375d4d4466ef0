// internal/poller/rtu/client.go
package rtu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/goburrow/serial"
	"go.uber.org/zap"

	"github.com/tamzrod/jsy-meter/internal/poller"
)

// transportErrorCode is the status error code for bus-level failures.
const transportErrorCode uint16 = 3

// Error wraps a failed round trip on the serial bus.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("rtu %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Code exposes a status code for the device status block.
func (e *Error) Code() uint16 { return transportErrorCode }

// Config is the serial line configuration.
type Config struct {
	Port     string
	BaudRate int
	DataBits int
	Parity   string
	StopBits int
	Timeout  time.Duration
}

// handler is the subset of goburrow's RTU handler the client drives.
type handler interface {
	Encode(pdu *modbus.ProtocolDataUnit) ([]byte, error)
	Decode(adu []byte) (*modbus.ProtocolDataUnit, error)
	Verify(aduRequest, aduResponse []byte) error
	Send(aduRequest []byte) ([]byte, error)
	Close() error
	setSlave(id uint8)
}

// rtuHandler adapts goburrow's handler, whose slave id is a plain field.
type rtuHandler struct {
	*modbus.RTUClientHandler
}

func (h rtuHandler) setSlave(id uint8) { h.SlaveId = id }

// Client implements poller.Transport on a Modbus-RTU serial line.
// The blocking round trip runs on its own goroutine; its outcome is handed
// back through Responses.
type Client struct {
	h   handler
	log *zap.Logger

	responses chan poller.Response
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates an RTU client for the given serial line.
// The port is opened lazily on the first request. The slave address of each
// request is taken from its frame.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.Port == "" {
		return nil, errors.New("rtu client: port required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	h := modbus.NewRTUClientHandler(cfg.Port)
	h.Config = serial.Config{
		Address:  cfg.Port,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
		Timeout:  cfg.Timeout,
	}
	if log.Core().Enabled(zap.DebugLevel) {
		h.Logger = zap.NewStdLog(log.Named("wire"))
	}

	return newClient(rtuHandler{h}, log), nil
}

func newClient(h handler, log *zap.Logger) *Client {
	return &Client{
		h:         h,
		log:       log,
		responses: make(chan poller.Response, 1),
		done:      make(chan struct{}),
	}
}

// Responses delivers one Response per Send.
func (c *Client) Responses() <-chan poller.Response {
	return c.responses
}

// Send starts one request. The caller guarantees a single outstanding request.
func (c *Client) Send(frame []byte) {
	select {
	case <-c.done:
		return
	default:
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		data, err := c.roundTrip(frame)
		resp := poller.Response{Data: data, Err: err}

		select {
		case c.responses <- resp:
		case <-c.done:
		}
	}()
}

// Close stops delivery and releases the serial port.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
		err = c.h.Close()
	})
	return err
}

// roundTrip sends addr|fc|data and returns the register payload.
//
// RTU ADU:
//
//	Addr(1) FC(1) Data(n) CRC(2)
//
// Read-registers response data:
//
//	ByteCount(1) Registers(ByteCount)
func (c *Client) roundTrip(frame []byte) ([]byte, error) {
	if len(frame) < 2 {
		return nil, &Error{Op: "encode", Err: fmt.Errorf("frame too short: %d bytes", len(frame))}
	}

	// the ADU address is the frame's address byte
	c.h.setSlave(frame[0])

	pdu := &modbus.ProtocolDataUnit{
		FunctionCode: frame[1],
		Data:         frame[2:],
	}

	req, err := c.h.Encode(pdu)
	if err != nil {
		return nil, &Error{Op: "encode", Err: err}
	}

	raw, err := c.h.Send(req)
	if err != nil {
		return nil, &Error{Op: "send", Err: err}
	}

	if err := c.h.Verify(req, raw); err != nil {
		return nil, &Error{Op: "verify", Err: err}
	}

	resp, err := c.h.Decode(raw)
	if err != nil {
		return nil, &Error{Op: "decode", Err: err}
	}

	return c.payload(pdu.FunctionCode, resp), nil
}

// payload strips the byte-count octet of a normal reply.
// Exception replies are passed through untouched; the decoder rejects them
// by length.
func (c *Client) payload(fc byte, resp *modbus.ProtocolDataUnit) []byte {
	if resp.FunctionCode != fc {
		if resp.FunctionCode == fc|0x80 && len(resp.Data) > 0 {
			c.log.Debug("modbus exception reply",
				zap.Uint8("function", fc),
				zap.Uint8("code", resp.Data[0]))
		}
		return resp.Data
	}

	if len(resp.Data) < 1 {
		return resp.Data
	}

	byteCount := int(resp.Data[0])
	if len(resp.Data)-1 != byteCount {
		c.log.Debug("byte count mismatch",
			zap.Int("byte_count", byteCount),
			zap.Int("received", len(resp.Data)-1))
	}
	return resp.Data[1:]
}
