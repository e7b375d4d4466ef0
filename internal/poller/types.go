// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/jsy-meter/internal/meter"
)

// Transport abstracts the bus. Send is fire-and-forget; the outcome of the
// request arrives later on the Responses channel.
type Transport interface {
	Send(frame []byte)
	Responses() <-chan Response
}

// Response is what the transport delivers for one request.
// Exactly one of Data / Err is meaningful.
type Response struct {
	Data []byte // register payload as returned by the bus
	Err  error  // transport failure: timeout, CRC, serial error
}

// Clock returns monotonic milliseconds.
type Clock interface {
	Now() int64
}

// PollResult is the outcome of one request/response exchange.
type PollResult struct {
	Device string
	At     time.Time

	// Registers holds the 68 raw registers of a valid response.
	Registers []uint16

	Reading *meter.Reading
	Err     error // non-nil means the exchange failed or was rejected
}

type monotonicClock struct {
	start time.Time
}

// NewClock returns a Clock counting milliseconds since its creation.
func NewClock() Clock {
	return monotonicClock{start: time.Now()}
}

func (c monotonicClock) Now() int64 {
	return time.Since(c.start).Milliseconds()
}
