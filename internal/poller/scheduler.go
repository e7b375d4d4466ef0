// internal/poller/scheduler.go
package poller

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/jsy-meter/internal/meter"
)

// Config is the minimal runtime config the scheduler needs.
type Config struct {
	Device   string
	Address  uint8
	Interval time.Duration
}

// Scheduler owns the single outstanding request on the bus.
//
// States: Idle (sentAt == 0) -> Awaiting (sentAt set) -> Idle on any response
// or transport failure. It is not safe for concurrent use; Runner drives it
// from one goroutine.
type Scheduler struct {
	cfg   Config
	frame meter.Frame
	tr    Transport
	clock Clock
	sinks meter.Sinks
	log   *zap.Logger

	sentAt   int64 // ms of the outstanding request, 0 when idle
	lastSend int64 // ms of the previous dispatch attempt
	retry    bool  // an update was deferred by an outstanding request
}

// NewScheduler creates a scheduler with an immutable request frame.
func NewScheduler(cfg Config, tr Transport, clock Clock, sinks meter.Sinks, log *zap.Logger) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if tr == nil {
		return nil, errors.New("poller: transport required")
	}
	if clock == nil {
		clock = NewClock()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Scheduler{
		cfg:   cfg,
		frame: meter.NewFrame(cfg.Address),
		tr:    tr,
		clock: clock,
		sinks: sinks,
		log:   log,
	}, nil
}

// Update is the periodic poll entry point.
// It sends at most one request and never while one is outstanding.
func (s *Scheduler) Update() {
	now := s.clock.Now()
	if s.lastSend != 0 && now-s.lastSend < s.halfInterval() {
		return
	}

	if s.Awaiting() {
		s.retry = true
		s.log.Debug("request outstanding, deferring poll",
			zap.Int64("waiting_ms", now-s.sentAt))
		return
	}

	s.retry = false
	s.tr.Send(s.frame.Bytes())

	// 0 is reserved for "idle".
	if now == 0 {
		now = 1
	}
	s.sentAt = now
	s.lastSend = now
}

// Loop runs more often than Update and only re-attempts a deferred poll.
func (s *Scheduler) Loop() {
	if !s.retry {
		return
	}
	s.Update()
}

// OnData handles a response buffer from the transport.
// Buffers arriving while idle are unsolicited and dropped.
func (s *Scheduler) OnData(data []byte) (PollResult, bool) {
	if !s.Awaiting() {
		s.log.Debug("dropping unsolicited response", zap.Int("bytes", len(data)))
		return PollResult{}, false
	}
	s.sentAt = 0

	res := PollResult{Device: s.cfg.Device, At: time.Now()}

	r, err := meter.Decode(data)
	if err != nil {
		s.log.Warn("rejected response",
			zap.Int("bytes", len(data)),
			zap.Int("expected", meter.ResponseSize),
			zap.Error(err))
		res.Err = err
		return res, true
	}

	s.sinks.Publish(r)

	res.Reading = r
	res.Registers = r.Registers
	return res, true
}

// OnFailure handles a transport failure (timeout, CRC, serial error) for the
// outstanding request and returns the scheduler to idle.
func (s *Scheduler) OnFailure(err error) (PollResult, bool) {
	if !s.Awaiting() {
		return PollResult{}, false
	}
	s.sentAt = 0

	s.log.Warn("no valid response from meter",
		zap.Uint8("address", s.frame.Address()),
		zap.Error(err))

	return PollResult{Device: s.cfg.Device, At: time.Now(), Err: err}, true
}

// Awaiting reports whether a request is outstanding.
func (s *Scheduler) Awaiting() bool { return s.sentAt != 0 }

// RetryPending reports whether a poll was deferred.
func (s *Scheduler) RetryPending() bool { return s.retry }

func (s *Scheduler) halfInterval() int64 {
	return s.cfg.Interval.Milliseconds() / 2
}
