// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// DefaultLoopInterval is how often a deferred poll is re-checked.
const DefaultLoopInterval = 50 * time.Millisecond

// Runner is the single execution context of one meter.
// Update, Loop and response handling all happen on the Run goroutine,
// so the Scheduler never sees concurrent calls.
type Runner struct {
	sched    *Scheduler
	tr       Transport
	interval time.Duration
	loop     time.Duration
}

// NewRunner wires a scheduler to its transport.
func NewRunner(sched *Scheduler, tr Transport, loop time.Duration) *Runner {
	if loop <= 0 {
		loop = DefaultLoopInterval
	}
	return &Runner{
		sched:    sched,
		tr:       tr,
		interval: sched.cfg.Interval,
		loop:     loop,
	}
}

// Scheduler exposes the underlying scheduler.
func (r *Runner) Scheduler() *Scheduler { return r.sched }

// Run polls until ctx is cancelled and emits one PollResult per completed
// exchange. out may be nil when nobody consumes results.
func (r *Runner) Run(ctx context.Context, out chan<- PollResult) {
	poll := time.NewTicker(r.interval)
	defer poll.Stop()

	loop := time.NewTicker(r.loop)
	defer loop.Stop()

	responses := r.tr.Responses()

	// first poll right away instead of one interval in
	r.sched.Update()

	for {
		select {
		case <-ctx.Done():
			return

		case <-poll.C:
			r.sched.Update()

		case <-loop.C:
			r.sched.Loop()

		case resp := <-responses:
			var (
				res PollResult
				ok  bool
			)
			if resp.Err != nil {
				res, ok = r.sched.OnFailure(resp.Err)
			} else {
				res, ok = r.sched.OnData(resp.Data)
			}
			if !ok || out == nil {
				continue
			}

			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}
