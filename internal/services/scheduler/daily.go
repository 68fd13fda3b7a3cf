// Package scheduler runs the recurring daily job.
//
// The loop is a plain Armed→Fired→Armed state machine on an injectable
// Clock; cron is used only to compute next-occurrence instants in the
// configured zone, which keeps the math DST-correct without tying the loop
// to a scheduling library.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"motibot/internal/config"
	logx "motibot/pkg/logx"
)

type State string

const (
	StateIdle  State = "idle"
	StateArmed State = "armed"
	StateFired State = "fired"
)

// Daily invokes a job once per day at a fixed local time in a fixed
// IANA timezone. The first fire is the next occurrence of that wall-clock
// time, regardless of when the process started.
type Daily struct {
	name  string
	sched cron.Schedule
	clock Clock
	log   logx.Logger
	job   func(ctx context.Context) error

	mu    sync.Mutex
	state State
}

type Option func(*Daily)

// WithClock replaces the system clock (tests).
func WithClock(c Clock) Option {
	return func(d *Daily) { d.clock = c }
}

// NewDaily builds the job trigger for local time "HH:MM" in the named zone.
func NewDaily(name, atHHMM, timezone string, job func(ctx context.Context) error, log logx.Logger, opts ...Option) (*Daily, error) {
	hour, minute, err := config.ParseHHMM(atHHMM)
	if err != nil {
		return nil, err
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, fmt.Errorf("timezone %q: %w", timezone, err)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	spec := fmt.Sprintf("CRON_TZ=%s %d %d * * *", timezone, minute, hour)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}

	if log.IsZero() {
		log = logx.Nop()
	}
	d := &Daily{
		name:  name,
		sched: sched,
		clock: SystemClock(),
		log:   log.With(logx.String("job", name)),
		job:   job,
		state: StateIdle,
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// NextFire returns the first fire instant strictly after t.
func (d *Daily) NextFire(t time.Time) time.Time {
	return d.sched.Next(t)
}

func (d *Daily) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Daily) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// waitChunk bounds a single timer sleep. Timers count monotonic time, so a
// host suspend/resume would let one day-long sleep drift past the wall-clock
// target; re-reading the clock every chunk keeps the fire on schedule.
const waitChunk = 5 * time.Minute

// Run loops until ctx is cancelled. A failing or panicking job is logged
// and the loop re-arms for the next day.
func (d *Daily) Run(ctx context.Context) {
	defer d.setState(StateIdle)
	for {
		next := d.NextFire(d.clock.Now())
		d.setState(StateArmed)
		d.log.Info("armed", logx.Time("next", next))

		if !d.waitUntil(ctx, next) {
			return
		}

		d.setState(StateFired)
		d.fire(ctx)
	}
}

// waitUntil sleeps in bounded chunks until the wall clock reaches next.
// Returns false when ctx ended first.
func (d *Daily) waitUntil(ctx context.Context, next time.Time) bool {
	for {
		now := d.clock.Now()
		if !now.Before(next) {
			return true
		}
		wait := next.Sub(now)
		if wait > waitChunk {
			wait = waitChunk
		}
		select {
		case <-ctx.Done():
			return false
		case <-d.clock.After(wait):
		}
	}
}

func (d *Daily) fire(ctx context.Context) {
	start := d.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic in daily job", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()

	if err := d.job(ctx); err != nil {
		d.log.Error("daily job failed", logx.Err(err), logx.Duration("dur", d.clock.Now().Sub(start)))
		return
	}
	d.log.Info("daily job finished", logx.Duration("dur", d.clock.Now().Sub(start)))
}
