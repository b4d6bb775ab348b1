// Package scheduler runs a job on a wall-clock schedule without overlapping runs.
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrAlreadyRunning = errors.New("scheduler: run already in progress")
	ErrLockHeld       = errors.New("scheduler: lock held by another instance")
)

type Job func(ctx context.Context) error

type Schedule interface {
	Next(after time.Time) time.Time
}

// DailySchedule fires once a day at Hour:Minute in Location.
type DailySchedule struct {
	Hour     int
	Minute   int
	Location *time.Location
}

func (d DailySchedule) Next(after time.Time) time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	t := after.In(loc)
	next := time.Date(t.Year(), t.Month(), t.Day(), d.Hour, d.Minute, 0, 0, loc)
	if !next.After(t) {
		next = time.Date(t.Year(), t.Month(), t.Day()+1, d.Hour, d.Minute, 0, 0, loc)
	}
	return next
}

// Locker guards a run across processes. redis.Client satisfies it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error)
}

type Runner struct {
	name     string
	schedule Schedule
	job      Job
	locker   Locker
	lockTTL  time.Duration
	logger   *zap.Logger
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
	running  atomic.Bool
}

type Option func(*Runner)

func WithLocker(locker Locker, ttl time.Duration) Option {
	return func(r *Runner) {
		r.locker = locker
		r.lockTTL = ttl
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTimer replaces the clock and the wait primitive.
func WithTimer(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
		if after != nil {
			r.after = after
		}
	}
}

func New(name string, schedule Schedule, job Job, opts ...Option) *Runner {
	r := &Runner{
		name:     name,
		schedule: schedule,
		job:      job,
		lockTTL:  30 * time.Minute,
		logger:   zap.NewNop(),
		now:      time.Now,
		after:    time.After,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("job", name))
	return r
}

// Running reports whether a run is in flight in this process.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// RunOnce executes the job now. It returns ErrAlreadyRunning instead of starting a second concurrent run.
func (r *Runner) RunOnce(ctx context.Context) error {
	return r.Do(ctx, r.job)
}

// Do runs job under the same guard and lock as scheduled runs, so a manual trigger
// never overlaps a tick.
func (r *Runner) Do(ctx context.Context, job Job) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.running.Store(false)

	if r.locker != nil {
		release, ok, err := r.locker.TryLock(ctx, r.name, r.lockTTL)
		if err != nil {
			return err
		}
		if !ok {
			return ErrLockHeld
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				r.logger.Warn("release lock failed", zap.Error(err))
			}
		}()
	}

	start := r.now()
	err := job(ctx)
	fields := []zap.Field{zap.Duration("elapsed", r.now().Sub(start))}
	if err != nil {
		r.logger.Error("job failed", append(fields, zap.Error(err))...)
		return err
	}
	r.logger.Info("job finished", fields...)
	return nil
}

// Start blocks, firing the job at each scheduled time until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	for {
		next := r.schedule.Next(r.now())
		wait := next.Sub(r.now())
		if wait < 0 {
			wait = 0
		}
		r.logger.Debug("next run scheduled", zap.Time("at", next))

		select {
		case <-ctx.Done():
			return
		case <-r.after(wait):
		}

		switch err := r.RunOnce(ctx); {
		case errors.Is(err, ErrAlreadyRunning), errors.Is(err, ErrLockHeld):
			r.logger.Info("tick skipped", zap.Error(err))
		case err != nil && ctx.Err() != nil:
			return
		}
	}
}
