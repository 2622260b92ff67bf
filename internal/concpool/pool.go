// Package concpool wraps an ants.Pool behind a small Submit/Release
// surface, used by cmd/graphwire-bench to drive many overlapping
// Kernel.Encode/Decode calls concurrently (spec §5: "one facade used
// concurrently by many threads").
package concpool

import (
	"time"

	ants "github.com/panjf2000/ants/v2"
)

type poolOption struct {
	preAlloc       bool
	nonBlocking    bool
	expiryDuration time.Duration
	disablePurge   bool
	concealPanic   bool
	panicHandler   func(any)
}

func (opt *poolOption) antsOptions() []ants.Option {
	result := []ants.Option{
		ants.WithPreAlloc(opt.preAlloc),
		ants.WithNonblocking(opt.nonBlocking),
		ants.WithDisablePurge(opt.disablePurge),
	}
	result = append(result, ants.WithPanicHandler(func(v any) {
		if opt.panicHandler != nil {
			opt.panicHandler(v)
			return
		}
		if !opt.concealPanic {
			panic(v)
		}
	}))
	if opt.expiryDuration > 0 {
		result = append(result, ants.WithExpiryDuration(opt.expiryDuration))
	}
	return result
}

// Option configures a Pool.
type Option func(*poolOption)

func defaultPoolOption() *poolOption {
	return &poolOption{}
}

// WithPreAlloc preallocates the pool's worker slice up front.
func WithPreAlloc(v bool) Option {
	return func(opt *poolOption) { opt.preAlloc = v }
}

// WithNonBlocking makes Submit return ants.ErrPoolOverload instead of
// blocking when the pool is saturated.
func WithNonBlocking(v bool) Option {
	return func(opt *poolOption) { opt.nonBlocking = v }
}

// WithDisablePurge disables periodic idle-worker cleanup.
func WithDisablePurge(v bool) Option {
	return func(opt *poolOption) { opt.disablePurge = v }
}

// WithExpiryDuration sets the interval idle workers are purged at.
func WithExpiryDuration(d time.Duration) Option {
	return func(opt *poolOption) { opt.expiryDuration = d }
}

// WithConcealPanic controls whether a panicking task's panic is
// swallowed (true) or repropagated through panicHandler (false, default).
func WithConcealPanic(v bool) Option {
	return func(opt *poolOption) { opt.concealPanic = v }
}

// WithPanicHandler installs a custom handler invoked with the recovered
// panic value, instead of the default repanic/conceal behavior.
func WithPanicHandler(fn func(any)) Option {
	return func(opt *poolOption) { opt.panicHandler = fn }
}

// Pool bounds the number of goroutines concurrently running submitted
// work.
type Pool struct {
	pool *ants.Pool
}

// New builds a Pool with room for size concurrently-running tasks.
func New(size int, opts ...Option) (*Pool, error) {
	opt := defaultPoolOption()
	for _, o := range opts {
		o(opt)
	}
	p, err := ants.NewPool(size, opt.antsOptions()...)
	if err != nil {
		return nil, err
	}
	return &Pool{pool: p}, nil
}

// Submit schedules fn to run on a pool worker. It returns
// ants.ErrPoolOverload if the pool is nonblocking and saturated.
func (p *Pool) Submit(fn func()) error {
	return p.pool.Submit(fn)
}

// Running reports how many workers are currently executing a task.
func (p *Pool) Running() int { return p.pool.Running() }

// Release waits for running tasks to finish and stops the pool.
func (p *Pool) Release() { p.pool.Release() }
