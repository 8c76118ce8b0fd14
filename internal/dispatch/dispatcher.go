package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	pkgLog "gpt-relay-bot/pkg/log"
)

const DefaultMaxWorkers = 16

var ErrClosed = errors.New("dispatcher is closed")

// Task is one unit of work submitted under a key.
type Task func(ctx context.Context)

type lane struct {
	queue []queued
}

type queued struct {
	ctx  context.Context
	task Task
}

// Dispatcher runs tasks on a bounded worker pool. Tasks sharing a key run one
// at a time in submission order; tasks with different keys run concurrently.
type Dispatcher struct {
	l    pkgLog.Logger
	pool *pool.Pool

	mu     sync.Mutex
	lanes  map[int64]*lane
	closed bool
}

// New creates a dispatcher with at most maxWorkers tasks running at once.
func New(l pkgLog.Logger, maxWorkers int) *Dispatcher {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	return &Dispatcher{
		l:     l,
		pool:  pool.New().WithMaxGoroutines(maxWorkers),
		lanes: make(map[int64]*lane),
	}
}

// Submit queues task on the lane for key. If the key has no active lane a
// worker is claimed for it, blocking while the pool is saturated.
func (d *Dispatcher) Submit(ctx context.Context, key int64, task Task) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}

	if ln, ok := d.lanes[key]; ok {
		ln.queue = append(ln.queue, queued{ctx: ctx, task: task})
		d.mu.Unlock()
		return nil
	}

	ln := &lane{queue: []queued{{ctx: ctx, task: task}}}
	d.lanes[key] = ln
	d.mu.Unlock()

	d.pool.Go(func() { d.drain(key, ln) })
	return nil
}

// Pending returns the number of keys with queued or running work.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lanes)
}

// Wait stops accepting tasks and blocks until every queued task has run.
func (d *Dispatcher) Wait() {
	d.close()
	d.pool.Wait()
}

// Shutdown stops accepting tasks and waits for queued tasks until ctx is done.
// On timeout it returns ctx.Err() and leaves the remaining tasks running.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.close()

	done := make(chan struct{})
	go func() {
		d.pool.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.mu.Lock()
		pending := len(d.lanes)
		d.mu.Unlock()
		d.l.Warnf(ctx, "internal.dispatch.Shutdown: %d lanes still busy: %v", pending, ctx.Err())
		return ctx.Err()
	}
}

func (d *Dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

func (d *Dispatcher) drain(key int64, ln *lane) {
	for {
		d.mu.Lock()
		if len(ln.queue) == 0 {
			delete(d.lanes, key)
			d.mu.Unlock()
			return
		}
		next := ln.queue[0]
		ln.queue[0] = queued{}
		ln.queue = ln.queue[1:]
		d.mu.Unlock()

		d.run(key, next)
	}
}

func (d *Dispatcher) run(key int64, q queued) {
	var pc panics.Catcher
	pc.Try(func() { q.task(q.ctx) })
	if r := pc.Recovered(); r != nil {
		d.l.Errorf(q.ctx, "internal.dispatch.run: task for key %d panicked: %v", key, r.Value)
	}
}
