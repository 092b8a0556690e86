// Package rthread implements the render thread (C13): a single worker
// goroutine draining a FIFO of closures enqueued by producer
// goroutines, and the monotonic submission/processed counters that let
// a caller block until a given closure has run.
//
// Command recording mutates driver state that is not safe for
// concurrent use; routing every driver call through one thread is what
// lets the rest of rtcore hand out *cmdbuf.Recorder and similar types
// without their own locking. A producer enqueues a closure with
// AddTask or Present and goes on building the next frame; it only
// blocks if it calls Sync, or if Present's pacing decides the backlog
// has grown too large.
package rthread

import (
	"errors"
	"sync"
)

const prefix = "rthread: "

func newErr(reason string) error { return errors.New(prefix + reason) }

// ErrShutdown is returned by AddTask and Present once the Thread has
// been shut down.
var ErrShutdown = newErr("render thread has been shut down")

// maxPendingSubmissions bounds how many tasks Present lets accumulate
// ahead of the worker before it syncs on its own task, pacing a
// producer that calls Present faster than the worker can drain.
const maxPendingSubmissions = 100

// Thread is a single worker goroutine running a FIFO of closures in
// submission order. The zero Thread is not ready for use; call New.
type Thread struct {
	mu        sync.Mutex
	queueCond *sync.Cond
	procCond  *sync.Cond
	done      chan struct{}

	tasks     []func()
	submitted uint64
	processed uint64
	running   bool
}

// New starts a render thread and returns it ready to accept tasks.
func New() *Thread {
	t := &Thread{running: true, done: make(chan struct{})}
	t.queueCond = sync.NewCond(&t.mu)
	t.procCond = sync.NewCond(&t.mu)
	go t.run()
	return t
}

// run is the worker loop. It keeps draining t.tasks even after
// running is cleared, so a Shutdown call never discards work that was
// already accepted; it only stops once the queue is empty.
func (t *Thread) run() {
	t.mu.Lock()
	for {
		for len(t.tasks) == 0 && t.running {
			t.queueCond.Wait()
		}
		if len(t.tasks) == 0 {
			break
		}
		f := t.tasks[0]
		t.tasks = t.tasks[1:]
		t.mu.Unlock()
		f()
		t.mu.Lock()
		t.processed++
		t.procCond.Broadcast()
	}
	t.mu.Unlock()
	close(t.done)
}

// AddTask enqueues f to run on the render thread and returns its
// submission id, a monotonically increasing counter usable with Sync.
// It returns ErrShutdown without enqueuing f once Shutdown has been
// called.
func (t *Thread) AddTask(f func()) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return 0, ErrShutdown
	}
	t.submitted++
	id := t.submitted
	t.tasks = append(t.tasks, f)
	t.queueCond.Signal()
	return id, nil
}

// Sync blocks until every task submitted up to and including id has
// been processed. Calling Sync with an id greater than any submitted
// task blocks until that many tasks have been submitted and processed.
func (t *Thread) Sync(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.processed < id {
		t.procCond.Wait()
	}
}

// Pending returns the number of tasks submitted but not yet processed.
func (t *Thread) Pending() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.submitted - t.processed
}

// Present submits f like AddTask, then paces the caller: once the gap
// between submitted and processed tasks exceeds maxPendingSubmissions,
// it syncs on f's own submission id before returning, so an unbounded
// backlog never accumulates when a producer calls Present far faster
// than the worker drains it.
func (t *Thread) Present(f func()) error {
	id, err := t.AddTask(f)
	if err != nil {
		return err
	}
	t.mu.Lock()
	gap := t.submitted - t.processed
	t.mu.Unlock()
	if gap > maxPendingSubmissions {
		t.Sync(id)
	}
	return nil
}

// Shutdown signals the worker to stop accepting new work, lets it
// drain every task already submitted, and blocks until it has exited.
// Shutdown is idempotent; AddTask and Present return ErrShutdown for
// any call made after the first Shutdown.
func (t *Thread) Shutdown() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.queueCond.Broadcast()
	t.procCond.Broadcast()
	t.mu.Unlock()
	<-t.done
}

var (
	globalMu sync.Mutex
	global   *Thread
)

// Get returns the process-wide render thread, starting its worker on
// first call. Every later call until ShutdownGlobal returns the same
// Thread.
func Get() *Thread {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New()
	}
	return global
}

// ShutdownGlobal shuts down the process-wide render thread started by
// Get, if one is running, and clears it so a later Get starts a fresh
// one. It is ordinarily called once, at process exit.
func ShutdownGlobal() {
	globalMu.Lock()
	g := global
	global = nil
	globalMu.Unlock()
	if g != nil {
		g.Shutdown()
	}
}
