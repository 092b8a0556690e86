package rthread

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestAddTaskRunsInOrder(t *testing.T) {
	th := New()
	defer th.Shutdown()

	var order []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		id, err := th.AddTask(func() {
			order = append(order, i)
			if i == 4 {
				close(done)
			}
		})
		if err != nil {
			t.Fatalf("AddTask #%d: have %v, want nil", i, err)
		}
		if id != uint64(i+1) {
			t.Fatalf("AddTask #%d: have id %d, want %d", i, id, i+1)
		}
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AddTask: tasks did not complete within 1s")
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("AddTask: have order %v, want 0..4 in order", order)
		}
	}
}

func TestSyncBlocksUntilProcessed(t *testing.T) {
	th := New()
	defer th.Shutdown()

	var n int32
	var id uint64
	for i := 0; i < 10; i++ {
		var err error
		id, err = th.AddTask(func() { atomic.AddInt32(&n, 1) })
		if err != nil {
			t.Fatalf("AddTask: have %v, want nil", err)
		}
	}
	th.Sync(id)
	if got := atomic.LoadInt32(&n); got != 10 {
		t.Fatalf("Sync: have %d tasks processed, want 10", got)
	}
}

func TestShutdownDrainsPendingTasks(t *testing.T) {
	th := New()
	var n int32
	for i := 0; i < 20; i++ {
		if _, err := th.AddTask(func() { atomic.AddInt32(&n, 1) }); err != nil {
			t.Fatalf("AddTask: have %v, want nil", err)
		}
	}
	th.Shutdown()
	if got := atomic.LoadInt32(&n); got != 20 {
		t.Fatalf("Shutdown: have %d tasks processed, want 20 (all drained)", got)
	}
}

func TestAddTaskAfterShutdownFails(t *testing.T) {
	th := New()
	th.Shutdown()
	if _, err := th.AddTask(func() {}); err != ErrShutdown {
		t.Fatalf("AddTask after Shutdown: have %v, want %v", err, ErrShutdown)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	th := New()
	th.Shutdown()
	th.Shutdown()
}

func TestPresentPacesOnBacklog(t *testing.T) {
	th := New()
	defer th.Shutdown()

	// Hold the worker on a single task briefly so the producer loop
	// below can build up a backlog past maxPendingSubmissions; release
	// it on a timer so a Present call that decides to pace never
	// blocks forever.
	block := make(chan struct{})
	if _, err := th.AddTask(func() { <-block }); err != nil {
		t.Fatalf("AddTask: have %v, want nil", err)
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(block)
	}()

	for i := 0; i < maxPendingSubmissions+5; i++ {
		if err := th.Present(func() {}); err != nil {
			t.Fatalf("Present: have %v, want nil", err)
		}
	}

	last, err := th.AddTask(func() {})
	if err != nil {
		t.Fatalf("AddTask: have %v, want nil", err)
	}
	th.Sync(last)
	if p := th.Pending(); p != 0 {
		t.Fatalf("Present: have %d tasks pending after drain, want 0", p)
	}
}

func TestGetReturnsSameThreadUntilShutdownGlobal(t *testing.T) {
	a := Get()
	b := Get()
	if a != b {
		t.Fatal("Get: have distinct Thread values, want the same process-wide instance")
	}
	ShutdownGlobal()
	c := Get()
	if c == a {
		t.Fatal("Get: have the pre-shutdown Thread reused, want a fresh one")
	}
	ShutdownGlobal()
}
