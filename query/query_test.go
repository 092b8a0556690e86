package query

import (
	"testing"

	"github.com/rtcore/rtcore/driver"
	"github.com/rtcore/rtcore/internal/faketest"
)

func TestRequestAllocatesFirstBatchLazily(t *testing.T) {
	p := NewPool(faketest.NewGPU())
	if len(p.batches[driver.QOcclusion]) != 0 {
		t.Fatal("NewPool: have a pre-allocated batch, want none")
	}
	q, err := p.Request(driver.QOcclusion)
	if err != nil {
		t.Fatalf("Request: have %v, want nil", err)
	}
	if len(p.batches[driver.QOcclusion]) != 1 {
		t.Fatalf("Request: have %d batches, want 1", len(p.batches[driver.QOcclusion]))
	}
	if q.Index() != 0 {
		t.Fatalf("Request: have index %d, want 0", q.Index())
	}
}

func TestRequestReusesReleasedSlotBeforeGrowingBatch(t *testing.T) {
	p := NewPool(faketest.NewGPU())
	q1, _ := p.Request(driver.QTimestamp)
	if err := p.Release(q1); err != nil {
		t.Fatalf("Release: have %v, want nil", err)
	}
	q2, err := p.Request(driver.QTimestamp)
	if err != nil {
		t.Fatalf("Request: have %v, want nil", err)
	}
	if len(p.batches[driver.QTimestamp]) != 1 {
		t.Fatalf("Request: have %d batches, want 1 (slot reused)", len(p.batches[driver.QTimestamp]))
	}
	if q2.Index() != q1.Index() {
		t.Fatalf("Request: have index %d, want reused index %d", q2.Index(), q1.Index())
	}
}

func TestRequestGrowsNewBatchWhenFull(t *testing.T) {
	p := NewPool(faketest.NewGPU())
	for i := 0; i < batchSize; i++ {
		if _, err := p.Request(driver.QOcclusion); err != nil {
			t.Fatalf("Request #%d: have %v, want nil", i, err)
		}
	}
	if len(p.batches[driver.QOcclusion]) != 1 {
		t.Fatalf("Request: have %d batches after filling one, want 1", len(p.batches[driver.QOcclusion]))
	}
	q, err := p.Request(driver.QOcclusion)
	if err != nil {
		t.Fatalf("Request: have %v, want nil", err)
	}
	if len(p.batches[driver.QOcclusion]) != 2 {
		t.Fatalf("Request: have %d batches, want 2 (new batch grown)", len(p.batches[driver.QOcclusion]))
	}
	if q.Index() != 0 {
		t.Fatalf("Request: have index %d, want 0 (first slot of new batch)", q.Index())
	}
}

func TestReleaseRejectsForeignQuery(t *testing.T) {
	p1 := NewPool(faketest.NewGPU())
	p2 := NewPool(faketest.NewGPU())
	q, _ := p1.Request(driver.QOcclusion)
	if err := p2.Release(q); err != ErrNotOwned {
		t.Fatalf("Release: have %v, want %v", err, ErrNotOwned)
	}
}

func TestResultReadsBackWrittenValue(t *testing.T) {
	gpu := faketest.NewGPU()
	p := NewPool(gpu)
	q, _ := p.Request(driver.QOcclusion)
	if err := q.Reset(); err != nil {
		t.Fatalf("Reset: have %v, want nil", err)
	}

	cb, _ := gpu.NewCmdBuffer()
	qcb := cb.(driver.QueryCmdBuffer)
	cb.Begin()
	qcb.BeginQuery(q.NativePool(), q.Index())
	qcb.EndQuery(q.NativePool(), q.Index())
	cb.End()

	ch := make(chan *driver.WorkItem, 1)
	if err := gpu.Commit(&driver.WorkItem{Work: []driver.CmdBuffer{cb}}, ch); err != nil {
		t.Fatalf("Commit: have %v, want nil", err)
	}
	<-ch

	got, err := q.Result()
	if err != nil {
		t.Fatalf("Result: have %v, want nil", err)
	}
	if got == 0 {
		t.Fatal("Result: have 0, want a value written by BeginQuery")
	}
}
