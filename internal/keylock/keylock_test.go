package keylock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTryLock_ExclusivePerKey(t *testing.T) {
	m := New()

	unlock, ok := m.TryLock("s1")
	if !ok {
		t.Fatalf("first TryLock should succeed")
	}
	if _, ok := m.TryLock("s1"); ok {
		t.Fatalf("second TryLock on a held key must fail")
	}

	// other keys are independent
	unlock2, ok := m.TryLock("s2")
	if !ok {
		t.Fatalf("TryLock on a different key should succeed")
	}
	unlock2()

	unlock()
	unlock3, ok := m.TryLock("s1")
	if !ok {
		t.Fatalf("TryLock after unlock should succeed")
	}
	unlock3()
}

func TestUnlock_IsIdempotent_AndEntriesAreDropped(t *testing.T) {
	m := New()
	unlock, _ := m.TryLock("k")
	if m.Len() != 1 {
		t.Fatalf("expected 1 entry while held, got %d", m.Len())
	}
	unlock()
	unlock() // second call must not block or panic
	if m.Len() != 0 {
		t.Fatalf("expected entry to be dropped, got %d", m.Len())
	}

	// failed TryLock must not leak an entry either
	u, _ := m.TryLock("k")
	_, _ = m.TryLock("k")
	u()
	if m.Len() != 0 {
		t.Fatalf("expected no entries after contention, got %d", m.Len())
	}
}

func TestLock_WaitsForRelease(t *testing.T) {
	m := New()
	unlock, _ := m.TryLock("k")

	acquired := make(chan struct{})
	go func() {
		u, err := m.Lock(context.Background(), "k")
		if err != nil {
			t.Errorf("Lock: %v", err)
			return
		}
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatalf("Lock must wait while the key is held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatalf("Lock did not acquire after release")
	}
}

func TestLock_ContextCancel(t *testing.T) {
	m := New()
	unlock, _ := m.TryLock("k")
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := m.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("cancelled waiter must release its reference, entries=%d", m.Len())
	}
}

func TestLock_SerializesCriticalSection(t *testing.T) {
	m := New()
	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := m.Lock(context.Background(), "shared")
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				old := atomic.LoadInt32(&maxSeen)
				if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			u()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("critical section entered concurrently: max=%d", maxSeen)
	}
	if m.Len() != 0 {
		t.Fatalf("expected no entries after all releases, got %d", m.Len())
	}
}
