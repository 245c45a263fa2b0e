package locking

import (
	"errors"
	"sync"
	"testing"
)

func TestAcquireShared_AllowsMultipleHolders(t *testing.T) {
	m := NewMemoryLockManager()

	if err := m.Acquire("/docs/a.txt", ModeShared); err != nil {
		t.Fatalf("first shared acquire failed: %v", err)
	}
	if err := m.Acquire("/docs/a.txt", ModeShared); err != nil {
		t.Fatalf("second shared acquire failed: %v", err)
	}

	if err := m.Release("/docs/a.txt", ModeShared); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := m.Release("/docs/a.txt", ModeShared); err != nil {
		t.Fatalf("release failed: %v", err)
	}
}

func TestEscalate_FailsWithOtherSharedHolders(t *testing.T) {
	m := NewMemoryLockManager()

	if err := m.Acquire("/f", ModeShared); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := m.Acquire("/f", ModeShared); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	err := m.Escalate("/f", ModeShared, ModeExclusive)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked with two shared holders, got %v", err)
	}

	// After the other holder leaves, escalation succeeds.
	if err := m.Release("/f", ModeShared); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := m.Escalate("/f", ModeShared, ModeExclusive); err != nil {
		t.Fatalf("escalate after release failed: %v", err)
	}
}

func TestExclusive_BlocksNewShared(t *testing.T) {
	m := NewMemoryLockManager()

	if err := m.Acquire("/f", ModeShared); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := m.Escalate("/f", ModeShared, ModeExclusive); err != nil {
		t.Fatalf("escalate failed: %v", err)
	}

	if err := m.Acquire("/f", ModeShared); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked during exclusive window, got %v", err)
	}

	// Downgrade reopens the path for readers.
	if err := m.Escalate("/f", ModeExclusive, ModeShared); err != nil {
		t.Fatalf("downgrade failed: %v", err)
	}
	if err := m.Acquire("/f", ModeShared); err != nil {
		t.Fatalf("shared acquire after downgrade failed: %v", err)
	}
}

func TestRelease_RemovesStateWhenFree(t *testing.T) {
	m := NewMemoryLockManager()

	if err := m.Acquire("/f", ModeShared); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := m.Release("/f", ModeShared); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	if len(m.locks) != 0 {
		t.Errorf("expected empty lock table, got %d entries", len(m.locks))
	}

	if err := m.Release("/f", ModeShared); !errors.Is(err, ErrNotLocked) {
		t.Errorf("expected ErrNotLocked for double release, got %v", err)
	}
}

func TestEscalate_OnlyOneWinnerUnderContention(t *testing.T) {
	m := NewMemoryLockManager()

	const writers = 8
	for i := 0; i < writers; i++ {
		if err := m.Acquire("/contended", ModeShared); err != nil {
			t.Fatalf("acquire failed: %v", err)
		}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Escalate("/contended", ModeShared, ModeExclusive); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// With all shared holders still present, nobody can win; with
	// sequential departures, at most one exclusive holder can exist.
	if winners > 1 {
		t.Fatalf("expected at most one successful escalation, got %d", winners)
	}
}
