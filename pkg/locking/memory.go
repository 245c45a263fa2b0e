package locking

import (
	"fmt"
	"sync"
)

// MemoryLockManager implements Manager with in-process state.
//
// Lock state is a per-path holder count. Entries are removed as soon as the
// last holder releases, so the map stays proportional to in-flight requests.
type MemoryLockManager struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	shared    int
	exclusive bool
}

// NewMemoryLockManager creates an empty lock manager.
func NewMemoryLockManager() *MemoryLockManager {
	return &MemoryLockManager{locks: make(map[string]*pathLock)}
}

// Acquire takes a lock on path in the given mode.
func (m *MemoryLockManager) Acquire(path string, mode Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock := m.locks[path]
	if lock == nil {
		lock = &pathLock{}
		m.locks[path] = lock
	}

	switch mode {
	case ModeShared:
		if lock.exclusive {
			return fmt.Errorf("acquire shared on %s: %w", path, ErrLocked)
		}
		lock.shared++
	case ModeExclusive:
		if lock.exclusive || lock.shared > 0 {
			return fmt.Errorf("acquire exclusive on %s: %w", path, ErrLocked)
		}
		lock.exclusive = true
	default:
		return fmt.Errorf("acquire on %s: unknown mode %d", path, mode)
	}

	return nil
}

// Escalate transitions a held lock between modes.
//
// shared -> exclusive succeeds only when the caller is the sole shared
// holder; otherwise ErrLocked. exclusive -> shared (the downgrade after a
// commit) always succeeds.
func (m *MemoryLockManager) Escalate(path string, from, to Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock := m.locks[path]
	if lock == nil {
		return fmt.Errorf("escalate on %s: %w", path, ErrNotLocked)
	}

	switch {
	case from == ModeShared && to == ModeExclusive:
		if lock.shared == 0 {
			return fmt.Errorf("escalate on %s: %w", path, ErrNotLocked)
		}
		if lock.exclusive || lock.shared > 1 {
			return fmt.Errorf("escalate on %s: %w", path, ErrLocked)
		}
		lock.shared = 0
		lock.exclusive = true
	case from == ModeExclusive && to == ModeShared:
		if !lock.exclusive {
			return fmt.Errorf("downgrade on %s: %w", path, ErrNotLocked)
		}
		lock.exclusive = false
		lock.shared = 1
	case from == to:
		// No-op transition.
	default:
		return fmt.Errorf("escalate on %s: unsupported transition %s -> %s", path, from, to)
	}

	return nil
}

// Release drops a held lock in the given mode.
func (m *MemoryLockManager) Release(path string, mode Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock := m.locks[path]
	if lock == nil {
		return fmt.Errorf("release on %s: %w", path, ErrNotLocked)
	}

	switch mode {
	case ModeShared:
		if lock.shared == 0 {
			return fmt.Errorf("release shared on %s: %w", path, ErrNotLocked)
		}
		lock.shared--
	case ModeExclusive:
		if !lock.exclusive {
			return fmt.Errorf("release exclusive on %s: %w", path, ErrNotLocked)
		}
		lock.exclusive = false
	default:
		return fmt.Errorf("release on %s: unknown mode %d", path, mode)
	}

	if lock.shared == 0 && !lock.exclusive {
		delete(m.locks, path)
	}

	return nil
}
