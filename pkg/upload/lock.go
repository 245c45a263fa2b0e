package upload

import (
	"github.com/mcav91/partfs/internal/logger"
	"github.com/mcav91/partfs/pkg/locking"
)

// lockCoordinator applies the write-lifecycle locking discipline on top of a
// locking.Manager:
//
//	none -> shared (request entry)
//	shared -> exclusive (commit window only)
//	exclusive -> shared (before observers are notified)
//	shared -> released (request end)
//
// Escalation failures are real errors (another writer owns the path), but
// downgrade and release after a successful commit are best effort: losing
// the lock at that point cannot un-commit the write, so the failure is
// logged and swallowed rather than surfaced to the client.
type lockCoordinator struct {
	locks locking.Manager
}

// acquireShared takes the request-scoped shared lock.
func (c *lockCoordinator) acquireShared(path string) error {
	return c.locks.Acquire(path, locking.ModeShared)
}

// escalate upgrades to the exclusive commit window. A conflicting holder
// surfaces locking.ErrLocked, which classifies as the retryable KindLocked.
func (c *lockCoordinator) escalate(path string) error {
	return c.locks.Escalate(path, locking.ModeShared, locking.ModeExclusive)
}

// downgrade closes the exclusive window, best effort.
func (c *lockCoordinator) downgrade(path string) {
	if err := c.locks.Escalate(path, locking.ModeExclusive, locking.ModeShared); err != nil {
		logger.Warn("failed to downgrade lock on %s: %v", path, err)
	}
}

// releaseShared drops the request-scoped shared lock, best effort.
func (c *lockCoordinator) releaseShared(path string) {
	if err := c.locks.Release(path, locking.ModeShared); err != nil {
		logger.Warn("failed to release lock on %s: %v", path, err)
	}
}

// releaseExclusive unwinds a held exclusive lock on a failure path, best
// effort.
func (c *lockCoordinator) releaseExclusive(path string) {
	if err := c.locks.Release(path, locking.ModeExclusive); err != nil {
		logger.Warn("failed to release exclusive lock on %s: %v", path, err)
	}
}
