package catalog

import (
	"fmt"

	"github.com/gofrs/flock"
)

// AcquireWriteLock takes an advisory lock beside the catalogue file so only one
// map workflow appends to it at a time. Release it with Unlock.
func AcquireWriteLock(catalogPath string) (*flock.Flock, error) {
	lock := flock.New(catalogPath + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire catalogue lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoreLocked, catalogPath)
	}
	return lock, nil
}
