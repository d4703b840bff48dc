package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"dupmap/internal/catalog"
)

// Access is a unix.Access permission mask.
type Access uint32

const (
	// AccessRead requires listing and traversing a directory.
	AccessRead Access = unix.R_OK | unix.X_OK
	// AccessReadWrite additionally requires creating entries in it.
	AccessReadWrite Access = unix.R_OK | unix.W_OK | unix.X_OK
)

// CheckDirectoryAccess verifies that the directory exists and grants mode.
func CheckDirectoryAccess(name, path string, mode Access) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, uint32(mode)); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	if mode&unix.W_OK != 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckCatalogue verifies that path is a catalogue this version can read.
func CheckCatalogue(ctx context.Context, path string) Result {
	const name = "Catalogue"

	opts := catalog.DefaultOptions()
	opts.ReadOnly = true
	store, err := catalog.Open(ctx, path, opts)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (schema v%d)", path, store.Version())}
}
