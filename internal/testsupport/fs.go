package testsupport

import (
	"io/fs"
	"os"
	"sync"

	"github.com/spf13/afero"
)

// DenyFs wraps an afero.Fs and fails Open for selected paths with a
// permission error, simulating files that became unreadable after they were
// catalogued. Stat still succeeds so the file looks present.
type DenyFs struct {
	afero.Fs

	mu     sync.Mutex
	denied map[string]bool
	opens  map[string]int
}

// NewDenyFs wraps base, denying the given paths.
func NewDenyFs(base afero.Fs, paths ...string) *DenyFs {
	d := &DenyFs{Fs: base, denied: make(map[string]bool), opens: make(map[string]int)}
	for _, p := range paths {
		d.denied[p] = true
	}
	return d
}

// Deny adds a path to the denied set.
func (d *DenyFs) Deny(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.denied[path] = true
}

// Opens returns how many times path was opened, denied or not.
func (d *DenyFs) Opens(path string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens[path]
}

func (d *DenyFs) check(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens[name]++
	if d.denied[name] {
		return &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return nil
}

// Open implements afero.Fs.
func (d *DenyFs) Open(name string) (afero.File, error) {
	if err := d.check(name); err != nil {
		return nil, err
	}
	return d.Fs.Open(name)
}

// OpenFile implements afero.Fs.
func (d *DenyFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if err := d.check(name); err != nil {
		return nil, err
	}
	return d.Fs.OpenFile(name, flag, perm)
}
