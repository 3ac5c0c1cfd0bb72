// Package enumerate implements the source enumerators (C5): a depth-first
// local directory walker and a breadth-first HTTP directory spider. Both
// hand tasks to a push callback instead of returning a slice, so a caller
// can stream directly into the scheduler or the IPC client without
// buffering an entire tree in memory.
package enumerate

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kpcyrd/brchd/internal/task"
)

// WalkLocal descends root depth-first, pushing a LocalFile task for every
// regular file and every symlink that resolves to one. The display path
// keeps the walked (pre-resolution) form; the resolved path is the
// absolute, symlink-followed path actually opened by the worker. Any I/O
// error aborts the walk, per §4.4.
func WalkLocal(root string, push func(task.Task) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}

		switch {
		case d.Type().IsRegular():
			return pushRegular(path, d, push)
		case d.Type()&fs.ModeSymlink != 0:
			return pushSymlink(path, push)
		default:
			return nil // directories, sockets, devices, etc: not uploadable
		}
	})
}

func pushRegular(path string, d fs.DirEntry, push func(task.Task) error) error {
	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("stating %s: %w", path, err)
	}
	resolved, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	return push(task.NewLocalFile(path, resolved, info.Size()))
}

func pushSymlink(path string, push func(task.Task) error) error {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return fmt.Errorf("resolving symlink %s: %w", path, err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("stating symlink target %s: %w", target, err)
	}
	if !info.Mode().IsRegular() {
		return nil // symlink to a directory or special file: not uploadable
	}

	resolved, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", target, err)
	}
	return push(task.NewLocalFile(path, resolved, info.Size()))
}
