package worker

import (
	"fmt"
	"os"

	"github.com/kpcyrd/brchd/internal/task"
)

// openLocal opens the resolved absolute path for reading, per §4.6 step 2.
func openLocal(lf *task.LocalFile) (*os.File, error) {
	f, err := os.Open(lf.ResolvedPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", lf.ResolvedPath, err)
	}
	return f, nil
}

// statSize stats an already-open file for its current total size.
func statSize(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stating %s: %w", f.Name(), err)
	}
	return info.Size(), nil
}
