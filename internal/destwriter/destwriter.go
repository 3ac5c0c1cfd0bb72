// Package destwriter implements the collision-safe atomic destination
// writer (C3): render a path via the template resolver, write through a
// hidden ".name.part" sibling, then rename onto the final name.
package destwriter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kpcyrd/brchd/internal/brchderr"
	"github.com/kpcyrd/brchd/internal/pathtemplate"
)

// MaxDestOpenAttempts bounds the number of re-render-and-retry loops on a
// non-deterministic template before giving up with ErrOutOfNames.
const MaxDestOpenAttempts = 12

// Handle is an open destination: the final path and its reserved partial
// file, ready to receive bytes.
type Handle struct {
	destPath string
	tempPath string
	f        *os.File
}

// partialPath computes the ".<basename>.part" sibling of path.
func partialPath(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	return filepath.Join(dir, "."+base+".part")
}

// hasTraversal reports whether any path component is "..", rejecting both
// the source's leading-"../"-only sanitization and any interior "..": the
// safer redesign noted by the spec's open question.
func hasTraversal(relPath string) bool {
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// Open renders ctx against root and opens an exclusively-created destination
// file plus its partial sibling, retrying on collision per §4.3. The
// returned Handle's Save method streams the body and performs the final
// rename.
func Open(root string, ctx pathtemplate.Context) (*Handle, error) {
	for attempt := 0; attempt < MaxDestOpenAttempts; attempt++ {
		relPath, deterministic, err := ctx.Resolve()
		if err != nil {
			return nil, fmt.Errorf("rendering destination path: %w", err)
		}
		if hasTraversal(relPath) {
			return nil, fmt.Errorf("rendered path %q: %w", relPath, brchderr.ErrPathTraversal)
		}

		destPath := filepath.Join(root, filepath.FromSlash(relPath))
		tempPath := partialPath(destPath)

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating destination directory: %w", err)
		}

		reserved, err := os.OpenFile(destPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			if os.IsExist(err) {
				if deterministic {
					return nil, fmt.Errorf("%s: %w", destPath, brchderr.ErrAlreadyExists)
				}
				continue // re-render with a fresh %r token
			}
			return nil, fmt.Errorf("reserving %s: %w", destPath, err)
		}
		reserved.Close() // the name is now reserved; we write through the partial file

		f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			os.Remove(destPath)
			return nil, fmt.Errorf("creating partial file %s: %w", tempPath, err)
		}

		return &Handle{destPath: destPath, tempPath: tempPath, f: f}, nil
	}

	return nil, brchderr.ErrOutOfNames
}

// Save streams r into the partial file and, on success, renames it onto the
// final destination path. On any failure it unlinks both the partial file
// and the reserved destination name so nothing leaks into the destination
// tree (the fix for the spec's §9 "leaked .part files" open question, which
// the source does not implement).
func (h *Handle) Save(r io.Reader) error {
	if _, err := io.Copy(h.f, r); err != nil {
		h.abort()
		return fmt.Errorf("writing %s: %w", h.tempPath, err)
	}
	if err := h.f.Sync(); err != nil {
		h.abort()
		return fmt.Errorf("syncing %s: %w", h.tempPath, err)
	}
	if err := h.f.Close(); err != nil {
		h.abort()
		return fmt.Errorf("closing %s: %w", h.tempPath, err)
	}
	if err := os.Rename(h.tempPath, h.destPath); err != nil {
		os.Remove(h.tempPath)
		os.Remove(h.destPath)
		return fmt.Errorf("renaming %s to %s: %w", h.tempPath, h.destPath, err)
	}
	return nil
}

// abort unlinks the partial file and the reserved destination name after a
// failed write. The underlying file handle is closed first so Windows (and
// some POSIX filesystems under certain mount options) allow the unlink.
func (h *Handle) abort() {
	h.f.Close()
	os.Remove(h.tempPath)
	os.Remove(h.destPath)
}

// DestPath returns the final destination path this handle will write to.
func (h *Handle) DestPath() string { return h.destPath }
