// Package task defines the unit of work that flows from the source
// enumerators (C5) through the scheduler (C6) to a worker (C7).
package task

// Task is one enqueued unit of upload work. Exactly one of Local or Remote
// is set; a Task is immutable after construction.
type Task struct {
	Local  *LocalFile `json:"local,omitempty"`
	Remote *RemoteURL `json:"remote,omitempty"`
}

// LocalFile describes a file found by the local directory walker.
type LocalFile struct {
	// DisplayPath is the path as reported by the enumerator, before symlink
	// resolution, possibly relative. It is used as %p/%f input and as the
	// multipart filename.
	DisplayPath string `json:"display_path"`
	// ResolvedPath is the absolute path, symlinks followed, actually opened
	// for reading.
	ResolvedPath string `json:"resolved_path"`
	// Size is the size in bytes at enumeration time; advisory only.
	Size int64 `json:"size"`
}

// RemoteURL describes a file discovered by the HTTP spider.
type RemoteURL struct {
	// Path is relative to the spider root.
	Path string `json:"path"`
	// URL is the fully-qualified URL to fetch.
	URL string `json:"url"`
}

// NewLocalFile constructs a Task wrapping a LocalFile.
func NewLocalFile(displayPath, resolvedPath string, size int64) Task {
	return Task{Local: &LocalFile{
		DisplayPath:  displayPath,
		ResolvedPath: resolvedPath,
		Size:         size,
	}}
}

// NewRemoteURL constructs a Task wrapping a RemoteURL.
func NewRemoteURL(path, url string) Task {
	return Task{Remote: &RemoteURL{Path: path, URL: url}}
}

// Size returns the advisory size used for queue byte accounting.
func (t Task) Size() int64 {
	if t.Local != nil {
		return t.Local.Size
	}
	return 0
}

// DisplayPath returns the path used for display, logging and %p/%f
// template substitution, regardless of task variant.
func (t Task) DisplayPath() string {
	if t.Local != nil {
		return t.Local.DisplayPath
	}
	if t.Remote != nil {
		return t.Remote.Path
	}
	return ""
}
