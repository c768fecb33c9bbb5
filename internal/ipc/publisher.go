package ipc

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
)

// FileSystem abstracts the directory operations the publisher needs.
// Use OSFileSystem for production.
type FileSystem interface {
	// ReadDir lists the named directory sorted by filename.
	ReadDir(name string) ([]fs.DirEntry, error)

	// WriteFile writes data to the named file, creating it if necessary.
	WriteFile(name string, data []byte, perm os.FileMode) error

	// Rename moves oldpath to newpath.
	Rename(oldpath, newpath string) error

	// Remove removes the named file.
	Remove(name string) error

	// MkdirAll creates a directory and all necessary parents.
	MkdirAll(path string, perm os.FileMode) error
}

// OSFileSystem implements FileSystem using the os package.
type OSFileSystem struct{}

func (OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (OSFileSystem) Remove(name string) error {
	return os.Remove(name)
}

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// FileContent is written into the frame file when it is first created.
const FileContent = "VR"

// Dir returns the directory the game plugin polls, relative to the game root.
func Dir(gameRoot string) string {
	return filepath.Join(gameRoot, "Data", "NVSE", "Test")
}

// Publisher keeps a single file in the IPC directory whose name is the
// latest payload. It has a single caller, the sampling loop; the
// counters may be read from any goroutine.
type Publisher struct {
	fs  FileSystem
	dir string

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewPublisher returns a publisher for the IPC directory under gameRoot.
func NewPublisher(fsys FileSystem, gameRoot string) *Publisher {
	return &Publisher{fs: fsys, dir: Dir(gameRoot)}
}

// Dir is the directory being published into.
func (p *Publisher) Dir() string { return p.dir }

// Publish renames the frame file to payload, creating it when the
// directory is empty. A failed publish is counted as dropped; the next
// call retries from whatever state the directory is in.
func (p *Publisher) Publish(payload string) error {
	if err := p.publish(payload); err != nil {
		p.dropped.Add(1)
		return err
	}
	p.published.Add(1)
	return nil
}

func (p *Publisher) publish(payload string) error {
	if err := p.fs.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("create ipc dir: %w", err)
	}

	entries, err := p.fs.ReadDir(p.dir)
	if err != nil {
		return fmt.Errorf("list ipc dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}

	target := filepath.Join(p.dir, payload)
	if len(files) == 0 {
		if err := p.fs.WriteFile(target, []byte(FileContent), 0o644); err != nil {
			return fmt.Errorf("create frame file: %w", err)
		}
		return nil
	}

	// Stray files would leave the game reading a stale frame.
	for _, extra := range files[1:] {
		if extra == payload {
			continue
		}
		if err := p.fs.Remove(filepath.Join(p.dir, extra)); err != nil {
			return fmt.Errorf("remove stray file %q: %w", extra, err)
		}
	}

	if files[0] == payload {
		return nil
	}
	if err := p.fs.Rename(filepath.Join(p.dir, files[0]), target); err != nil {
		return fmt.Errorf("rename frame file: %w", err)
	}
	return nil
}

// Stats returns the published and dropped frame counts.
func (p *Publisher) Stats() (published, dropped uint64) {
	return p.published.Load(), p.dropped.Load()
}
