package storage

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// LocalEmitter implements FileEmitter on an afero filesystem.
// Files are written to a temporary sibling and renamed into place, so a reader
// never observes a partially written stub.
type LocalEmitter struct {
	fs afero.Fs
}

// NewLocalEmitter creates an emitter on fs; nil means the OS filesystem.
// Parameters:
//   - fs: filesystem to write to.
// Returns:
//   - *LocalEmitter: emitter bound to fs.
func NewLocalEmitter(fs afero.Fs) *LocalEmitter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &LocalEmitter{fs: fs}
}

// Emit writes content to path unless the file exists and overwrite is false.
func (e *LocalEmitter) Emit(path, content string, overwrite bool) (bool, error) {
	if err := e.EnsureDir(filepath.Dir(path)); err != nil {
		return false, err
	}

	if !overwrite {
		exists, err := afero.Exists(e.fs, path)
		if err != nil {
			return false, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if exists {
			return false, nil
		}
	}

	if err := e.writeAtomic(path, content); err != nil {
		return false, err
	}
	return true, nil
}

// EmitOnce writes content to path only if it does not exist; it never overwrites.
func (e *LocalEmitter) EmitOnce(path, content string) (bool, error) {
	return e.Emit(path, content, false)
}

// EnsureDir creates dir and its parents, failing if dir exists as a file.
func (e *LocalEmitter) EnsureDir(dir string) error {
	if err := e.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	isDir, err := afero.IsDir(e.fs, dir)
	if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !isDir {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// ReadFile returns the content of a previously emitted file.
func (e *LocalEmitter) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(e.fs, path)
}

func (e *LocalEmitter) writeAtomic(path, content string) error {
	tmp, err := afero.TempFile(e.fs, filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		_ = e.fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = e.fs.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := e.fs.Chmod(tmpName, 0644); err != nil {
		_ = e.fs.Remove(tmpName)
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := e.fs.Rename(tmpName, path); err != nil {
		_ = e.fs.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
