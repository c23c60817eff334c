// Package jsonio provides the single persistence discipline for every JSON
// file the workshop writes: a sibling "<path>.lock" advisory lock held for the
// write window, write to "<path>.tmp", optional fsync, then rename over the
// destination. Readers never take the lock; rename keeps them from seeing a
// torn file.
package jsonio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrMissing is returned by Read when the file does not exist.
var ErrMissing = errors.New("file does not exist")

// CorruptError reports a file that exists but does not hold valid JSON.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt JSON in %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Options tunes a write.
type Options struct {
	// Sync fsyncs the temp file before the rename.
	Sync bool
}

// beforeRename runs inside the locked window just before the rename.
// Tests use it to widen the window.
var beforeRename func(path string)

// Write marshals v and atomically replaces path while holding its lock.
func Write(path string, v any) error {
	return WriteWith(path, v, Options{})
}

// WriteWith is Write with explicit options.
func WriteWith(path string, v any, opts Options) error {
	lock, err := Lock(path)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	return WriteLocked(path, v, opts)
}

// WriteLocked writes path assuming the caller already holds Lock(path).
func WriteLocked(path string, v any, opts Options) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return writeBytes(path, data, opts)
}

// Marshal encodes v the way every persisted file is encoded.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBytes(path string, data []byte, opts Options) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing temp file: %w", err)
	}

	if opts.Sync {
		if err := f.Sync(); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("syncing temp file: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if beforeRename != nil {
		beforeRename(path)
	}

	return replace(tmp, path)
}

// replace renames tmp over path. When the rename fails (Windows refuses to
// replace a file another process has open) the destination is removed and
// the rename retried once.
func replace(tmp, path string) error {
	err := os.Rename(tmp, path)
	if err == nil {
		return nil
	}

	if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, errors.Join(err, rmErr))
	}

	if err2 := os.Rename(tmp, path); err2 != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err2)
	}

	return nil
}

// Read decodes path into v. It returns an error wrapping ErrMissing when the
// file does not exist and a *CorruptError when the content is not valid JSON.
func Read(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrMissing)
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return &CorruptError{Path: path, Err: errors.New("empty file")}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return &CorruptError{Path: path, Err: err}
	}

	return nil
}

// Warning values returned by Load.
const (
	WarningMissing = "missing"
	WarningCorrupt = "corrupt"
)

// Load reads path into a fresh T. Missing or corrupt files yield def() and a
// non-empty warning instead of an error; only other I/O errors are returned.
func Load[T any](path string, def func() T) (T, string, error) {
	var v T
	err := Read(path, &v)
	switch {
	case err == nil:
		return v, "", nil
	case errors.Is(err, ErrMissing):
		return def(), WarningMissing, nil
	default:
		var corrupt *CorruptError
		if errors.As(err, &corrupt) {
			return def(), WarningCorrupt, nil
		}
		return def(), "", err
	}
}

// Update runs a locked read-modify-write cycle on path. fn receives the
// current value (def() when missing or corrupt) and the load warning; when fn
// returns nil the value is written back before the lock is released.
func Update[T any](path string, def func() T, fn func(v *T, warning string) error) error {
	lock, err := Lock(path)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	v, warning, err := Load(path, def)
	if err != nil {
		return err
	}

	if err := fn(&v, warning); err != nil {
		return err
	}

	return WriteLocked(path, v, Options{})
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}
