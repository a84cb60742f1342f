// Package local implements the artifact store on a rooted local
// filesystem directory, with exclusive-lock-guarded appends so concurrent
// writers to the same time-bucketed file never interleave their bytes.
//
// The append lock is process-local. Writers in separate processes (a
// serving process and a CLI invocation, say) are serialized only by the
// kernel's O_APPEND single-write atomicity, which keeps whole-record
// appends intact but is not a cross-process file lock.
package local

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/getreqlog/reqlog/pkg/store"
)

// Store persists artifacts under a root directory. Artifact paths are
// store-relative with forward slashes; they are cleaned and confined to the
// root, so a hostile path cannot escape it.
type Store struct {
	root string

	// locks serializes appends per artifact path within this process.
	// Combined with O_APPEND single-write syscalls this keeps concurrent
	// appends line-atomic.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a local store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{
		root:  dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Root returns the root directory of the store.
func (s *Store) Root() string {
	return s.root
}

// abs maps a store-relative path to an absolute filesystem path confined to
// the root.
func (s *Store) abs(p string) string {
	clean := path.Clean("/" + strings.Trim(p, "/"))
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
}

func (s *Store) pathLock(p string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[p]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[p] = mu
	}
	return mu
}

// Exists reports whether a regular file exists at path.
func (s *Store) Exists(p string) bool {
	info, err := os.Stat(s.abs(p))
	return err == nil && info.Mode().IsRegular()
}

// Put creates or overwrites the artifact at path.
func (s *Store) Put(p string, data []byte) error {
	target := s.abs(p)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o644)
}

// Append appends data to the artifact at path, creating it if absent. The
// per-path lock is held for the duration of the single append write and is
// released on every exit path.
func (s *Store) Append(p string, data []byte) error {
	target := s.abs(p)

	mu := s.pathLock(target)
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	// A single write to an O_APPEND descriptor; the kernel keeps the
	// offset update and the write atomic relative to other appenders.
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// ReadAll returns the full contents of the artifact at path.
func (s *Store) ReadAll(p string) ([]byte, error) {
	return os.ReadFile(s.abs(p))
}

// Open returns a reader over the artifact at path.
func (s *Store) Open(p string) (io.ReadCloser, error) {
	return os.Open(s.abs(p))
}

// ListFiles returns the store-relative paths of files directly inside dir.
// A missing directory yields an empty list.
func (s *Store) ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(s.abs(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	prefix := strings.Trim(dir, "/")
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		out = append(out, joinRel(prefix, entry.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// ListAllFiles returns the store-relative paths of all files under dir,
// recursively. A missing directory yields an empty list.
func (s *Store) ListAllFiles(dir string) ([]string, error) {
	rootDir := s.abs(dir)
	prefix := strings.Trim(dir, "/")

	var out []string
	err := filepath.WalkDir(rootDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(rootDir, p)
		if err != nil {
			return err
		}
		out = append(out, joinRel(prefix, filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// Delete removes the artifact at path and reports whether it was removed.
func (s *Store) Delete(p string) bool {
	return os.Remove(s.abs(p)) == nil
}

func joinRel(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

var _ store.Store = (*Store)(nil)
