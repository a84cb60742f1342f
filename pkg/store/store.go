// Package store defines the artifact store abstraction that the writer,
// query engine and rotation policy persist through, plus an in-memory
// implementation and a named-disk registry.
//
// An artifact store is an opaque byte store addressed by forward-slash,
// store-relative paths. Backends (local filesystem, remote object storage)
// implement Store; core code never touches the filesystem directly.
package store

import "io"

// Store is the persistence backend for log artifacts.
//
// Append must be durable and, for backends with locking primitives, must
// serialize concurrent appends so that no two writers interleave their
// bytes. Backends without such primitives (remote object stores) provide
// whatever atomicity they natively have; that weaker tier is accepted.
type Store interface {
	// Exists reports whether an artifact exists at the given path.
	Exists(path string) bool

	// Put creates or overwrites the artifact at path with data.
	Put(path string, data []byte) error

	// Append appends data to the artifact at path, creating it if absent.
	Append(path string, data []byte) error

	// ReadAll returns the full contents of the artifact.
	ReadAll(path string) ([]byte, error)

	// Open returns a reader over the artifact for line-by-line streaming.
	// The caller closes it.
	Open(path string) (io.ReadCloser, error)

	// ListFiles returns the paths of artifacts directly inside dir
	// (non-recursive). A missing directory yields an empty list, not an
	// error.
	ListFiles(dir string) ([]string, error)

	// ListAllFiles returns the paths of all artifacts under dir,
	// recursively. A missing directory yields an empty list.
	ListAllFiles(dir string) ([]string, error)

	// Delete removes the artifact and reports whether it was removed.
	Delete(path string) bool
}
