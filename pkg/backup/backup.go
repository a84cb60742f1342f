// Package backup transfers daily log artifacts from the active store to an
// archival store, with collision-safe naming and optional compression.
package backup

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/getreqlog/reqlog/pkg/logging"
	"github.com/getreqlog/reqlog/pkg/pathtemplate"
	"github.com/getreqlog/reqlog/pkg/store"
)

// Sentinel errors callers branch on.
var (
	// ErrNoArtifact means no artifact exists for the requested date;
	// a clean no-op for the caller.
	ErrNoArtifact = errors.New("backup: no artifact for date")

	// ErrSameStore means source and destination are the same store.
	ErrSameStore = errors.New("backup: source and destination stores are the same")
)

// Options configures a transfer.
type Options struct {
	// Date selects the artifact to transfer via the path template.
	Date time.Time

	// DeleteSource removes the source artifact after a verified
	// successful transfer.
	DeleteSource bool

	// Compress gzips the artifact on transfer; the destination gets a
	// .gz suffix.
	Compress bool

	// Logger is the operational side-channel.
	Logger *slog.Logger
}

// Transfer copies the artifact for the given date from src to dst and
// returns the destination path. Name collisions on the destination are
// resolved with numeric suffixes (.1, .2, ...) rather than overwriting.
func Transfer(src, dst store.Store, template pathtemplate.Template, opts Options) (string, error) {
	if src == dst {
		return "", ErrSameStore
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	sourcePath := template.Resolve(opts.Date)
	if !src.Exists(sourcePath) {
		return "", fmt.Errorf("%w: %s", ErrNoArtifact, sourcePath)
	}

	data, err := src.ReadAll(sourcePath)
	if err != nil {
		return "", fmt.Errorf("backup: reading %s: %w", sourcePath, err)
	}

	base := sourcePath
	if opts.Compress {
		data, err = compress(data)
		if err != nil {
			return "", fmt.Errorf("backup: compressing %s: %w", sourcePath, err)
		}
		base += ".gz"
	}

	target := base
	for attempt := 1; dst.Exists(target); attempt++ {
		target = base + "." + strconv.Itoa(attempt)
	}

	if err := dst.Put(target, data); err != nil {
		return "", fmt.Errorf("backup: writing %s: %w", target, err)
	}
	logger.Info("transferred artifact", "source", sourcePath, "target", target,
		"bytes", len(data), "compressed", opts.Compress)

	if opts.DeleteSource {
		if !src.Delete(sourcePath) {
			logger.Warn("transfer succeeded but source deletion failed", "path", sourcePath)
		}
	}

	return target, nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
