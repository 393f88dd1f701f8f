package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Ports (interfaces): the worker is written against these, adapters live in
// the sub-packages.

// CheckStore lists and reads raw check records and overwrites them whole.
// Write must not create records: a check deleted mid-cycle stays deleted.
type CheckStore interface {
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, id string) ([]byte, error)
	Write(ctx context.Context, c *domain.Check) error
}

// LogSink is the append-only outcome log, one log per check id.
type LogSink interface {
	Append(ctx context.Context, id string, line []byte) error
	// List returns log ids; archived logs are included only on request.
	List(ctx context.Context, includeArchived bool) ([]string, error)
	// Archive writes the compressed contents of sourceID to a new archive
	// destID. It fails rather than overwrite an existing archive.
	Archive(ctx context.Context, sourceID, destID string) error
	Truncate(ctx context.Context, id string) error
}

// ArchiveTruncater is implemented by sinks that can archive a log and empty
// it as one step, with no Append landing in between.
type ArchiveTruncater interface {
	ArchiveAndTruncate(ctx context.Context, sourceID, destID string) error
}

// ArchiveReader is implemented by sinks that can hand back the decompressed
// contents of an archive.
type ArchiveReader interface {
	ReadArchive(ctx context.Context, id string) ([]byte, error)
}
