// Package file stores checks as one JSON document per file and outcome logs
// as one append-only file per check, next to their gzip+base64 archives.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hamed0406/uptimeworker/internal/archive"
	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

const (
	checkExt = ".json"
	logExt   = ".log"
)

// validID rejects ids that would escape the directory.
func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid id %q", id)
	}
	return nil
}

// listWithExt returns the names in dir ending in ext, with ext removed.
func listWithExt(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		for _, ext := range exts {
			if name := e.Name(); strings.HasSuffix(name, ext) {
				out = append(out, strings.TrimSuffix(name, ext))
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

type CheckStore struct {
	Dir string
}

func NewCheckStore(dir string) (*CheckStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &CheckStore{Dir: dir}, nil
}

func (s *CheckStore) path(id string) string { return filepath.Join(s.Dir, id+checkExt) }

func (s *CheckStore) List(ctx context.Context) ([]string, error) {
	return listWithExt(s.Dir, checkExt)
}

func (s *CheckStore) Read(ctx context.Context, id string) ([]byte, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, repo.ErrNotFound
	}
	return b, err
}

// Write replaces the whole record through a temp file and rename, so a
// reader never sees a half-written check.
func (s *CheckStore) Write(ctx context.Context, c *domain.Check) error {
	if err := validID(c.ID); err != nil {
		return err
	}
	dst := s.path(c.ID)
	if _, err := os.Stat(dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return repo.ErrNotFound
		}
		return err
	}
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal check: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+c.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	return nil
}

// Put creates or replaces the record for id.
func (s *CheckStore) Put(id string, raw []byte) error {
	if err := validID(id); err != nil {
		return err
	}
	return os.WriteFile(s.path(id), raw, 0o644)
}

// LogSink keeps one append-only log file per id. Appends, archiving and
// truncation of the same id are serialized within the process.
type LogSink struct {
	Dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLogSink(dir string) (*LogSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LogSink{Dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// lock takes the per-id lock and returns its unlock.
func (s *LogSink) lock(id string) func() {
	s.mu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*sync.Mutex)
	}
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *LogSink) logPath(id string) string     { return filepath.Join(s.Dir, id+logExt) }
func (s *LogSink) archivePath(id string) string { return filepath.Join(s.Dir, id+archive.Ext) }

func (s *LogSink) Append(ctx context.Context, id string, line []byte) (err error) {
	if err := validID(id); err != nil {
		return err
	}
	defer s.lock(id)()

	f, err := os.OpenFile(s.logPath(id), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log for append: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close log: %w", cerr)
		}
	}()

	buf := make([]byte, 0, len(line)+1)
	buf = append(append(buf, line...), '\n')
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

func (s *LogSink) List(ctx context.Context, includeArchived bool) ([]string, error) {
	if includeArchived {
		return listWithExt(s.Dir, logExt, archive.Ext)
	}
	return listWithExt(s.Dir, logExt)
}

func (s *LogSink) Archive(ctx context.Context, sourceID, destID string) error {
	if err := validID(sourceID); err != nil {
		return err
	}
	if err := validID(destID); err != nil {
		return err
	}
	defer s.lock(sourceID)()
	return s.archiveLocked(sourceID, destID)
}

func (s *LogSink) Truncate(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	defer s.lock(id)()
	return s.truncateLocked(id)
}

// ArchiveAndTruncate archives sourceID and empties it while holding its
// lock, so no append is lost between the two steps. Nothing is truncated
// when the archive could not be written.
func (s *LogSink) ArchiveAndTruncate(ctx context.Context, sourceID, destID string) error {
	if err := validID(sourceID); err != nil {
		return err
	}
	if err := validID(destID); err != nil {
		return err
	}
	defer s.lock(sourceID)()
	if err := s.archiveLocked(sourceID, destID); err != nil {
		return err
	}
	return s.truncateLocked(sourceID)
}

func (s *LogSink) archiveLocked(sourceID, destID string) (err error) {
	src, err := os.ReadFile(s.logPath(sourceID))
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	enc, err := archive.Compress(src)
	if err != nil {
		return fmt.Errorf("compress log: %w", err)
	}

	f, err := os.OpenFile(s.archivePath(destID), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close archive: %w", cerr)
		}
	}()
	if _, err := f.Write(enc); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

func (s *LogSink) truncateLocked(id string) error {
	if err := os.Truncate(s.logPath(id), 0); err != nil {
		return fmt.Errorf("truncate log: %w", err)
	}
	return nil
}

func (s *LogSink) ReadArchive(ctx context.Context, id string) ([]byte, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	enc, err := os.ReadFile(s.archivePath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("archive %s: %w", id, repo.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return archive.Decompress(enc)
}
