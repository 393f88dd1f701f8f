package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/hamed0406/uptimeworker/internal/archive"
	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

// Store keeps raw check records in memory.
type Store struct {
	mu     sync.RWMutex
	checks map[string][]byte
}

func New() *Store {
	return &Store{checks: make(map[string][]byte)}
}

// Put stores raw as the record for id, creating it if needed. The worker
// never calls it; it stands in for whatever creates checks.
func (m *Store) Put(id string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[id] = append([]byte(nil), raw...)
}

func (m *Store) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checks, id)
}

func (m *Store) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.checks))
	for id := range m.checks {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Store) Read(ctx context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.checks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (m *Store) Write(ctx context.Context, c *domain.Check) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal check: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checks[c.ID]; !ok {
		return repo.ErrNotFound
	}
	m.checks[c.ID] = b
	return nil
}

// LogSink is an in-memory outcome log. Archives are stored encoded, exactly
// as the file sink writes them.
type LogSink struct {
	mu       sync.Mutex
	logs     map[string][]byte
	archives map[string][]byte
}

func NewLogSink() *LogSink {
	return &LogSink{
		logs:     make(map[string][]byte),
		archives: make(map[string][]byte),
	}
}

func (s *LogSink) Append(ctx context.Context, id string, line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.logs[id]
	buf = append(buf, line...)
	s.logs[id] = append(buf, '\n')
	return nil
}

func (s *LogSink) List(ctx context.Context, includeArchived bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.logs))
	for id := range s.logs {
		out = append(out, id)
	}
	if includeArchived {
		for id := range s.archives {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *LogSink) Archive(ctx context.Context, sourceID, destID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archiveLocked(sourceID, destID)
}

func (s *LogSink) Truncate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.truncateLocked(id)
}

// ArchiveAndTruncate holds the sink lock across both steps, so appends
// either land in the archive or in the emptied log.
func (s *LogSink) ArchiveAndTruncate(ctx context.Context, sourceID, destID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.archiveLocked(sourceID, destID); err != nil {
		return err
	}
	return s.truncateLocked(sourceID)
}

func (s *LogSink) archiveLocked(sourceID, destID string) error {
	src, ok := s.logs[sourceID]
	if !ok {
		return fmt.Errorf("log %s: %w", sourceID, repo.ErrNotFound)
	}
	if _, exists := s.archives[destID]; exists {
		return fmt.Errorf("archive %s already exists", destID)
	}
	enc, err := archive.Compress(src)
	if err != nil {
		return err
	}
	s.archives[destID] = enc
	return nil
}

func (s *LogSink) truncateLocked(id string) error {
	if _, ok := s.logs[id]; !ok {
		return fmt.Errorf("log %s: %w", id, repo.ErrNotFound)
	}
	s.logs[id] = []byte{}
	return nil
}

func (s *LogSink) ReadArchive(ctx context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	enc, ok := s.archives[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("archive %s: %w", id, repo.ErrNotFound)
	}
	return archive.Decompress(enc)
}

// Contents returns a copy of the live log for id.
func (s *LogSink) Contents(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.logs[id]
	return append([]byte(nil), b...), ok
}

// SetArchive installs an encoded archive directly, e.g. to simulate one
// left over from an earlier run.
func (s *LogSink) SetArchive(id string, encoded []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives[id] = encoded
}
