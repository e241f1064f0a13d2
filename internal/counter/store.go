package counter

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"mural/internal/fileutil"
)

// Store persists display counts keyed by absolute image path. Records are
// newline-delimited `<path> <count>` lines; the count is the last
// whitespace-delimited token so paths may contain spaces. Every mutation
// rewrites the whole file through an atomic temp-write-and-rename, so the
// previous contents survive a crash mid-update.
type Store struct {
	mu   sync.Mutex
	path string
}

// Record is one persisted path/count pair.
type Record struct {
	Path  string
	Count int
}

// Open binds a store to the given file, creating it when absent. An unusable
// store location is an error; callers treat it as fatal at startup.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat counter store: %w", err)
		}
		if err := fileutil.WriteAtomic(path, nil, 0o644); err != nil {
			return nil, fmt.Errorf("create counter store: %w", err)
		}
	}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns the persisted count for path, or 0 when no record exists.
func (s *Store) Get(path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.load()
	if err != nil {
		return 0, err
	}
	return counts[path], nil
}

// Upsert replaces or appends the record for path.
func (s *Store) Upsert(path string, count int) error {
	if count < 0 {
		return fmt.Errorf("count must not be negative: %d", count)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.load()
	if err != nil {
		return err
	}
	counts[path] = count
	return s.write(counts)
}

// Remove deletes the record for path. Removing an absent record is a no-op.
func (s *Store) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := counts[path]; !ok {
		return nil
	}
	delete(counts, path)
	return s.write(counts)
}

// All returns every record sorted by path.
func (s *Store) All() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.load()
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(counts))
	for path, count := range counts {
		records = append(records, Record{Path: path, Count: count})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records, nil
}

func (s *Store) load() (map[string]int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("read counter store: %w", err)
	}

	counts := make(map[string]int)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		path, count, ok := parseRecord(line)
		if !ok {
			// Malformed lines are dropped on the next rewrite.
			continue
		}
		counts[path] = count
	}
	return counts, nil
}

func (s *Store) write(counts map[string]int) error {
	paths := make([]string, 0, len(counts))
	for path := range counts {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var sb strings.Builder
	for _, path := range paths {
		sb.WriteString(path)
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(counts[path]))
		sb.WriteByte('\n')
	}
	if err := fileutil.WriteAtomic(s.path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("persist counter store: %w", err)
	}
	return nil
}

// parseRecord splits a record line into path and count. The count is the last
// whitespace-delimited token.
func parseRecord(line string) (string, int, bool) {
	idx := strings.LastIndexAny(line, " \t")
	if idx <= 0 {
		return "", 0, false
	}
	count, err := strconv.Atoi(strings.TrimSpace(line[idx+1:]))
	if err != nil || count < 0 {
		return "", 0, false
	}
	path := strings.TrimRight(line[:idx], " \t")
	if path == "" {
		return "", 0, false
	}
	return path, count, true
}
