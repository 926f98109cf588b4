// Package store persists rendered journal entries as one markdown file per day.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/roelfdiedericks/lilybear/internal/entry"
	"github.com/roelfdiedericks/lilybear/internal/errs"
	. "github.com/roelfdiedericks/lilybear/internal/logging"
	"github.com/roelfdiedericks/lilybear/internal/paths"
)

// DefaultDir is the entries directory used when none is configured.
const DefaultDir = "entries"

// entryPerm is the mode of written entry files.
const entryPerm = 0644

var dateKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Store writes entries to <dir>/<YYYY-MM-DD>.md. A second save on the same
// day replaces the first.
type Store struct {
	dir string
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per date key
}

// New creates a Store rooted at dir. The directory is created on first save.
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{
		dir:   dir,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

// Dir returns the entries directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for a date key without validating it.
func (s *Store) Path(dateKey string) string {
	return filepath.Join(s.dir, dateKey+".md")
}

// Save renders e for today and writes it, returning the path written.
// IO failures are returned unchanged and not retried.
func (s *Store) Save(e *entry.Entry) (string, error) {
	today := s.now()
	key := today.Format(entry.DateLayout)
	path := s.Path(key)

	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if err := paths.EnsureDir(s.dir); err != nil {
		return "", err
	}

	if err := paths.AtomicWrite(path, []byte(e.Markdown(today)), entryPerm); err != nil {
		return "", fmt.Errorf("write entry %s: %w", path, err)
	}

	L_debug("store: entry saved", "path", path)
	return path, nil
}

// Load returns the stored markdown for dateKey verbatim. Keys that are not
// a YYYY-MM-DD calendar date and days without an entry both return an error
// matching errs.ErrNotFound.
func (s *Store) Load(dateKey string) ([]byte, error) {
	if err := ValidateDateKey(dateKey); err != nil {
		return nil, errs.NotFound("entry "+dateKey, err)
	}

	data, err := os.ReadFile(s.Path(dateKey))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.NotFound("entry "+dateKey, err)
		}
		return nil, fmt.Errorf("read entry %s: %w", dateKey, err)
	}
	return data, nil
}

// ValidateDateKey checks that key is exactly YYYY-MM-DD and names a real day.
func ValidateDateKey(key string) error {
	if !dateKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid date key %q", key)
	}
	if _, err := time.Parse(entry.DateLayout, key); err != nil {
		return fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return nil
}

func (s *Store) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}
