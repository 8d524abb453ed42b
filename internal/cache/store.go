package cache

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/sonroyaalmerol/cardsync/internal/storage/filestore"
)

// FileName is the cache file inside the sync directory.
const FileName = ".cache"

type Store struct {
	fs   afero.Fs
	path string
}

func NewStore(fs afero.Fs, syncDir string) *Store {
	return &Store{fs: fs, path: filepath.Join(syncDir, FileName)}
}

func (s *Store) Path() string { return s.path }

// Load reads the cache file. A missing file yields an error satisfying
// errors.Is(err, fs.ErrNotExist).
func (s *Store) Load() (*Cache, []LineError, error) {
	b, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, nil, err
	}
	c, skipped, err := Parse(b)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return c, skipped, nil
}

// Save replaces the cache file atomically.
func (s *Store) Save(c *Cache) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, c.Marshal(), 0o644); err != nil {
		return err
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	return nil
}

// Changes compares the local listing against a cache. A nil cache reports
// every local card as new.
func Changes(prev *Cache, local map[string]filestore.Card) Status {
	var st Status
	for name, l := range local {
		if prev == nil {
			st.New = append(st.New, name)
			continue
		}
		e, ok := prev.Entries[name]
		switch {
		case !ok:
			st.New = append(st.New, name)
		case !e.LocalModifiedAt.Equal(l.ModifiedAt):
			st.Modified = append(st.Modified, name)
		}
	}
	if prev != nil {
		for name := range prev.Entries {
			if _, ok := local[name]; !ok {
				st.Missing = append(st.Missing, name)
			}
		}
	}
	sort.Strings(st.New)
	sort.Strings(st.Modified)
	sort.Strings(st.Missing)
	return st
}
