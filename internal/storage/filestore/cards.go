package filestore

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// WriteCard stores data as <name>.vcf, replacing any previous file.
func (s *Store) WriteCard(name string, data []byte) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := writeFileAtomic(s.fs, s.tmpPath(name), s.cardPath(name), data); err != nil {
		return fmt.Errorf("write card %s: %w", name, err)
	}
	s.logger.Debug().Str("card", name).Int("bytes", len(data)).Msg("card written")
	return nil
}

func (s *Store) ReadCard(name string) ([]byte, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return afero.ReadFile(s.fs, s.cardPath(name))
}

// ListCards returns every <name>.vcf file in the root keyed by name, with
// modification times in UTC. Subdirectories are not traversed.
func (s *Store) ListCards() (map[string]Card, error) {
	infos, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.root, err)
	}
	out := make(map[string]Card, len(infos))
	for _, fi := range infos {
		if fi.IsDir() || filepath.Ext(fi.Name()) != Ext {
			continue
		}
		name := strings.TrimSuffix(fi.Name(), Ext)
		if name == "" {
			continue
		}
		out[name] = Card{Name: name, ModifiedAt: fi.ModTime().UTC()}
	}
	return out, nil
}
