// Package filestore keeps one vCard file per contact in the sync directory.
package filestore

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Ext is the extension of every card file.
const Ext = ".vcf"

var ErrInvalidName = errors.New("invalid card name")

// Card is a local card as seen in a directory listing.
type Card struct {
	Name       string
	ModifiedAt time.Time
}

type Store struct {
	fs     afero.Fs
	root   string
	logger zerolog.Logger
}

// New opens a store rooted at rootDir, creating the directory if missing.
func New(fs afero.Fs, rootDir string, logger zerolog.Logger) (*Store, error) {
	if rootDir == "" {
		return nil, errors.New("rootDir required")
	}
	if err := fs.MkdirAll(rootDir, 0o755); err != nil {
		return nil, err
	}
	return &Store{fs: fs, root: rootDir, logger: logger}, nil
}

func (s *Store) Root() string { return s.root }
