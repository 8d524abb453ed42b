// Package cache pairs local and remote card sets into persisted sync
// metadata and reads and writes that metadata.
package cache

import (
	"time"

	"github.com/sonroyaalmerol/cardsync/internal/dav"
	"github.com/sonroyaalmerol/cardsync/internal/storage/filestore"
)

// Entry is the sync metadata of a card present on both sides.
type Entry struct {
	Name             string
	ETag             string
	LocalModifiedAt  time.Time
	RemoteModifiedAt time.Time
}

type Cache struct {
	ChangeToken string
	Entries     map[string]Entry
}

func New(token string) *Cache {
	return &Cache{ChangeToken: token, Entries: make(map[string]Entry)}
}

// Build joins local and remote on name. Names present on one side only
// produce no entry. Nothing is carried over from an earlier cache.
func Build(token string, local map[string]filestore.Card, remote map[string]dav.RemoteCard) *Cache {
	c := New(token)
	for name, l := range local {
		r, ok := remote[name]
		if !ok {
			continue
		}
		c.Entries[name] = Entry{
			Name:             name,
			ETag:             r.ETag,
			LocalModifiedAt:  l.ModifiedAt.UTC(),
			RemoteModifiedAt: r.ModifiedAt.UTC(),
		}
	}
	return c
}

// Status is the set of local changes relative to a cache.
type Status struct {
	New      []string
	Modified []string
	Missing  []string
}

func (s Status) Clean() bool {
	return len(s.New) == 0 && len(s.Modified) == 0 && len(s.Missing) == 0
}
