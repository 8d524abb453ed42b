// Package syncer runs one-way syncs of a remote addressbook into the
// local card directory.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sonroyaalmerol/cardsync/internal/cache"
	"github.com/sonroyaalmerol/cardsync/internal/dav"
	"github.com/sonroyaalmerol/cardsync/internal/storage"
	"github.com/sonroyaalmerol/cardsync/internal/storage/filestore"
	"github.com/sonroyaalmerol/cardsync/pkg/vcard"
)

// Remote is the server side of a sync.
type Remote interface {
	Discover(ctx context.Context) (string, error)
	FetchCards(ctx context.Context, path string, w dav.CardWriter) (*dav.FetchResult, error)
	FetchChangeToken(ctx context.Context, path string) (string, error)
}

type Syncer struct {
	remote  Remote
	cards   *filestore.Store
	cache   *cache.Store
	journal storage.Journal
	logger  zerolog.Logger
	now     func() time.Time
}

func New(remote Remote, cards *filestore.Store, cacheStore *cache.Store, journal storage.Journal, logger zerolog.Logger) *Syncer {
	if journal == nil {
		journal = storage.Nop{}
	}
	return &Syncer{
		remote:  remote,
		cards:   cards,
		cache:   cacheStore,
		journal: journal,
		logger:  logger,
		now:     time.Now,
	}
}

// Report summarizes a completed run.
type Report struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Collection  string
	ChangeToken string
	Remote      int
	Local       int
	Cached      int
	Skipped     []dav.Skipped
}

// Init resolves the remote collection path.
func (s *Syncer) Init(ctx context.Context) (string, error) {
	path, err := s.remote.Discover(ctx)
	if err != nil {
		return "", err
	}
	s.logger.Info().Str("collection", path).Msg("addressbook discovered")
	return path, nil
}

// Run performs a full sync: discovery, card fetch and change token query,
// local listing, then a fresh cache that replaces the previous one. Any
// failure before the cache is saved aborts the run and leaves the previous
// cache in place.
func (s *Syncer) Run(ctx context.Context) (*Report, error) {
	rep := &Report{RunID: uuid.NewString(), StartedAt: s.now().UTC()}
	logger := s.logger.With().Str("run", rep.RunID).Logger()
	logger.Debug().Msg("sync started")

	path, err := s.remote.Discover(ctx)
	if err != nil {
		return nil, err
	}
	rep.Collection = path
	logger.Debug().Str("collection", path).Msg("addressbook discovered")

	var fetched *dav.FetchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tok, err := s.remote.FetchChangeToken(gctx, path)
		rep.ChangeToken = tok
		return err
	})
	g.Go(func() error {
		res, err := s.remote.FetchCards(gctx, path, s.cards)
		fetched = res
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	local, err := s.cards.ListCards()
	if err != nil {
		return nil, err
	}

	c := cache.Build(rep.ChangeToken, local, fetched.Cards)
	if err := s.cache.Save(c); err != nil {
		return nil, fmt.Errorf("save cache: %w", err)
	}

	rep.Remote = len(fetched.Cards)
	rep.Local = len(local)
	rep.Cached = len(c.Entries)
	rep.Skipped = fetched.Skipped
	rep.FinishedAt = s.now().UTC()

	for _, sk := range rep.Skipped {
		logger.Warn().Str("href", sk.Href).Str("reason", sk.Reason).Msg("member skipped")
	}
	if err := s.journal.RecordRun(ctx, rep.run()); err != nil {
		logger.Warn().Err(err).Msg("failed to record run in journal")
	}

	logger.Info().
		Int("remote", rep.Remote).
		Int("local", rep.Local).
		Int("cached", rep.Cached).
		Int("skipped", len(rep.Skipped)).
		Dur("took", rep.FinishedAt.Sub(rep.StartedAt)).
		Msg("sync finished")
	return rep, nil
}

func (r *Report) run() storage.Run {
	run := storage.Run{
		ID:          r.RunID,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		Collection:  r.Collection,
		ChangeToken: r.ChangeToken,
		RemoteCards: r.Remote,
		LocalCards:  r.Local,
		CachedCards: r.Cached,
	}
	for _, sk := range r.Skipped {
		run.Skipped = append(run.Skipped, storage.Skipped{Href: sk.Href, Reason: sk.Reason})
	}
	return run
}

// StatusReport is the local state relative to the last saved cache.
type StatusReport struct {
	cache.Status
	// NeverSynced is set when no cache file exists yet.
	NeverSynced bool
	ChangeToken string
	// Corrupt lists cache lines that could not be read.
	Corrupt []cache.LineError
}

// Status compares the local card directory with the saved cache. It never
// contacts the server.
func (s *Syncer) Status() (*StatusReport, error) {
	local, err := s.cards.ListCards()
	if err != nil {
		return nil, err
	}

	prev, corrupt, err := s.cache.Load()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &StatusReport{Status: cache.Changes(nil, local), NeverSynced: true}, nil
	case err != nil:
		return nil, err
	}
	for _, le := range corrupt {
		s.logger.Warn().Int("line", le.Line).Err(le.Err).Msg("skipping unreadable cache line")
	}
	return &StatusReport{
		Status:      cache.Changes(prev, local),
		ChangeToken: prev.ChangeToken,
		Corrupt:     corrupt,
	}, nil
}

// DisplayName returns the FN of a local card, or "" when the card cannot
// be read or has no name.
func (s *Syncer) DisplayName(name string) string {
	b, err := s.cards.ReadCard(name)
	if err != nil {
		return ""
	}
	fn, err := vcard.DisplayName(b)
	if err != nil {
		return ""
	}
	return fn
}

// History returns up to limit recorded runs, most recent first.
func (s *Syncer) History(ctx context.Context, limit int) ([]storage.Run, error) {
	return s.journal.ListRuns(ctx, limit)
}
