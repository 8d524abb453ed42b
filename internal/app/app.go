// Package app wires configuration into a ready Syncer.
package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/sonroyaalmerol/cardsync/internal/auth"
	"github.com/sonroyaalmerol/cardsync/internal/cache"
	"github.com/sonroyaalmerol/cardsync/internal/config"
	"github.com/sonroyaalmerol/cardsync/internal/dav"
	"github.com/sonroyaalmerol/cardsync/internal/storage"
	"github.com/sonroyaalmerol/cardsync/internal/storage/filestore"
	"github.com/sonroyaalmerol/cardsync/internal/storage/postgres"
	"github.com/sonroyaalmerol/cardsync/internal/storage/sqlite"
	"github.com/sonroyaalmerol/cardsync/internal/syncer"
)

const userAgent = "cardsync"

// OpenJournal opens the journal backend named by cfg.
func OpenJournal(ctx context.Context, cfg config.JournalConfig, logger zerolog.Logger) (storage.Journal, error) {
	switch cfg.Type {
	case config.JournalNone:
		return storage.Nop{}, nil
	case config.JournalSQLite:
		return sqlite.New(cfg.DSN, logger)
	case config.JournalPostgres:
		return postgres.New(ctx, cfg.DSN, logger)
	default:
		return nil, errors.New("unknown journal type: " + cfg.Type)
	}
}

// New builds a Syncer over the OS filesystem. The returned cleanup closes
// the journal.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*syncer.Syncer, func(), error) {
	return NewWithFs(ctx, cfg, afero.NewOsFs(), logger)
}

func NewWithFs(ctx context.Context, cfg *config.Config, fs afero.Fs, logger zerolog.Logger) (*syncer.Syncer, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	cards, err := filestore.New(fs, cfg.SyncDir, logger)
	if err != nil {
		return nil, nil, err
	}

	journal, err := OpenJournal(ctx, cfg.Journal, logger)
	if err != nil {
		return nil, nil, err
	}

	creds := &auth.BasicAuth{Login: cfg.Login, Command: cfg.PasswdCmd, Logger: logger}
	client := dav.NewClient(dav.Options{
		BaseURL:   cfg.BaseURL(),
		Timeout:   cfg.Timeout,
		UserAgent: userAgent,
		Retries:   cfg.Retries,
	}, creds, logger)

	s := syncer.New(client, cards, cache.NewStore(fs, cfg.SyncDir), journal, logger)
	logger.Debug().
		Str("server", cfg.BaseURL()).
		Str("sync_dir", cfg.SyncDir).
		Str("journal", cfg.Journal.Type).
		Msg("syncer ready")
	return s, journal.Close, nil
}
