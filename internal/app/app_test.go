package app

import (
	"context"
	"net/url"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/cardsync/internal/config"
	"github.com/sonroyaalmerol/cardsync/internal/dav/davtest"
	"github.com/sonroyaalmerol/cardsync/internal/storage"
)

func configFor(t *testing.T, srv *davtest.Server) *config.Config {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	dir := t.TempDir()
	return &config.Config{
		Host:      u.Hostname(),
		Port:      port,
		Login:     srv.Login,
		PasswdCmd: "echo " + srv.Secret,
		SyncDir:   dir,
		Timeout:   5 * time.Second,
		Journal:   config.JournalConfig{Type: config.JournalSQLite, DSN: filepath.Join(dir, ".journal.db")},
	}
}

func TestOpenJournal(t *testing.T) {
	j, err := OpenJournal(context.Background(), config.JournalConfig{Type: config.JournalNone}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, storage.Nop{}, j)

	_, err = OpenJournal(context.Background(), config.JournalConfig{Type: "mongo"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, _, err := NewWithFs(context.Background(), &config.Config{}, afero.NewMemMapFs(), zerolog.Nop())
	assert.Error(t, err)
}

func TestSyncThroughWiredApp(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("secret command uses sh")
	}
	srv := davtest.New()
	defer srv.Close()
	srv.Cards = []davtest.Card{{
		Href:         srv.Collection + "alice.vcf",
		ETag:         `"a1"`,
		LastModified: "Mon, 01 Jan 2024 10:00:00 GMT",
		Data:         "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Alice\r\nEND:VCARD\r\n",
	}}
	cfg := configFor(t, srv)

	s, cleanup, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer cleanup()

	rep, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Cached)
	assert.FileExists(t, filepath.Join(cfg.SyncDir, "alice.vcf"))
	assert.FileExists(t, filepath.Join(cfg.SyncDir, ".cache"))

	runs, err := s.History(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, rep.RunID, runs[0].ID)
}
