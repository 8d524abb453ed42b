package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/cardsync/internal/storage"
)

func TestRecordAndListRuns(t *testing.T) {
	dsn := os.Getenv("CARDSYNC_TEST_PG_URL")
	if dsn == "" {
		t.Skip("CARDSYNC_TEST_PG_URL not set")
	}
	ctx := context.Background()
	s, err := New(ctx, dsn, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	r := storage.Run{
		ID:          uuid.NewString(),
		StartedAt:   time.Now().Add(24 * time.Hour).UTC().Truncate(time.Microsecond),
		FinishedAt:  time.Now().Add(25 * time.Hour).UTC().Truncate(time.Microsecond),
		Collection:  "/dav/addressbooks/alice/contacts/",
		ChangeToken: "ctag-9",
		RemoteCards: 2,
		Skipped:     []storage.Skipped{{Href: "/x/", Reason: "no usable name"}},
	}
	require.NoError(t, s.RecordRun(ctx, r))

	runs, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, r.ID, runs[0].ID)
	assert.True(t, r.StartedAt.Equal(runs[0].StartedAt))
	assert.Equal(t, r.Skipped, runs[0].Skipped)
}
