package auth

import (
	"context"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
}

func TestCredentials(t *testing.T) {
	skipOnWindows(t)
	b := &BasicAuth{Login: "alice", Command: "printf 'hunter2\\nsecond line\\n'", Logger: zerolog.Nop()}

	login, secret, err := b.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", login)
	assert.Equal(t, "hunter2", secret)
}

func TestCredentialsKeepsInnerSpaces(t *testing.T) {
	skipOnWindows(t)
	b := &BasicAuth{Login: "alice", Command: "echo ' pass word '"}

	_, secret, err := b.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, " pass word ", secret)
}

func TestCredentialsFailures(t *testing.T) {
	skipOnWindows(t)
	for name, cmd := range map[string]string{
		"exit status": "echo nope >&2; exit 3",
		"empty":       "true",
		"blank":       "   ",
		"not found":   "definitely-not-a-command-cardsync",
	} {
		t.Run(name, func(t *testing.T) {
			b := &BasicAuth{Login: "alice", Command: cmd}
			_, _, err := b.Credentials(context.Background())
			assert.ErrorIs(t, err, ErrSecretCommand)
		})
	}
}

func TestCredentialsCancelled(t *testing.T) {
	skipOnWindows(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &BasicAuth{Login: "alice", Command: "sleep 5; echo late"}
	_, _, err := b.Credentials(ctx)
	assert.ErrorIs(t, err, ErrSecretCommand)
}

func TestCredentialsRequiresLogin(t *testing.T) {
	_, _, err := (&BasicAuth{Command: "echo x"}).Credentials(context.Background())
	assert.Error(t, err)
}
