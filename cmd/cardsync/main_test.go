package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/cardsync/internal/dav/davtest"
)

type opaqueErr struct{ cause error }

func (e opaqueErr) Error() string { return "request failed" }
func (e opaqueErr) Unwrap() error { return e.cause }

func TestFormatError(t *testing.T) {
	err := fmt.Errorf("sync: %w", fmt.Errorf("discover: %w", errors.New("connection refused")))
	assert.Equal(t, "error: sync\n  ↳ discover\n  ↳ connection refused\n", formatError(err))

	err = opaqueErr{cause: errors.New("timeout")}
	assert.Equal(t, "error: request failed\n  ↳ timeout\n", formatError(err))

	assert.Equal(t, "error: plain\n", formatError(errors.New("plain")))
}

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"CARDSYNC_CONFIG", "CARDSYNC_HOST", "CARDSYNC_PORT", "CARDSYNC_LOGIN",
		"CARDSYNC_PASSWD_CMD", "CARDSYNC_SYNC_DIR", "CARDSYNC_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, srv *davtest.Server) (path, syncDir string) {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	dir := t.TempDir()
	syncDir = filepath.Join(dir, "contacts")
	path = filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(`host = %q
port = %s
ssl = false
login = %q
passwd-cmd = "echo %s"
sync-dir = %q
log-level = "error"
`, u.Hostname(), u.Port(), srv.Login, srv.Secret, syncDir)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path, syncDir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func newServer() *davtest.Server {
	srv := davtest.New()
	srv.Cards = []davtest.Card{
		{Href: srv.Collection + "alice.vcf", ETag: `"a1"`, LastModified: "Mon, 01 Jan 2024 10:00:00 GMT", Data: "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Alice\r\nEND:VCARD\r\n"},
		{Href: srv.Collection + "bob.vcf", ETag: `"b1"`, LastModified: "Mon, 01 Jan 2024 10:00:00 GMT", Data: "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Bob\r\nEND:VCARD\r\n"},
	}
	return srv
}

func TestCommands(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("secret command uses sh")
	}
	clearEnv(t)
	srv := newServer()
	defer srv.Close()
	cfgPath, syncDir := writeConfig(t, srv)

	out, err := run(t, "init", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "addressbook: "+srv.URL+srv.Collection)
	assert.DirExists(t, syncDir)

	out, err = run(t, "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "never synced")

	out, err = run(t, "sync", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "synced 2 contacts into "+syncDir+" (2 cached, 0 skipped)")
	assert.FileExists(t, filepath.Join(syncDir, "alice.vcf"))

	out, err = run(t, "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "up to date\n", out)

	require.NoError(t, os.WriteFile(filepath.Join(syncDir, "carol.vcf"), []byte("x"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(syncDir, "bob.vcf")))
	out, err = run(t, "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "new:      carol")
	assert.Contains(t, out, "missing:  bob")

	out, err = run(t, "history", "--config", cfgPath, "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "remote=2 local=2 cached=2 skipped=0")
}

func TestSyncFailureIsReturned(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("secret command uses sh")
	}
	clearEnv(t)
	srv := newServer()
	cfgPath, _ := writeConfig(t, srv)
	srv.Close()

	_, err := run(t, "sync", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, formatError(err), "↳")
}

func TestMissingConfigFails(t *testing.T) {
	clearEnv(t)
	_, err := run(t, "sync", "--config", filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
