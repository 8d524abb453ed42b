package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"CARDSYNC_CONFIG", "CARDSYNC_HOST", "CARDSYNC_PORT", "CARDSYNC_LOGIN",
		"CARDSYNC_PASSWD_CMD", "CARDSYNC_SYNC_DIR", "CARDSYNC_LOG_LEVEL", "XDG_CONFIG_HOME",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sample = `
host = "dav.example.com"
login = "alice"
passwd-cmd = "pass show dav/alice"
sync-dir = "/var/lib/cardsync"
timeout = "5s"
retries = 2
`

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, filepath.Join(t.TempDir(), "config.toml"), sample)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "dav.example.com", cfg.Host)
	assert.True(t, cfg.SSL)
	assert.Equal(t, 443, cfg.Port)
	assert.Equal(t, "alice", cfg.Login)
	assert.Equal(t, "pass show dav/alice", cfg.PasswdCmd)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Retries)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, JournalSQLite, cfg.Journal.Type)
	assert.Equal(t, filepath.Join("/var/lib/cardsync", ".journal.db"), cfg.Journal.DSN)
	assert.Empty(t, cfg.Unknown)
	assert.Equal(t, "https://dav.example.com:443", cfg.BaseURL())
	assert.Equal(t, "https://dav.example.com:443/dav/", cfg.URL("dav/"))
	assert.Equal(t, "https://other.example.com/ab/", cfg.URL("https://other.example.com/ab/"))
}

func TestLoadPlainHTTPAndJournal(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, filepath.Join(t.TempDir(), "config.toml"), `
host = "localhost"
port = 5232
ssl = false
login = "bob"
passwd-cmd = "echo x"
sync-dir = "/tmp/contacts"
colour = "blue"

[journal]
type = "Postgres"
dsn = "postgres://cardsync@localhost/cardsync"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:5232", cfg.BaseURL())
	assert.Equal(t, JournalPostgres, cfg.Journal.Type)
	assert.Equal(t, "postgres://cardsync@localhost/cardsync", cfg.Journal.DSN)
	assert.Equal(t, []string{"colour"}, cfg.Unknown)
}

func TestLoadDefaultPortWithoutSSL(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, filepath.Join(t.TempDir(), "c.toml"), "host = \"h\"\nssl = false\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.Port)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, filepath.Join(t.TempDir(), "config.toml"), sample)
	t.Setenv("CARDSYNC_HOST", "other.example.com")
	t.Setenv("CARDSYNC_PORT", "8443")
	t.Setenv("CARDSYNC_LOGIN", "carol")
	t.Setenv("CARDSYNC_SYNC_DIR", "/srv/contacts")
	t.Setenv("CARDSYNC_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "other.example.com", cfg.Host)
	assert.Equal(t, 8443, cfg.Port)
	assert.Equal(t, "carol", cfg.Login)
	assert.Equal(t, "/srv/contacts", cfg.SyncDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, filepath.Join("/srv/contacts", ".journal.db"), cfg.Journal.DSN)

	t.Setenv("CARDSYNC_PORT", "https")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadEnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("CARDSYNC_HOST", "h")
	t.Setenv("CARDSYNC_LOGIN", "l")
	t.Setenv("CARDSYNC_PASSWD_CMD", "echo s")
	t.Setenv("CARDSYNC_SYNC_DIR", "/d")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.NoError(t, cfg.Validate())
}

func TestLoadBareIntegerTimeout(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, filepath.Join(t.TempDir(), "config.toml"),
		strings.Replace(sample, `timeout = "5s"`, "timeout = 30", 1))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Nanosecond, cfg.Timeout)
	assert.ErrorContains(t, cfg.Validate(), "duration string")
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := writeFile(t, filepath.Join(t.TempDir(), "bad.toml"), "host = ")
	_, err = Load(path)
	assert.Error(t, err)

	path = writeFile(t, filepath.Join(t.TempDir(), "bad.toml"), `timeout = "soon"`)
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"host", "login", "passwd-cmd", "sync-dir", "journal.dsn"} {
		assert.ErrorContains(t, err, want)
	}

	cfg = &Config{Host: "h", Port: 70000, Login: "l", PasswdCmd: "c", SyncDir: "/d", Retries: -1,
		Journal: JournalConfig{Type: "mongo"}}
	err = cfg.Validate()
	assert.ErrorContains(t, err, "port 70000")
	assert.ErrorContains(t, err, "timeout")
	assert.ErrorContains(t, err, "retries")
	assert.ErrorContains(t, err, `unknown journal.type "mongo"`)

	cfg = &Config{Host: "h", Port: 1, Login: "l", PasswdCmd: "c", SyncDir: "/d", Timeout: 30,
		Journal: JournalConfig{Type: JournalNone}}
	assert.ErrorContains(t, cfg.Validate(), "timeout 30ns is below 100ms")

	cfg = &Config{Host: "h", Port: 1, Login: "l", PasswdCmd: "c", SyncDir: "/d", Timeout: time.Second,
		Journal: JournalConfig{Type: JournalNone}}
	assert.NoError(t, cfg.Validate())
}

func TestLocate(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, "/explicit.toml", Locate("/explicit.toml"))
	assert.Empty(t, Locate(""))

	rc := writeFile(t, filepath.Join(home, ".cardsyncrc"), sample)
	assert.Equal(t, rc, Locate(""))

	dot := writeFile(t, filepath.Join(home, ".config", "cardsync", "config.toml"), sample)
	assert.Equal(t, dot, Locate(""))

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	assert.Equal(t, dot, Locate(""), "xdg location is skipped when absent")
	x := writeFile(t, filepath.Join(xdg, "cardsync", "config.toml"), sample)
	assert.Equal(t, x, Locate(""))

	t.Setenv("CARDSYNC_CONFIG", "/from/env.toml")
	assert.Equal(t, "/from/env.toml", Locate(""))
	assert.Equal(t, "/explicit.toml", Locate("/explicit.toml"))
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/alice")
	assert.Equal(t, "/home/alice/contacts", expandHome("~/contacts"))
	assert.Equal(t, "/home/alice", expandHome("~"))
	assert.Equal(t, "~bob/x", expandHome("~bob/x"))
	assert.Equal(t, "/abs", expandHome("/abs"))
}
