package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	JournalNone     = "none"
	JournalSQLite   = "sqlite"
	JournalPostgres = "postgres"
)

type JournalConfig struct {
	Type string `toml:"type"`
	DSN  string `toml:"dsn"`
}

type Config struct {
	Host      string        `toml:"host"`
	Port      int           `toml:"port"`
	SSL       bool          `toml:"ssl"`
	Login     string        `toml:"login"`
	PasswdCmd string        `toml:"passwd-cmd"`
	SyncDir   string        `toml:"sync-dir"`
	LogLevel  string        `toml:"log-level"`
	Timeout   time.Duration `toml:"timeout"`
	Retries   int           `toml:"retries"`
	Journal   JournalConfig `toml:"journal"`

	// Path is the file the config was read from, if any.
	Path string `toml:"-"`
	// Unknown lists keys present in the file that no field consumed.
	Unknown []string `toml:"-"`
}

// minTimeout rejects bare integers, which TOML decodes as nanoseconds.
const minTimeout = 100 * time.Millisecond

func defaults() *Config {
	return &Config{
		SSL:      true,
		LogLevel: "info",
		Timeout:  30 * time.Second,
		Journal:  JournalConfig{Type: JournalSQLite},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Locate returns the config file to read. An explicit path or
// $CARDSYNC_CONFIG is returned as is; the conventional locations are
// returned only when they exist. It returns "" when nothing is found.
func Locate(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv("CARDSYNC_CONFIG"); p != "" {
		return p
	}
	var candidates []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "cardsync", "config.toml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".config", "cardsync", "config.toml"),
			filepath.Join(home, ".cardsyncrc"),
		)
	}
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

// Load reads the file at path, when non-empty, over the defaults and then
// applies environment overrides. It does not validate.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		cfg.Path = path
		for _, k := range md.Undecoded() {
			cfg.Unknown = append(cfg.Unknown, k.String())
		}
	}

	cfg.Host = getenv("CARDSYNC_HOST", cfg.Host)
	cfg.Login = getenv("CARDSYNC_LOGIN", cfg.Login)
	cfg.PasswdCmd = getenv("CARDSYNC_PASSWD_CMD", cfg.PasswdCmd)
	cfg.SyncDir = getenv("CARDSYNC_SYNC_DIR", cfg.SyncDir)
	cfg.LogLevel = getenv("CARDSYNC_LOG_LEVEL", cfg.LogLevel)
	if v := os.Getenv("CARDSYNC_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("CARDSYNC_PORT: %w", err)
		}
		cfg.Port = n
	}

	if cfg.Port == 0 {
		cfg.Port = 80
		if cfg.SSL {
			cfg.Port = 443
		}
	}
	cfg.SyncDir = expandHome(cfg.SyncDir)
	if cfg.Journal.Type == "" {
		cfg.Journal.Type = JournalSQLite
	}
	cfg.Journal.Type = strings.ToLower(cfg.Journal.Type)
	if cfg.Journal.Type == JournalSQLite {
		if cfg.Journal.DSN == "" && cfg.SyncDir != "" {
			cfg.Journal.DSN = filepath.Join(cfg.SyncDir, ".journal.db")
		}
		cfg.Journal.DSN = expandHome(cfg.Journal.DSN)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Login == "" {
		errs = append(errs, errors.New("login is required"))
	}
	if c.PasswdCmd == "" {
		errs = append(errs, errors.New("passwd-cmd is required"))
	}
	if c.SyncDir == "" {
		errs = append(errs, errors.New("sync-dir is required"))
	}
	if c.Timeout < minTimeout {
		errs = append(errs, fmt.Errorf("timeout %s is below %s; use a duration string such as \"30s\"", c.Timeout, minTimeout))
	}
	if c.Retries < 0 {
		errs = append(errs, errors.New("retries must not be negative"))
	}
	switch c.Journal.Type {
	case JournalNone:
	case JournalSQLite, JournalPostgres:
		if c.Journal.DSN == "" {
			errs = append(errs, fmt.Errorf("journal.dsn is required for %s", c.Journal.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown journal.type %q", c.Journal.Type))
	}
	return errors.Join(errs...)
}

// BaseURL is scheme://host:port.
func (c *Config) BaseURL() string {
	scheme := "http"
	if c.SSL {
		scheme = "https"
	}
	return scheme + "://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// URL resolves a server path against BaseURL. Absolute hrefs are returned
// unchanged.
func (c *Config) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL() + path
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
