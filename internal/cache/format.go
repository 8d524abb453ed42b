package cache

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Marker is the first line of every cache file.
const Marker = "#cardsync-cache v1"

const sep = ";"

var (
	ErrUnsupportedFormat = errors.New("unsupported cache format")

	ErrNameMissing       = errors.New("cache entry: name missing")
	ErrETagMissing       = errors.New("cache entry: etag missing")
	ErrLocalDateMissing  = errors.New("cache entry: local modification time missing")
	ErrRemoteDateMissing = errors.New("cache entry: remote modification time missing")
	ErrExtraField        = errors.New("cache entry: unexpected extra field")
)

// ParseError reports a field whose value could not be decoded.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cache entry: parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LineError is a skipped cache line.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e LineError) Unwrap() error { return e.Err }

var (
	escaper   = strings.NewReplacer("%", "%25", ";", "%3B", "\r", "%0D", "\n", "%0A")
	unescaper = strings.NewReplacer("%3B", ";", "%0D", "\r", "%0A", "\n", "%25", "%")
)

// Marshal renders the cache with entries sorted by name.
func (c *Cache) Marshal() []byte {
	names := make([]string, 0, len(c.Entries))
	for name := range c.Entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(Marker)
	b.WriteByte('\n')
	b.WriteString(escaper.Replace(c.ChangeToken))
	b.WriteByte('\n')
	for _, name := range names {
		b.WriteString(FormatEntry(c.Entries[name]))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func FormatEntry(e Entry) string {
	return strings.Join([]string{
		escaper.Replace(e.Name),
		escaper.Replace(e.ETag),
		e.LocalModifiedAt.UTC().Format(time.RFC3339Nano),
		e.RemoteModifiedAt.UTC().Format(time.RFC3339Nano),
	}, sep)
}

// Parse decodes a cache file. Entry lines that fail to decode are skipped
// and returned as LineErrors; only a wrong marker fails the whole file.
func Parse(data []byte) (*Cache, []LineError, error) {
	lines := strings.Split(string(data), "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	if lines[0] != Marker {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, truncate(lines[0], 40))
	}

	c := New("")
	if len(lines) > 1 {
		c.ChangeToken = unescaper.Replace(lines[1])
	}

	var skipped []LineError
	for i := 2; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		e, err := ParseEntry(lines[i])
		if err != nil {
			skipped = append(skipped, LineError{Line: i + 1, Err: err})
			continue
		}
		c.Entries[e.Name] = e
	}
	return c, skipped, nil
}

// ParseEntry decodes one entry line.
func ParseEntry(line string) (Entry, error) {
	fields := strings.Split(line, sep)
	if len(fields) > 4 {
		return Entry{}, ErrExtraField
	}
	field := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	var e Entry
	if e.Name = unescaper.Replace(field(0)); e.Name == "" {
		return Entry{}, ErrNameMissing
	}
	if len(fields) < 2 {
		return Entry{}, ErrETagMissing
	}
	e.ETag = unescaper.Replace(fields[1])

	var err error
	if e.LocalModifiedAt, err = parseTime("local_modified_at", field(2), ErrLocalDateMissing); err != nil {
		return Entry{}, err
	}
	if e.RemoteModifiedAt, err = parseTime("remote_modified_at", field(3), ErrRemoteDateMissing); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func parseTime(name, v string, missing error) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, missing
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, &ParseError{Field: name, Value: v, Err: err}
	}
	return t.UTC(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
