// Package storage defines the sync journal, a history of completed runs.
package storage

import (
	"context"
	"time"
)

// Run is one completed sync.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Collection  string
	ChangeToken string
	RemoteCards int
	LocalCards  int
	CachedCards int
	Skipped     []Skipped
}

// Skipped is a remote member dropped during a run.
type Skipped struct {
	Href   string
	Reason string
}

type Journal interface {
	Close()
	RecordRun(ctx context.Context, r Run) error
	// ListRuns returns up to limit runs, most recent first. A limit <= 0
	// returns every run.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// Nop is a Journal that records nothing.
type Nop struct{}

func (Nop) Close() {}

func (Nop) RecordRun(context.Context, Run) error { return nil }

func (Nop) ListRuns(context.Context, int) ([]Run, error) { return nil, nil }
