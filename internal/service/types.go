package service

import (
	"context"
	"time"

	"wdlsync/internal/persistence"
	"wdlsync/internal/wdl"
)

// Store is the persisted job-header state the syncer diffs against.
// Implemented by persistence.SQLiteStore.
type Store interface {
	GetJobHeader(ctx context.Context, jobID string) (persistence.JobHeaderRecord, bool, error)
	UpsertJobHeader(ctx context.Context, rec persistence.JobHeaderRecord) error
}

// APIClient is the slice of the WDL client the syncer needs.
type APIClient interface {
	ListJobHeaders(ctx context.Context) ([]wdl.JobHeader, error)
	FetchPerSecData(ctx context.Context, jobID string) (string, error)
}

// RunResult summarizes one sync run.
type RunResult struct {
	RunID      string
	Staged     int
	Downloaded int
	Failed     int
	Duration   time.Duration
}
