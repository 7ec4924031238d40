package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"wdlsync/internal/config"
	"wdlsync/internal/persec"
	"wdlsync/internal/persistence"
	"wdlsync/internal/wdl"
	"wdlsync/pkg/file"
	"wdlsync/pkg/icron"
	"wdlsync/pkg/log"
)

// SyncService runs the fetch-compare-download workflow: stage every job
// whose remote modification time moved past the stored one, then download
// each staged job's per-second data to CSV files.
type SyncService struct {
	cfg    config.Config
	client APIClient
	store  Store
	cron   *cron.Cron
}

func NewSyncService(cfg config.Config, client APIClient, store Store) *SyncService {
	return &SyncService{
		cfg:    cfg,
		client: client,
		store:  store,
	}
}

// NewRunnableSyncService wires a SyncService to a cron runner for
// scheduled mode.
func NewRunnableSyncService(cfg config.Config, client APIClient, store Store, cron *cron.Cron) *SyncService {
	s := NewSyncService(cfg, client, store)
	s.cron = cron
	return s
}

// Stage lists the remote job directory and returns the jobs to download.
// A job is staged iff no record exists locally or the remote modification
// time strictly exceeds the stored one; staged jobs have their timestamp
// upserted immediately.
func (s *SyncService) Stage(ctx context.Context) ([]wdl.JobHeader, error) {
	headers, err := s.client.ListJobHeaders(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("Fetched %d job headers", len(headers))

	staged := make([]wdl.JobHeader, 0)
	for _, header := range headers {
		if header.JobID == "" {
			log.Warn("Skipping job header without jobId (well %q)", header.WellName)
			continue
		}
		existing, found, err := s.store.GetJobHeader(ctx, header.JobID)
		if err != nil {
			return nil, fmt.Errorf("look up job %s: %w", header.JobID, err)
		}
		if found && !header.ModifiedUTC.After(existing.ModifiedUTC) {
			continue
		}

		if err := s.store.UpsertJobHeader(ctx, persistence.JobHeaderRecord{
			JobID:        header.JobID,
			ModifiedUTC:  header.ModifiedUTC.Time,
			DownloadedAt: existing.DownloadedAt,
		}); err != nil {
			return nil, fmt.Errorf("upsert job %s: %w", header.JobID, err)
		}
		staged = append(staged, header)
	}

	log.Info("Staged %d of %d jobs for download", len(staged), len(headers))
	return staged, nil
}

// Download fetches the per-second data of each staged job sequentially and
// writes the enabled CSV flavors into the output directory. A failing job is
// skipped, not fatal; failures are aggregated and returned after the batch.
func (s *SyncService) Download(ctx context.Context, runID string, staged []wdl.JobHeader) (int, error) {
	if len(staged) == 0 {
		return 0, nil
	}
	if err := file.EnsureDir(s.cfg.Sync.OutputDir); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}

	pacing := time.Duration(s.cfg.API.RetryDelay) * time.Second
	downloaded := 0
	var result *multierror.Error

	for i, header := range staged {
		// The API is rate limited; pace calls after the first one.
		if i > 0 {
			if err := sleepContext(ctx, pacing); err != nil {
				return downloaded, multierror.Append(result, err).ErrorOrNil()
			}
		}

		if err := s.downloadJob(ctx, header); err != nil {
			log.Error("[RUN %s] Job %s failed: %v", runID, header.JobID, err)
			result = multierror.Append(result, fmt.Errorf("job %s: %w", header.JobID, err))
			continue
		}
		log.Info("[RUN %s] Downloaded job %s (well %q)", runID, header.JobID, header.WellName)
		downloaded++
	}

	return downloaded, result.ErrorOrNil()
}

func (s *SyncService) downloadJob(ctx context.Context, header wdl.JobHeader) error {
	payload, err := s.client.FetchPerSecData(ctx, header.JobID)
	if err != nil {
		return err
	}

	outDir := s.cfg.Sync.OutputDir
	if s.cfg.Sync.SaveRaw {
		if err := persec.WriteRaw(filepath.Join(outDir, persec.RawFilename(header.JobID)), payload); err != nil {
			return err
		}
	}
	if s.cfg.Sync.SaveFormatted {
		if err := persec.WriteFormatted(filepath.Join(outDir, persec.FormattedFilename(header.JobID)), payload); err != nil {
			return err
		}
	}
	if s.cfg.Sync.SaveUnits {
		if err := persec.WriteUnits(filepath.Join(outDir, persec.UnitsFilename(header.JobID)), payload); err != nil {
			return err
		}
	}

	return s.store.UpsertJobHeader(ctx, persistence.JobHeaderRecord{
		JobID:        header.JobID,
		ModifiedUTC:  header.ModifiedUTC.Time,
		DownloadedAt: time.Now().UTC(),
	})
}

// Run executes one full sync: stage then download.
func (s *SyncService) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.New().String()
	start := time.Now()
	log.Info("[RUN %s] Starting sync", runID)

	staged, err := s.Stage(ctx)
	if err != nil {
		return nil, fmt.Errorf("stage jobs: %w", err)
	}

	downloaded, downloadErr := s.Download(ctx, runID, staged)

	result := &RunResult{
		RunID:      runID,
		Staged:     len(staged),
		Downloaded: downloaded,
		Failed:     len(staged) - downloaded,
		Duration:   time.Since(start),
	}
	log.Info("[RUN %s] Sync finished: staged=%d downloaded=%d failed=%d duration=%s",
		runID, result.Staged, result.Downloaded, result.Failed, result.Duration)

	if written, err := file.FindRecentAfter(s.cfg.Sync.OutputDir, start); err == nil {
		for _, path := range written {
			log.Debug("[RUN %s] Wrote %s", runID, path)
		}
	}

	return result, downloadErr
}

var singleflightGroup singleflight.Group

// Schedule registers Run on the configured cron expression. Overlapping
// triggers collapse into the in-flight run.
func (s *SyncService) Schedule(ctx context.Context) error {
	if s.cron == nil {
		return fmt.Errorf("cron runner is not configured")
	}

	cronExpr := s.cfg.Sync.CronExpr
	if info, err := icron.GetTriggerInfo(cronExpr, time.Now()); err == nil {
		log.Info("Scheduling sync with %q, next trigger at %s", cronExpr, info.Next)
	}

	runFunc := func() {
		_, _, _ = singleflightGroup.Do("sync", func() (any, error) {
			if _, err := s.Run(ctx); err != nil {
				log.Error("Scheduled sync failed: %v", err)
			}
			return nil, nil
		})
	}
	_, err := s.cron.AddFunc(cronExpr, runFunc)
	return err
}

// sleepContext waits for d or until ctx is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
