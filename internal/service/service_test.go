package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wdlsync/internal/config"
	"wdlsync/internal/persistence"
	"wdlsync/internal/wdl"
)

type fakeAPI struct {
	mux     *http.ServeMux
	headers []map[string]any
	persec  map[string]string
	broken  map[string]int // jobID -> status code to fail with
}

func newFakeAPI() *fakeAPI {
	api := &fakeAPI{
		persec: map[string]string{},
		broken: map[string]int{},
	}
	api.mux = http.NewServeMux()
	api.mux.HandleFunc("/jobheaders", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.headers)
	})
	api.mux.HandleFunc("/persecdata/", func(w http.ResponseWriter, r *http.Request) {
		jobID := filepath.Base(r.URL.Path)
		if status, ok := api.broken[jobID]; ok {
			w.WriteHeader(status)
			return
		}
		payload, ok := api.persec[jobID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(payload))
	})
	return api
}

func (a *fakeAPI) addJob(jobID, modifiedUTC string) {
	a.headers = append(a.headers, map[string]any{
		"jobId":       jobID,
		"wellName":    "Well " + jobID,
		"modifiedUtc": modifiedUTC,
	})
	a.persec[jobID] = "JOB TIME,SLURRY RATE\n(datetime),(bpm)\n06/17/18 04:15:08,0.48\n"
}

func (a *fakeAPI) setModified(jobID, modifiedUTC string) {
	for _, h := range a.headers {
		if h["jobId"] == jobID {
			h["modifiedUtc"] = modifiedUTC
		}
	}
}

func newTestService(t *testing.T, api *fakeAPI) (*SyncService, *persistence.SQLiteStore, string) {
	t.Helper()

	server := httptest.NewServer(api.mux)
	t.Cleanup(server.Close)

	store, err := persistence.NewSQLiteStore(filepath.Join(t.TempDir(), "wdl-api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	client, err := wdl.NewClient(&wdl.Config{
		APIKey:      "test-key",
		APIURL:      server.URL,
		Timeout:     5,
		MaxAttempts: 1,
		RetryDelay:  0,
	})
	require.NoError(t, err)

	outDir := t.TempDir()
	cfg := config.Config{
		API: config.APIConfig{RetryDelay: 0},
		Sync: config.SyncConfig{
			OutputDir:     outDir,
			SaveRaw:       true,
			SaveFormatted: true,
			SaveUnits:     true,
		},
	}

	return NewSyncService(cfg, client, store), store, outDir
}

func TestRunDownloadsNewJobs(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.addJob("job-1", "2019-01-01T00:00:00")
	api.addJob("job-2", "2019-01-02T00:00:00")

	svc, store, outDir := newTestService(t, api)
	ctx := context.Background()

	result, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Staged)
	assert.Equal(t, 2, result.Downloaded)
	assert.Equal(t, 0, result.Failed)
	assert.NotEmpty(t, result.RunID)

	for _, jobID := range []string{"job-1", "job-2"} {
		for _, name := range []string{
			fmt.Sprintf("original_%s.csv", jobID),
			fmt.Sprintf("formatted_%s.csv", jobID),
			fmt.Sprintf("units_%s.csv", jobID),
		} {
			_, err := os.Stat(filepath.Join(outDir, name))
			assert.NoError(t, err, name)
		}
	}

	rec, ok, err := store.GetJobHeader(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.ModifiedUTC.Equal(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, rec.DownloadedAt.IsZero())
}

func TestSecondRunWithoutChangesStagesNothing(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.addJob("job-1", "2019-01-01T00:00:00")

	svc, _, _ := newTestService(t, api)
	ctx := context.Background()

	first, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Downloaded)

	second, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Staged)
	assert.Equal(t, 0, second.Downloaded)
}

func TestStageOnlyNewerTimestamps(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.addJob("job-1", "2019-01-01T00:00:00")

	svc, store, _ := newTestService(t, api)
	ctx := context.Background()

	_, err := svc.Run(ctx)
	require.NoError(t, err)

	// Equal timestamp: excluded.
	staged, err := svc.Stage(ctx)
	require.NoError(t, err)
	assert.Empty(t, staged)

	// Newer timestamp: staged and the stored value updated.
	api.setModified("job-1", "2019-06-01T12:00:00")
	staged, err = svc.Stage(ctx)
	require.NoError(t, err)
	require.Len(t, staged, 1)
	assert.Equal(t, "job-1", staged[0].JobID)

	rec, ok, err := store.GetJobHeader(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.ModifiedUTC.Equal(time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC)))
}

func TestOlderRemoteTimestampNotStaged(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.addJob("job-1", "2019-06-01T00:00:00")

	svc, _, _ := newTestService(t, api)
	ctx := context.Background()

	_, err := svc.Run(ctx)
	require.NoError(t, err)

	api.setModified("job-1", "2019-01-01T00:00:00")
	staged, err := svc.Stage(ctx)
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestDownloadSkipsFailingJob(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.addJob("job-1", "2019-01-01T00:00:00")
	api.addJob("job-2", "2019-01-02T00:00:00")
	api.broken["job-1"] = http.StatusBadRequest

	svc, _, outDir := newTestService(t, api)
	ctx := context.Background()

	result, err := svc.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job-1")
	assert.Equal(t, 2, result.Staged)
	assert.Equal(t, 1, result.Downloaded)
	assert.Equal(t, 1, result.Failed)

	// The healthy job still produced its files.
	_, statErr := os.Stat(filepath.Join(outDir, "original_job-2.csv"))
	assert.NoError(t, statErr)
}

func TestFormattedOutputPreservesRowOrder(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.addJob("job-1", "2019-01-01T00:00:00")
	api.persec["job-1"] = "JOB TIME,SLURRY RATE\n(datetime),(bpm)\n" +
		"06/17/18 04:15:08,0.48\n" +
		"06/17/18 04:15:09,0.49\n" +
		"06/17/18 04:15:10,0.50\n"

	svc, _, outDir := newTestService(t, api)
	ctx := context.Background()

	_, err := svc.Run(ctx)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "formatted_job-1.csv"))
	require.NoError(t, err)
	assert.Equal(t, "job_time,slurry_rate\n"+
		"2018-06-17 04:15:08,0.48\n"+
		"2018-06-17 04:15:09,0.49\n"+
		"2018-06-17 04:15:10,0.50\n", string(data))
}

func TestScheduleWithoutCronFails(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	svc, _, _ := newTestService(t, api)
	assert.Error(t, svc.Schedule(context.Background()))
}
