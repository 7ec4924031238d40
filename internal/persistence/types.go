package persistence

import "time"

// JobHeaderRecord tracks the last observed modification time of a job. One
// row per job id; rows are upserted when a newer modification time is seen
// and are never deleted by the sync flow.
type JobHeaderRecord struct {
	JobID        string
	ModifiedUTC  time.Time
	DownloadedAt time.Time
}
