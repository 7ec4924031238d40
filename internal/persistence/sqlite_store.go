package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore persists job header state in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *SQLiteStore) LoadJobHeaders(ctx context.Context) ([]JobHeaderRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT job_id, modified_utc, downloaded_at
		 FROM job_headers
		 ORDER BY job_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]JobHeaderRecord, 0)
	for rows.Next() {
		var item JobHeaderRecord
		var downloadedAt sql.NullTime
		if err := rows.Scan(&item.JobID, &item.ModifiedUTC, &downloadedAt); err != nil {
			return nil, err
		}
		if downloadedAt.Valid {
			item.DownloadedAt = downloadedAt.Time
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) GetJobHeader(ctx context.Context, jobID string) (JobHeaderRecord, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT job_id, modified_utc, downloaded_at
		 FROM job_headers
		 WHERE job_id = ?`,
		jobID,
	)

	var ret JobHeaderRecord
	var downloadedAt sql.NullTime
	if err := row.Scan(&ret.JobID, &ret.ModifiedUTC, &downloadedAt); err != nil {
		if err == sql.ErrNoRows {
			return JobHeaderRecord{}, false, nil
		}
		return JobHeaderRecord{}, false, err
	}
	if downloadedAt.Valid {
		ret.DownloadedAt = downloadedAt.Time
	}
	return ret, true, nil
}

func (s *SQLiteStore) UpsertJobHeader(ctx context.Context, rec JobHeaderRecord) error {
	if rec.JobID == "" {
		return fmt.Errorf("job id is required")
	}
	var downloadedAt sql.NullTime
	if !rec.DownloadedAt.IsZero() {
		downloadedAt = sql.NullTime{Time: rec.DownloadedAt.UTC(), Valid: true}
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO job_headers (job_id, modified_utc, downloaded_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET
			modified_utc=excluded.modified_utc,
			downloaded_at=excluded.downloaded_at`,
		rec.JobID,
		rec.ModifiedUTC.UTC(),
		downloadedAt,
	)
	return err
}

// DeleteJobHeader removes the record for jobID, forcing a re-download on the
// next sync. The sync flow itself never deletes records.
func (s *SQLiteStore) DeleteJobHeader(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM job_headers WHERE job_id = ?`, jobID)
	return err
}
