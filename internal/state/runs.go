package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/penny/internal/orchestrator"
)

// Run statuses stored alongside checkpoints.
const (
	RunStatusActive   = "active"
	RunStatusFinished = "finished"
)

// RunInfo summarizes one stored run for listing.
type RunInfo struct {
	Key       string
	Request   string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RunStore persists run checkpoints as JSON blobs keyed by run id.
// It implements orchestrator.RunStore.
type RunStore struct {
	db *DB
}

// NewRunStore creates a RunStore over an open, migrated database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// SaveCheckpoint upserts the state under its run key. A run with a final
// answer is marked finished.
func (s *RunStore) SaveCheckpoint(key string, st *orchestrator.RunState) error {
	blob, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}

	status := RunStatusActive
	if st.FinalAnswer != "" {
		status = RunStatusFinished
	}
	now := formatTime(time.Now())

	_, err = s.db.Exec(`
		INSERT INTO runs (key, request, status, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			status = excluded.status,
			state = excluded.state,
			updated_at = excluded.updated_at
	`, key, st.OriginalRequest, status, string(blob), now, now)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", key, err)
	}
	return nil
}

// LoadCheckpoint returns the stored state for the key, or (nil, nil) when
// no checkpoint exists.
func (s *RunStore) LoadCheckpoint(key string) (*orchestrator.RunState, error) {
	var blob string
	err := s.db.QueryRow("SELECT state FROM runs WHERE key = ?", key).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", key, err)
	}

	var st orchestrator.RunState
	if err := json.Unmarshal([]byte(blob), &st); err != nil {
		return nil, fmt.Errorf("unmarshal run state %s: %w", key, err)
	}
	return &st, nil
}

// ListRuns returns stored runs, most recently updated first.
func (s *RunStore) ListRuns(limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT key, request, status, created_at, updated_at
		FROM runs ORDER BY updated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		var created, updated string
		if err := rows.Scan(&info.Key, &info.Request, &info.Status, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if info.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", info.Key, err)
		}
		if info.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, fmt.Errorf("parse updated_at for %s: %w", info.Key, err)
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// DeleteRun removes a stored run. Deleting an absent key is not an error.
func (s *RunStore) DeleteRun(key string) error {
	if _, err := s.db.Exec("DELETE FROM runs WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete run %s: %w", key, err)
	}
	return nil
}

// PurgeOldRuns deletes runs not updated within the given duration.
// Returns the number of runs deleted.
func (s *RunStore) PurgeOldRuns(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))
	result, err := s.db.Exec("DELETE FROM runs WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge old runs: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}
