package obstacledb

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/prediction/internal/obstacle"
	"github.com/banshee-data/prediction/internal/perception"
)

// ReplayRun identifies one pass over an observation log.
type ReplayRun struct {
	RunID     string `json:"run_id"`
	Source    string `json:"source"`
	CreatedAt int64  `json:"created_at"` // unix nanos
}

// ObstacleSummary describes one obstacle's stored history within a run.
type ObstacleSummary struct {
	ObstacleID   int                     `json:"obstacle_id"`
	ObstacleType perception.ObstacleType `json:"obstacle_type"`
	FeatureCount int                     `json:"feature_count"`
	FirstTS      float64                 `json:"first_ts"`
	LastTS       float64                 `json:"last_ts"`
}

// FeatureStore provides persistence for replay runs and their features.
type FeatureStore struct {
	db *sql.DB
}

// NewFeatureStore creates a FeatureStore over an open database.
func NewFeatureStore(db *DB) *FeatureStore {
	return &FeatureStore{db: db.DB}
}

// InsertRun persists a new replay run. If RunID is empty, a UUID is generated.
func (s *FeatureStore) InsertRun(run *ReplayRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO replay_runs (run_id, source, created_at)
			VALUES (?, ?, ?)`,
			run.RunID, run.Source, run.CreatedAt,
		)
		return err
	})
}

// InsertFeature persists one accepted feature for an obstacle in a run.
func (s *FeatureStore) InsertFeature(runID string, obstacleType perception.ObstacleType, f obstacle.Feature) error {
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO obstacle_features (
				run_id, obstacle_id, obstacle_type, ts,
				pos_x, pos_y, pos_z,
				vel_x, vel_y, vel_z,
				acc_x, acc_y, acc_z,
				speed, velocity_heading, acceleration_norm, theta
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, f.ID, string(obstacleType), f.Timestamp,
			f.Position.X, f.Position.Y, f.Position.Z,
			f.Velocity.X, f.Velocity.Y, f.Velocity.Z,
			f.Acceleration.X, f.Acceleration.Y, f.Acceleration.Z,
			f.Speed, f.VelocityHeading, f.AccelerationNorm, f.Theta,
		)
		return err
	})
}

// GetHistory returns the stored features for one obstacle in a run,
// newest first, mirroring the in-memory history ordering. A zero limit
// returns the full history.
func (s *FeatureStore) GetHistory(runID string, obstacleID int, limit int) ([]obstacle.Feature, error) {
	query := `
		SELECT obstacle_id, ts,
		       pos_x, pos_y, pos_z,
		       vel_x, vel_y, vel_z,
		       acc_x, acc_y, acc_z,
		       speed, velocity_heading, acceleration_norm, theta
		FROM obstacle_features
		WHERE run_id = ? AND obstacle_id = ?
		ORDER BY ts DESC`
	args := []interface{}{runID, obstacleID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	var features []obstacle.Feature
	for rows.Next() {
		var f obstacle.Feature
		if err := rows.Scan(
			&f.ID, &f.Timestamp,
			&f.Position.X, &f.Position.Y, &f.Position.Z,
			&f.Velocity.X, &f.Velocity.Y, &f.Velocity.Z,
			&f.Acceleration.X, &f.Acceleration.Y, &f.Acceleration.Z,
			&f.Speed, &f.VelocityHeading, &f.AccelerationNorm, &f.Theta,
		); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		features = append(features, f)
	}
	return features, rows.Err()
}

// ListObstacles summarises the obstacles stored for a run, ordered by id.
func (s *FeatureStore) ListObstacles(runID string) ([]*ObstacleSummary, error) {
	rows, err := s.db.Query(`
		SELECT obstacle_id, obstacle_type, COUNT(*), MIN(ts), MAX(ts)
		FROM obstacle_features
		WHERE run_id = ?
		GROUP BY obstacle_id
		ORDER BY obstacle_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query obstacle summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*ObstacleSummary
	for rows.Next() {
		var summary ObstacleSummary
		var typ string
		if err := rows.Scan(&summary.ObstacleID, &typ, &summary.FeatureCount, &summary.FirstTS, &summary.LastTS); err != nil {
			return nil, fmt.Errorf("scan obstacle summary: %w", err)
		}
		summary.ObstacleType = perception.ObstacleType(typ)
		summaries = append(summaries, &summary)
	}
	return summaries, rows.Err()
}

// GetRun returns a stored run by id.
func (s *FeatureStore) GetRun(runID string) (*ReplayRun, error) {
	var run ReplayRun
	err := s.db.QueryRow(`
		SELECT run_id, source, created_at
		FROM replay_runs
		WHERE run_id = ?`, runID).Scan(&run.RunID, &run.Source, &run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns returns all stored runs, newest first.
func (s *FeatureStore) ListRuns() ([]*ReplayRun, error) {
	rows, err := s.db.Query(`
		SELECT run_id, source, created_at
		FROM replay_runs
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*ReplayRun
	for rows.Next() {
		var run ReplayRun
		if err := rows.Scan(&run.RunID, &run.Source, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// retryOnBusy retries a database operation a few times when SQLite
// reports a busy/locked error. Writes from concurrent replays contend
// briefly even with WAL enabled.
func retryOnBusy(op func() error) error {
	const maxAttempts = 5
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		msg := err.Error()
		if !strings.Contains(msg, "SQLITE_BUSY") && !strings.Contains(msg, "database is locked") {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return err
}
