package obstacledb

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/prediction/internal/obstacle"
	"github.com/banshee-data/prediction/internal/perception"
)

// migrationsDir locates the repo migrations from this package.
const migrationsDir = "../../migrations"

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "features.db")
	db, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.MigrateUp(migrationsDir))
	return db
}

func sampleFeature(id int, ts float64) obstacle.Feature {
	return obstacle.Feature{
		ID:               id,
		Timestamp:        ts,
		Position:         obstacle.Vector3{X: 1, Y: 2, Z: 0},
		Velocity:         obstacle.Vector3{X: 3, Y: 4, Z: 0},
		Acceleration:     obstacle.Vector3{X: 0.5, Y: 0, Z: 0},
		Speed:            5,
		VelocityHeading:  0.9273,
		AccelerationNorm: 0.5,
		Theta:            0.1,
	}
}

func TestMigrateUp(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := db.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.GreaterOrEqual(t, version, uint(1))

	// Running again is a no-op.
	require.NoError(t, db.MigrateUp(migrationsDir))
}

func TestInsertRunGeneratesID(t *testing.T) {
	db := setupTestDB(t)
	store := NewFeatureStore(db)

	run := &ReplayRun{Source: "observations.jsonl"}
	require.NoError(t, store.InsertRun(run))

	assert.NotEmpty(t, run.RunID, "missing run id should be generated")
	assert.NotZero(t, run.CreatedAt)

	got, err := store.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.Source, got.Source)
	assert.Equal(t, run.CreatedAt, got.CreatedAt)
}

func TestFeatureHistoryRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	store := NewFeatureStore(db)

	run := &ReplayRun{Source: "test"}
	require.NoError(t, store.InsertRun(run))

	// Insert in timestamp order; history reads come back newest first.
	for i := 1; i <= 4; i++ {
		f := sampleFeature(9, float64(i))
		require.NoError(t, store.InsertFeature(run.RunID, perception.TypeVehicle, f))
	}

	history, err := store.GetHistory(run.RunID, 9, 0)
	require.NoError(t, err)
	require.Len(t, history, 4)
	for i := 0; i < len(history)-1; i++ {
		assert.Greater(t, history[i].Timestamp, history[i+1].Timestamp)
	}

	// Field round-trip on the newest feature
	f := history[0]
	assert.Equal(t, 9, f.ID)
	assert.Equal(t, 4.0, f.Timestamp)
	assert.Equal(t, obstacle.Vector3{X: 3, Y: 4, Z: 0}, f.Velocity)
	assert.Equal(t, 5.0, f.Speed)
	assert.Equal(t, 0.9273, f.VelocityHeading)

	// Limit caps the result from the newest end
	limited, err := store.GetHistory(run.RunID, 9, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, 4.0, limited[0].Timestamp)
	assert.Equal(t, 3.0, limited[1].Timestamp)
}

func TestGetHistoryEmpty(t *testing.T) {
	db := setupTestDB(t)
	store := NewFeatureStore(db)

	history, err := store.GetHistory("no-such-run", 1, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestListObstacles(t *testing.T) {
	db := setupTestDB(t)
	store := NewFeatureStore(db)

	run := &ReplayRun{Source: "test"}
	require.NoError(t, store.InsertRun(run))

	require.NoError(t, store.InsertFeature(run.RunID, perception.TypeVehicle, sampleFeature(2, 1.0)))
	require.NoError(t, store.InsertFeature(run.RunID, perception.TypeVehicle, sampleFeature(2, 2.0)))
	require.NoError(t, store.InsertFeature(run.RunID, perception.TypePedestrian, sampleFeature(5, 1.5)))

	summaries, err := store.ListObstacles(run.RunID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, 2, summaries[0].ObstacleID)
	assert.Equal(t, perception.TypeVehicle, summaries[0].ObstacleType)
	assert.Equal(t, 2, summaries[0].FeatureCount)
	assert.Equal(t, 1.0, summaries[0].FirstTS)
	assert.Equal(t, 2.0, summaries[0].LastTS)

	assert.Equal(t, 5, summaries[1].ObstacleID)
	assert.Equal(t, perception.TypePedestrian, summaries[1].ObstacleType)
	assert.Equal(t, 1, summaries[1].FeatureCount)
}

func TestListRuns(t *testing.T) {
	db := setupTestDB(t)
	store := NewFeatureStore(db)

	first := &ReplayRun{Source: "a", CreatedAt: 100}
	second := &ReplayRun{Source: "b", CreatedAt: 200}
	require.NoError(t, store.InsertRun(first))
	require.NoError(t, store.InsertRun(second))

	runs, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].Source, "newest run first")
	assert.Equal(t, "a", runs[1].Source)
}

func TestRetryOnBusy(t *testing.T) {
	t.Run("passes through success", func(t *testing.T) {
		calls := 0
		err := retryOnBusy(func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries busy errors", func(t *testing.T) {
		calls := 0
		err := retryOnBusy(func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked (5) (SQLITE_BUSY)")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		err := retryOnBusy(func() error {
			calls++
			return errors.New("constraint failed")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
