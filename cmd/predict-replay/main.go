// Command predict-replay feeds a recorded perception observation log
// through the obstacle ingestion pipeline, persists the accepted
// features to SQLite and optionally renders a kinematics report for
// one obstacle.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/prediction/internal/config"
	"github.com/banshee-data/prediction/internal/container"
	"github.com/banshee-data/prediction/internal/obstacle"
	"github.com/banshee-data/prediction/internal/obstacledb"
	"github.com/banshee-data/prediction/internal/perception"
	"github.com/banshee-data/prediction/internal/report"
	"github.com/banshee-data/prediction/internal/units"
	"github.com/banshee-data/prediction/internal/version"
)

var (
	configPath     = flag.String("config", "", "Path to tuning config JSON (defaults applied when empty)")
	inputPath      = flag.String("input", "", "Path to JSON-lines observation log (required)")
	dbPath         = flag.String("db", "features.db", "Path to the feature database")
	migrationsDir  = flag.String("migrations", "migrations", "Path to the migrations directory")
	reportPath     = flag.String("report", "", "Write an HTML kinematics report to this path")
	reportObstacle = flag.Int("report-obstacle", -1, "Obstacle id to report on (default: obstacle with the longest history)")
	speedUnits     = flag.String("units", units.MPS, "Speed units for the report: "+units.GetValidUnitsString())
	showVersion    = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("predict-replay %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *inputPath == "" {
		log.Fatal("-input is required")
	}
	if !units.IsValid(*speedUnits) {
		log.Fatalf("invalid -units %q, valid: %s", *speedUnits, units.GetValidUnitsString())
	}

	var tuning *config.TuningConfig
	if *configPath != "" {
		cfg, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("load tuning config: %v", err)
		}
		tuning = cfg
	} else {
		tuning = config.EmptyTuningConfig()
	}

	if err := run(tuning); err != nil {
		log.Fatal(err)
	}
}

func run(tuning *config.TuningConfig) error {
	observations, err := perception.ReadLogFile(*inputPath)
	if err != nil {
		return err
	}
	log.Printf("loaded %d observations from %s", len(observations), *inputPath)

	db, err := obstacledb.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.MigrateUp(*migrationsDir); err != nil {
		return err
	}

	store := obstacledb.NewFeatureStore(db)
	replayRun := &obstacledb.ReplayRun{Source: *inputPath}
	if err := store.InsertRun(replayRun); err != nil {
		return fmt.Errorf("insert replay run: %w", err)
	}
	log.Printf("replay run %s", replayRun.RunID)

	obstacles := container.New(tuning)
	outcomes := make(map[obstacle.InsertResult]int)

	for i, obs := range observations {
		// The log line position stands in for arrival time when the
		// observation carries no timestamp of its own.
		ts := float64(i)
		if obs.Timestamp != nil && *obs.Timestamp > 0 {
			ts = *obs.Timestamp
		}

		result := obstacles.Insert(obs, ts)
		outcomes[result]++
		if result != obstacle.Accepted {
			continue
		}

		o := obstacles.Get(*obs.ID)
		if err := store.InsertFeature(replayRun.RunID, o.Type(), o.LatestFeature()); err != nil {
			return fmt.Errorf("persist feature for obstacle %d: %w", *obs.ID, err)
		}
	}

	for result, count := range outcomes {
		log.Printf("  %s: %d", result, count)
	}
	log.Printf("tracked %d obstacles", obstacles.Len())

	if *reportPath == "" {
		return nil
	}
	return writeReport(store, replayRun.RunID)
}

func writeReport(store *obstacledb.FeatureStore, runID string) error {
	id := *reportObstacle
	if id < 0 {
		summaries, err := store.ListObstacles(runID)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			return fmt.Errorf("no obstacles stored for run %s", runID)
		}
		best := summaries[0]
		for _, s := range summaries[1:] {
			if s.FeatureCount > best.FeatureCount {
				best = s
			}
		}
		id = best.ObstacleID
	}

	history, err := store.GetHistory(runID, id, 0)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return fmt.Errorf("no features stored for obstacle %d in run %s", id, runID)
	}

	options := report.Options{
		Title:      fmt.Sprintf("Obstacle %d", id),
		SpeedUnits: *speedUnits,
	}
	if err := report.RenderFile(*reportPath, history, options); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "report written to %s\n", *reportPath)
	return nil
}
