// Package container aggregates tracked obstacles for one scene. It
// routes raw perception observations to the per-obstacle ingestion
// pipeline, creating obstacles on first sight and retiring them on
// request. Per-obstacle state is locked inside each Obstacle; the
// container only guards its own index.
package container

import (
	"sync"

	"github.com/banshee-data/prediction/internal/config"
	"github.com/banshee-data/prediction/internal/monitoring"
	"github.com/banshee-data/prediction/internal/obstacle"
	"github.com/banshee-data/prediction/internal/perception"
)

// Obstacles indexes tracked obstacles by perception id.
type Obstacles struct {
	mu        sync.RWMutex
	obstacles map[int]*obstacle.Obstacle
	tuning    *config.TuningConfig
}

// New creates an empty container. A nil tuning config falls back to
// all defaults.
func New(tuning *config.TuningConfig) *Obstacles {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	return &Obstacles{
		obstacles: make(map[int]*obstacle.Obstacle),
		tuning:    tuning,
	}
}

// Insert routes one observation to the obstacle carrying its id,
// creating the obstacle first if the id is new. Observations without an
// id are dropped here: there is nothing to route them to.
func (c *Obstacles) Insert(obs perception.Observation, timestamp float64) obstacle.InsertResult {
	if obs.ID == nil {
		monitoring.Logf("container: dropping observation with no id at [%f]", timestamp)
		return obstacle.RejectedMissingID
	}
	id := *obs.ID

	c.mu.Lock()
	o, ok := c.obstacles[id]
	if !ok {
		if limit := c.tuning.GetMaxObstacles(); limit > 0 && len(c.obstacles) >= limit {
			monitoring.Logf("container: at capacity (%d), dropping new obstacle [%d]", limit, id)
			c.mu.Unlock()
			return obstacle.RejectedCapacity
		}
		o = obstacle.New(c.tuning)
		c.obstacles[id] = o
	}
	c.mu.Unlock()

	return o.Insert(obs, timestamp)
}

// Get returns the obstacle for an id, or nil if it is not tracked.
func (c *Obstacles) Get(id int) *obstacle.Obstacle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.obstacles[id]
}

// IDs returns the ids of all tracked obstacles.
func (c *Obstacles) IDs() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]int, 0, len(c.obstacles))
	for id := range c.obstacles {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of tracked obstacles.
func (c *Obstacles) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.obstacles)
}

// Retire removes an obstacle from the index and clears its state.
// Retiring an untracked id is a no-op.
func (c *Obstacles) Retire(id int) {
	c.mu.Lock()
	o, ok := c.obstacles[id]
	if ok {
		delete(c.obstacles, id)
	}
	c.mu.Unlock()

	if ok {
		o.Retire()
	}
}

// Clear retires every tracked obstacle.
func (c *Obstacles) Clear() {
	c.mu.Lock()
	retired := make([]*obstacle.Obstacle, 0, len(c.obstacles))
	for _, o := range c.obstacles {
		retired = append(retired, o)
	}
	c.obstacles = make(map[int]*obstacle.Obstacle)
	c.mu.Unlock()

	for _, o := range retired {
		o.Retire()
	}
}
