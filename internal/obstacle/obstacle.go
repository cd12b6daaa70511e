// Package obstacle models a single tracked object observed repeatedly
// by a perception pipeline. Each raw observation is normalized into a
// Feature record and prepended to a most-recent-first history; derived
// kinematics (speed, heading, damped finite-difference acceleration)
// are computed during ingestion. All per-obstacle state is guarded by a
// per-instance mutex so independent obstacles never contend.
package obstacle

import (
	"fmt"
	"math"
	"sync"

	"github.com/banshee-data/prediction/internal/config"
	"github.com/banshee-data/prediction/internal/kalman"
	"github.com/banshee-data/prediction/internal/monitoring"
	"github.com/banshee-data/prediction/internal/perception"
)

// UnsetID is the sentinel identity of an obstacle that has not yet
// accepted its first observation.
const UnsetID = -1

// InsertResult reports the outcome of one ingestion attempt. Rejections
// never mutate the feature history. Identity resolution runs before
// classification, so a frame rejected for a missing classification can
// still have adopted its id into a previously unidentified obstacle.
type InsertResult int

const (
	Accepted InsertResult = iota
	RejectedStale
	RejectedMissingID
	RejectedIDMismatch
	RejectedMissingType
	// RejectedCapacity is reported by the container when a new obstacle
	// cannot be admitted; it never originates from Obstacle.Insert.
	RejectedCapacity
)

// String returns a short label for the result.
func (r InsertResult) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectedStale:
		return "rejected_stale"
	case RejectedMissingID:
		return "rejected_missing_id"
	case RejectedIDMismatch:
		return "rejected_id_mismatch"
	case RejectedMissingType:
		return "rejected_missing_type"
	case RejectedCapacity:
		return "rejected_capacity"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// Obstacle is one tracked physical object. It accumulates Feature
// records via Insert and owns the Kalman estimators consumed by the
// downstream motion-prediction stage.
type Obstacle struct {
	mu sync.Mutex

	id         int
	objectType perception.ObstacleType
	history    []Feature // front is the newest accepted feature

	motionTracker        *kalman.Filter
	motionTrackerEnabled bool
	laneTrackers         map[string]*kalman.Filter

	tuning *config.TuningConfig
}

// New constructs an empty obstacle: no identity, no history, a primary
// motion tracker, and no lane trackers. A nil tuning config falls back
// to all defaults.
func New(tuning *config.TuningConfig) *Obstacle {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	return &Obstacle{
		id:            UnsetID,
		objectType:    perception.TypeUnknownMovable,
		motionTracker: kalman.NewLaneTracker(),
		laneTrackers:  make(map[string]*kalman.Filter),
		tuning:        tuning,
	}
}

// ID returns the obstacle identity, or UnsetID before the first
// accepted frame.
func (o *Obstacle) ID() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.id
}

// Type returns the current classification, taken from the latest
// accepted frame.
func (o *Obstacle) Type() perception.ObstacleType {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.objectType
}

// Timestamp returns the timestamp of the latest accepted feature, or
// zero if the history is empty.
func (o *Obstacle) Timestamp() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.history) > 0 {
		return o.history[0].Timestamp
	}
	return 0.0
}

// HistorySize returns the number of retained features.
func (o *Obstacle) HistorySize() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.history)
}

// Feature returns a copy of the i-th feature; index 0 is the newest.
// Panics on an out-of-range index.
func (o *Obstacle) Feature(i int) Feature {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i < 0 || i >= len(o.history) {
		panic(fmt.Sprintf("obstacle [%d]: feature index %d out of range (history size %d)", o.id, i, len(o.history)))
	}
	return o.history[i]
}

// MutableFeature returns a pointer to the i-th feature; index 0 is the
// newest. Panics on an out-of-range index. The pointer stays valid
// until the next accepted frame; callers mutating it must coordinate
// with readers themselves.
func (o *Obstacle) MutableFeature(i int) *Feature {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i < 0 || i >= len(o.history) {
		panic(fmt.Sprintf("obstacle [%d]: feature index %d out of range (history size %d)", o.id, i, len(o.history)))
	}
	return &o.history[i]
}

// LatestFeature returns a copy of the newest feature. Panics if the
// history is empty.
func (o *Obstacle) LatestFeature() Feature {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.history) == 0 {
		panic(fmt.Sprintf("obstacle [%d]: latest feature requested on empty history", o.id))
	}
	return o.history[0]
}

// MutableLatestFeature returns a pointer to the newest feature. Panics
// if the history is empty.
func (o *Obstacle) MutableLatestFeature() *Feature {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.history) == 0 {
		panic(fmt.Sprintf("obstacle [%d]: latest feature requested on empty history", o.id))
	}
	return &o.history[0]
}

// History returns a copy of the full feature history, newest first.
func (o *Obstacle) History() []Feature {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Feature, len(o.history))
	copy(out, o.history)
	return out
}

// Insert ingests one raw observation with an externally supplied
// fallback timestamp (seconds). The whole pipeline runs under the
// obstacle lock; a rejected frame never extends the history.
func (o *Obstacle) Insert(obs perception.Observation, timestamp float64) InsertResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Staleness guard: only strictly newer frames extend the history.
	if len(o.history) > 0 && timestamp <= o.history[0].Timestamp {
		monitoring.Logf("obstacle [%d]: received an older frame [%f] than the most recent timestamp [%f]",
			o.id, timestamp, o.history[0].Timestamp)
		return RejectedStale
	}

	var feature Feature
	if result := o.setID(obs, &feature); result != Accepted {
		return result
	}
	if result := o.setType(obs); result != Accepted {
		return result
	}
	o.setTimestamp(obs, timestamp, &feature)
	o.setPosition(obs, &feature)
	o.setVelocity(obs, &feature)
	o.setAcceleration(&feature)
	o.setTheta(obs, &feature)

	o.prepend(feature)
	return Accepted
}

// setID resolves the obstacle identity from the observation. The first
// accepted frame adopts the observed id; later frames must match it.
func (o *Obstacle) setID(obs perception.Observation, feature *Feature) InsertResult {
	if obs.ID == nil {
		monitoring.Logf("obstacle [%d]: observation has no id", o.id)
		return RejectedMissingID
	}

	id := *obs.ID
	if o.id < 0 {
		o.id = id
		monitoring.Logf("obstacle set id [%d]", o.id)
	} else if o.id != id {
		monitoring.Logf("obstacle [%d]: mismatched id [%d] from perception", o.id, id)
		return RejectedIDMismatch
	}
	feature.ID = id
	return Accepted
}

// setType takes the classification from the latest frame.
func (o *Obstacle) setType(obs perception.Observation) InsertResult {
	if obs.Type == nil {
		monitoring.Logf("obstacle [%d]: observation has no type", o.id)
		return RejectedMissingType
	}
	o.objectType = *obs.Type
	return Accepted
}

// setTimestamp prefers the observation's own timestamp when present and
// positive, otherwise the externally supplied one.
func (o *Obstacle) setTimestamp(obs perception.Observation, timestamp float64, feature *Feature) {
	ts := timestamp
	if obs.Timestamp != nil && *obs.Timestamp > 0.0 {
		ts = *obs.Timestamp
	}
	feature.Timestamp = ts
}

// setPosition defaults each absent axis to zero independently.
func (o *Obstacle) setPosition(obs perception.Observation, feature *Feature) {
	feature.Position = extractVector(obs.Position)
}

// setVelocity defaults each absent axis to zero independently, then
// derives speed (3D norm) and velocity heading (2D, ignoring vz).
func (o *Obstacle) setVelocity(obs perception.Observation, feature *Feature) {
	v := extractVector(obs.Velocity)
	feature.Velocity = v
	feature.Speed = v.Norm()
	feature.VelocityHeading = math.Atan2(v.Y, v.X)
}

// setAcceleration estimates acceleration by damped finite differencing
// against the previous feature. With no history the estimate is zero.
// Each axis is damped by the sigmoid of the current velocity component
// so that small velocity deltas over small time deltas do not produce
// spurious spikes at low speed, then clamped into the configured range.
func (o *Obstacle) setAcceleration(feature *Feature) {
	accX := 0.0
	accY := 0.0
	accZ := 0.0

	if len(o.history) > 0 {
		currTS := feature.Timestamp
		prevTS := o.history[0].Timestamp

		currV := feature.Velocity
		prevV := o.history[0].Velocity

		if compareTimestamps(currTS, prevTS, o.tuning.GetTimestampEpsilon()) > 0 {
			sigma := o.tuning.GetDampingSigma()
			dampX := damp(currV.X, sigma)
			dampY := damp(currV.Y, sigma)
			dampZ := damp(currV.Z, sigma)

			dt := currTS - prevTS
			accX = (currV.X - prevV.X) / dt
			accY = (currV.Y - prevV.Y) / dt
			accZ = (currV.Z - prevV.Z) / dt

			minAcc := o.tuning.GetMinAcceleration()
			maxAcc := o.tuning.GetMaxAcceleration()
			accX = clamp(accX*dampX, minAcc, maxAcc)
			accY = clamp(accY*dampY, minAcc, maxAcc)
			accZ = clamp(accZ*dampZ, minAcc, maxAcc)
		}
	}

	feature.Acceleration = Vector3{X: accX, Y: accY, Z: accZ}
	feature.AccelerationNorm = feature.Acceleration.Norm()
}

// setTheta defaults the orientation to zero when absent.
func (o *Obstacle) setTheta(obs perception.Observation, feature *Feature) {
	if obs.Theta != nil {
		feature.Theta = *obs.Theta
	}
}

// prepend makes the feature the new front of the history and trims the
// tail when a history cap is configured.
func (o *Obstacle) prepend(feature Feature) {
	o.history = append(o.history, Feature{})
	copy(o.history[1:], o.history)
	o.history[0] = feature

	if limit := o.tuning.GetMaxHistorySize(); limit > 0 && len(o.history) > limit {
		o.history = o.history[:limit]
	}
}

// MotionTracker returns the primary motion estimator. The estimator is
// opaque to this package; downstream consumers drive it directly.
func (o *Obstacle) MotionTracker() *kalman.Filter {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.motionTracker
}

// MotionTrackerEnabled reports whether the primary estimator is in use.
func (o *Obstacle) MotionTrackerEnabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.motionTrackerEnabled
}

// SetMotionTrackerEnabled flags the primary estimator as in use.
func (o *Obstacle) SetMotionTrackerEnabled(enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.motionTrackerEnabled = enabled
}

// RegisterLaneTracker creates the estimator for a lane if one does not
// exist yet and returns it. Registration is idempotent.
func (o *Obstacle) RegisterLaneTracker(laneID string) *kalman.Filter {
	o.mu.Lock()
	defer o.mu.Unlock()
	if f, ok := o.laneTrackers[laneID]; ok {
		return f
	}
	f := kalman.NewLaneTracker()
	o.laneTrackers[laneID] = f
	return f
}

// LaneTracker returns the estimator for a previously registered lane.
// Panics if the lane was never registered: lookup never auto-creates.
func (o *Obstacle) LaneTracker(laneID string) *kalman.Filter {
	o.mu.Lock()
	defer o.mu.Unlock()
	f, ok := o.laneTrackers[laneID]
	if !ok {
		panic(fmt.Sprintf("obstacle [%d]: lane tracker %q not registered", o.id, laneID))
	}
	return f
}

// LaneTrackerIDs returns the registered lane identifiers.
func (o *Obstacle) LaneTrackerIDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.laneTrackers))
	for id := range o.laneTrackers {
		ids = append(ids, id)
	}
	return ids
}

// Retire clears the obstacle for disposal: history dropped, identity
// unset, classification reset to unknown-unmovable, estimators released.
func (o *Obstacle) Retire() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.id = UnsetID
	o.objectType = perception.TypeUnknownUnmovable
	o.history = nil
	o.motionTrackerEnabled = false
	o.laneTrackers = make(map[string]*kalman.Filter)
}

// extractVector defaults each absent axis of a raw point to zero,
// independently per axis.
func extractVector(p *perception.Point3D) Vector3 {
	var v Vector3
	if p == nil {
		return v
	}
	if p.X != nil {
		v.X = *p.X
	}
	if p.Y != nil {
		v.Y = *p.Y
	}
	if p.Z != nil {
		v.Z = *p.Z
	}
	return v
}

// damp is a sigmoid-shaped multiplier in (0, 0.5) that attenuates
// derivative estimates as |v| shrinks.
func damp(v, sigma float64) float64 {
	return 1 / (1 + math.Exp(1/(math.Abs(v)+sigma)))
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// compareTimestamps is a tolerance-aware three-way comparison:
// 1 if a > b beyond eps, -1 if a < b beyond eps, else 0.
func compareTimestamps(a, b, eps float64) int {
	if a > b+eps {
		return 1
	}
	if a < b-eps {
		return -1
	}
	return 0
}
