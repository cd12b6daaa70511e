// Package perception defines the raw observation records emitted by an
// upstream perception pipeline. Every field of an observation is
// optional: sensors routinely report partial state, so each field is a
// pointer and consumers default anything absent rather than failing.
package perception

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ObstacleType is the perceived category of an observed object.
type ObstacleType string

const (
	TypeUnknownMovable   ObstacleType = "unknown_movable"
	TypeUnknownUnmovable ObstacleType = "unknown_unmovable"
	TypePedestrian       ObstacleType = "pedestrian"
	TypeBicycle          ObstacleType = "bicycle"
	TypeVehicle          ObstacleType = "vehicle"
)

// ValidTypes contains all recognised obstacle types.
var ValidTypes = []ObstacleType{
	TypeUnknownMovable,
	TypeUnknownUnmovable,
	TypePedestrian,
	TypeBicycle,
	TypeVehicle,
}

// IsValid checks whether the type is a recognised category.
func (t ObstacleType) IsValid() bool {
	for _, vt := range ValidTypes {
		if t == vt {
			return true
		}
	}
	return false
}

// Point3D is a partially-populated 3D vector. Absent axes are defaulted
// to zero by the consumer, independently per axis.
type Point3D struct {
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
	Z *float64 `json:"z,omitempty"`
}

// Observation is one raw perception report of a single obstacle.
// A nil field means the sensor did not report that quantity.
type Observation struct {
	ID        *int          `json:"id,omitempty"`
	Type      *ObstacleType `json:"type,omitempty"`
	Timestamp *float64      `json:"timestamp,omitempty"` // seconds
	Position  *Point3D      `json:"position,omitempty"`
	Velocity  *Point3D      `json:"velocity,omitempty"`
	Theta     *float64      `json:"theta,omitempty"` // heading, radians
}

// ReadLog reads a JSON-lines observation log. Blank lines are skipped;
// a malformed line aborts the read with the line number in the error.
func ReadLog(r io.Reader) ([]Observation, error) {
	var observations []Observation
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var obs Observation
		if err := json.Unmarshal(line, &obs); err != nil {
			return nil, fmt.Errorf("parse observation at line %d: %w", lineNo, err)
		}
		observations = append(observations, obs)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read observation log: %w", err)
	}

	return observations, nil
}

// ReadLogFile opens and reads a JSON-lines observation log from disk.
func ReadLogFile(path string) ([]Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open observation log: %w", err)
	}
	defer f.Close()
	return ReadLog(f)
}
