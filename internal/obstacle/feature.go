package obstacle

import "math"

// Vector3 is a fully-populated 3D vector. Unlike the raw perception
// record, every axis always carries a value (missing input axes are
// defaulted to zero during ingestion).
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm returns the Euclidean length of the vector.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Feature is the normalized snapshot derived from one accepted raw
// observation. Position, velocity and acceleration are always fully
// populated; Speed, VelocityHeading and AccelerationNorm are derived
// during ingestion.
type Feature struct {
	ID        int     `json:"id"`
	Timestamp float64 `json:"timestamp"` // seconds

	Position     Vector3 `json:"position"`
	Velocity     Vector3 `json:"velocity"`
	Acceleration Vector3 `json:"acceleration"`

	Speed            float64 `json:"speed"`             // |velocity|
	VelocityHeading  float64 `json:"velocity_heading"`  // atan2(vy, vx), radians
	AccelerationNorm float64 `json:"acceleration_norm"` // |acceleration|
	Theta            float64 `json:"theta"`             // orientation, radians
}
