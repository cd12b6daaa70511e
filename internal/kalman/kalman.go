// Package kalman implements a small linear Kalman filter on gonum
// matrices. The prediction core stores these filters opaquely: it never
// calls Predict or Update itself, it only owns the instances that the
// downstream motion-prediction consumers drive.
package kalman

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Filter is a linear Kalman filter with fixed state and measurement
// dimensions. The control dimension is zero: the filters tracked here
// model unactuated obstacles.
type Filter struct {
	stateDim int
	measDim  int

	x *mat.VecDense // state estimate
	P *mat.Dense    // state covariance

	F *mat.Dense // state transition
	H *mat.Dense // measurement matrix
	Q *mat.Dense // process noise covariance
	R *mat.Dense // measurement noise covariance
}

// New creates a filter with the given state and measurement dimensions.
// The state starts at zero, F and H start as identity-shaped matrices,
// and the noise covariances start as identity.
func New(stateDim, measDim int) *Filter {
	if stateDim <= 0 || measDim <= 0 || measDim > stateDim {
		panic(fmt.Sprintf("kalman: invalid dimensions state=%d meas=%d", stateDim, measDim))
	}

	f := &Filter{
		stateDim: stateDim,
		measDim:  measDim,
		x:        mat.NewVecDense(stateDim, nil),
		P:        eye(stateDim),
		F:        eye(stateDim),
		Q:        eye(stateDim),
		R:        eye(measDim),
	}

	// H extracts the first measDim state components
	H := mat.NewDense(measDim, stateDim, nil)
	for i := 0; i < measDim; i++ {
		H.Set(i, i, 1)
	}
	f.H = H

	return f
}

// NewLaneTracker returns a filter shaped for per-lane obstacle tracking:
// state [s, l, ds, dl] (longitudinal/lateral position and rates),
// position-only measurements, no control input.
func NewLaneTracker() *Filter {
	return New(4, 2)
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// StateDim returns the state dimension.
func (f *Filter) StateDim() int { return f.stateDim }

// MeasDim returns the measurement dimension.
func (f *Filter) MeasDim() int { return f.measDim }

// SetState replaces the state estimate and covariance.
func (f *Filter) SetState(x []float64, covariance []float64) error {
	if len(x) != f.stateDim {
		return fmt.Errorf("state length %d, want %d", len(x), f.stateDim)
	}
	if len(covariance) != f.stateDim*f.stateDim {
		return fmt.Errorf("covariance length %d, want %d", len(covariance), f.stateDim*f.stateDim)
	}
	f.x = mat.NewVecDense(f.stateDim, append([]float64(nil), x...))
	f.P = mat.NewDense(f.stateDim, f.stateDim, append([]float64(nil), covariance...))
	return nil
}

// SetTransition replaces the state transition matrix F (row-major).
func (f *Filter) SetTransition(data []float64) error {
	if len(data) != f.stateDim*f.stateDim {
		return fmt.Errorf("transition length %d, want %d", len(data), f.stateDim*f.stateDim)
	}
	f.F = mat.NewDense(f.stateDim, f.stateDim, append([]float64(nil), data...))
	return nil
}

// SetProcessNoise replaces the process noise covariance Q (row-major).
func (f *Filter) SetProcessNoise(data []float64) error {
	if len(data) != f.stateDim*f.stateDim {
		return fmt.Errorf("process noise length %d, want %d", len(data), f.stateDim*f.stateDim)
	}
	f.Q = mat.NewDense(f.stateDim, f.stateDim, append([]float64(nil), data...))
	return nil
}

// SetMeasurementNoise replaces the measurement noise covariance R (row-major).
func (f *Filter) SetMeasurementNoise(data []float64) error {
	if len(data) != f.measDim*f.measDim {
		return fmt.Errorf("measurement noise length %d, want %d", len(data), f.measDim*f.measDim)
	}
	f.R = mat.NewDense(f.measDim, f.measDim, append([]float64(nil), data...))
	return nil
}

// Predict advances the state estimate one step:
// x' = F x, P' = F P Fᵀ + Q.
func (f *Filter) Predict() {
	var x mat.VecDense
	x.MulVec(f.F, f.x)
	f.x = &x

	var FP, FPFt mat.Dense
	FP.Mul(f.F, f.P)
	FPFt.Mul(&FP, f.F.T())
	FPFt.Add(&FPFt, f.Q)
	f.P = &FPFt
}

// Update folds in a measurement z:
// y = z − H x, S = H P Hᵀ + R, K = P Hᵀ S⁻¹,
// x' = x + K y, P' = (I − K H) P.
func (f *Filter) Update(z []float64) error {
	if len(z) != f.measDim {
		return fmt.Errorf("measurement length %d, want %d", len(z), f.measDim)
	}
	zv := mat.NewVecDense(f.measDim, append([]float64(nil), z...))

	// Innovation
	var Hx, y mat.VecDense
	Hx.MulVec(f.H, f.x)
	y.SubVec(zv, &Hx)

	// Innovation covariance
	var HP, S mat.Dense
	HP.Mul(f.H, f.P)
	S.Mul(&HP, f.H.T())
	S.Add(&S, f.R)

	var Sinv mat.Dense
	if err := Sinv.Inverse(&S); err != nil {
		return fmt.Errorf("invert innovation covariance: %w", err)
	}

	// Gain
	var PHt, K mat.Dense
	PHt.Mul(f.P, f.H.T())
	K.Mul(&PHt, &Sinv)

	// State update
	var Ky mat.VecDense
	Ky.MulVec(&K, &y)
	f.x.AddVec(f.x, &Ky)

	// Covariance update
	var KH, IKH mat.Dense
	KH.Mul(&K, f.H)
	IKH.Sub(eye(f.stateDim), &KH)
	var newP mat.Dense
	newP.Mul(&IKH, f.P)
	f.P = &newP

	return nil
}

// State returns a copy of the current state estimate.
func (f *Filter) State() []float64 {
	out := make([]float64, f.stateDim)
	for i := range out {
		out[i] = f.x.AtVec(i)
	}
	return out
}

// Covariance returns a copy of the current state covariance (row-major).
func (f *Filter) Covariance() []float64 {
	out := make([]float64, f.stateDim*f.stateDim)
	for i := 0; i < f.stateDim; i++ {
		for j := 0; j < f.stateDim; j++ {
			out[i*f.stateDim+j] = f.P.At(i, j)
		}
	}
	return out
}
