// Package observe turns skeleton pose frames into fixed-layout observation
// vectors.
//
// Field groups, in order: root height, heading-free 6D root rotation,
// heading-frame root linear velocity, heading-frame root angular velocity,
// DOF positions, DOF velocities, heading-frame key-body positions. Offsets
// come from the skeleton layout. All arithmetic is float64; only the returned
// vector is float32.
package observe

import (
	"errors"
	"math"

	"calmkit/internal/heading"
	"calmkit/internal/model"
	"calmkit/internal/quat"
	"calmkit/internal/skeleton"
)

// sinHalfFloor is the sin(angle/2) below which the rotation axis falls back to up.
const sinHalfFloor = 1e-6

var ErrNilFrame = errors.New("nil frame")

// Encoder is stateless after construction and safe for concurrent use.
type Encoder struct {
	layout    *skeleton.Layout
	offsets   skeleton.Offsets
	dofMap    []skeleton.DOFMapping
	keyBodies []int
}

func NewEncoder(layout *skeleton.Layout) *Encoder {
	return &Encoder{
		layout:    layout,
		offsets:   layout.Offsets(),
		dofMap:    layout.DOFMappings(),
		keyBodies: layout.KeyBodyIndices(),
	}
}

func (e *Encoder) Layout() *skeleton.Layout { return e.layout }

// Dim is the observation length.
func (e *Encoder) Dim() int { return e.offsets.Dim }

// Encode builds the observation for cur. prev may be nil on the first frame
// of a sequence; then, or when dt <= 0, every velocity group is zero.
func (e *Encoder) Encode(cur, prev *model.Frame, dt float64) ([]float32, error) {
	if err := e.check(cur); err != nil {
		return nil, err
	}
	if prev != nil {
		if err := e.check(prev); err != nil {
			return nil, err
		}
	}

	o := e.offsets
	out := make([]float64, o.Dim)

	rootRot := quat.Normalize(cur.RootRotation)
	h := heading.Angle(rootRot)

	out[o.RootHeight] = cur.RootPosition.Y

	rot6d := quat.ToMat3(heading.Remove(rootRot)).TanNorm6D()
	copy(out[o.RootRotation:o.RootRotation+6], rot6d[:])

	dofPos := e.dofPositions(cur)
	copy(out[o.DOFPositions:o.DOFVelocities], dofPos)

	if prev != nil && dt > 0 {
		d := cur.RootPosition.Sub(prev.RootPosition)
		vel := heading.ToFrame(quat.Vec3{X: d.X / dt, Y: d.Y / dt, Z: d.Z / dt}, h)
		putVec(out, o.RootVelocity, vel)

		ang := heading.ToFrame(angularVelocity(rootRot, quat.Normalize(prev.RootRotation), dt), h)
		putVec(out, o.RootAngularVelocity, ang)

		prevPos := e.dofPositions(prev)
		for i := range dofPos {
			out[o.DOFVelocities+i] = (dofPos[i] - prevPos[i]) / dt
		}
	}

	for k, j := range e.keyBodies {
		rel := cur.JointGlobalPositions[j].Sub(cur.RootPosition)
		putVec(out, o.KeyBodyPositions+3*k, heading.ToFrame(rel, h))
	}

	obs := make([]float32, len(out))
	for i, v := range out {
		obs[i] = float32(v)
	}
	return obs, nil
}

// DOFPositions extracts the Euler XYZ angle of every DOF, in layout order.
func (e *Encoder) DOFPositions(f *model.Frame) ([]float64, error) {
	if err := e.check(f); err != nil {
		return nil, err
	}
	return e.dofPositions(f), nil
}

func (e *Encoder) check(f *model.Frame) error {
	if f == nil {
		return ErrNilFrame
	}
	return f.Validate(e.layout.NumJoints())
}

func (e *Encoder) dofPositions(f *model.Frame) []float64 {
	euler := make([][3]float64, len(f.JointLocalRotations))
	done := make([]bool, len(f.JointLocalRotations))
	out := make([]float64, len(e.dofMap))
	for i, m := range e.dofMap {
		if !done[m.Joint] {
			euler[m.Joint] = quat.ToMat3(quat.Normalize(f.JointLocalRotations[m.Joint])).EulerXYZ().Array()
			done[m.Joint] = true
		}
		out[i] = euler[m.Joint][m.Axis]
	}
	return out
}

// angularVelocity converts the rotation from prev to cur into a world-frame
// angular velocity.
func angularVelocity(cur, prev quat.Quat, dt float64) quat.Vec3 {
	delta := quat.Normalize(quat.Mul(cur, quat.Inverse(prev)))
	w := quat.Clamp(delta.W, -1, 1)
	angle := 2 * math.Acos(w)
	axis := quat.Up
	if sinHalf := math.Sqrt(1 - w*w); sinHalf > sinHalfFloor {
		axis = quat.Vec3{X: delta.X / sinHalf, Y: delta.Y / sinHalf, Z: delta.Z / sinHalf}
	}
	return axis.Scale(angle / dt)
}

func putVec(dst []float64, at int, v quat.Vec3) {
	dst[at] = v.X
	dst[at+1] = v.Y
	dst[at+2] = v.Z
}
