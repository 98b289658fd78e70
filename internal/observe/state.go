package observe

import (
	"fmt"

	"calmkit/internal/heading"
	"calmkit/internal/model"
	"calmkit/internal/quat"
)

// RootOffsetDim is the width of one root offset block.
const RootOffsetDim = 7

// BodyState is a full simulated character state. Joint rotations and
// positions are world space.
type BodyState struct {
	RootPosition           quat.Vec3
	RootRotation           quat.Quat
	RootLinearVelocity     quat.Vec3
	RootAngularVelocity    quat.Vec3
	JointPositions         []quat.Vec3
	JointRotations         []quat.Quat
	JointAngularVelocities []quat.Vec3
}

// StateEncoder builds tracking-policy observations: the current state and
// Tau target states, each in its own heading-local frame, followed by Tau
// root offsets from the current state to each target. Quaternions are
// written in (w, x, y, z) order.
type StateEncoder struct {
	NumJoints int
	Tau       int
}

// FrameDim is 11 + 10*NumJoints.
func (e StateEncoder) FrameDim() int { return 11 + 10*e.NumJoints }

// Dim is (1+Tau)*FrameDim + Tau*RootOffsetDim.
func (e StateEncoder) Dim() int {
	return (1+e.Tau)*e.FrameDim() + e.Tau*RootOffsetDim
}

// Encode writes cur and up to Tau targets. Missing targets leave their
// frame and offset blocks zero.
func (e StateEncoder) Encode(cur BodyState, targets []BodyState) ([]float32, error) {
	if err := e.check(cur); err != nil {
		return nil, err
	}
	for i := range targets {
		if i >= e.Tau {
			break
		}
		if err := e.check(targets[i]); err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}
	}

	out := make([]float64, e.Dim())
	at := e.encodeFrame(cur, out, 0)
	for k := 0; k < e.Tau; k++ {
		if k < len(targets) {
			e.encodeFrame(targets[k], out, at)
		}
		at += e.FrameDim()
	}
	for k := 0; k < e.Tau; k++ {
		if k < len(targets) {
			encodeRootOffset(cur, targets[k], out, at)
		}
		at += RootOffsetDim
	}

	obs := make([]float32, len(out))
	for i, v := range out {
		obs[i] = float32(v)
	}
	return obs, nil
}

func (e StateEncoder) check(s BodyState) error {
	n := e.NumJoints
	if len(s.JointPositions) != n || len(s.JointRotations) != n || len(s.JointAngularVelocities) != n {
		return fmt.Errorf("%w: state has %d/%d/%d joint entries, want %d",
			model.ErrFrameShape, len(s.JointPositions), len(s.JointRotations), len(s.JointAngularVelocities), n)
	}
	return nil
}

func (e StateEncoder) encodeFrame(s BodyState, out []float64, at int) int {
	inv := heading.Inverse(s.RootRotation)

	out[at] = s.RootPosition.Y
	at++
	at = putQuat(out, at, quat.Mul(inv, s.RootRotation))
	for _, p := range s.JointPositions {
		putVec(out, at, quat.Rotate(inv, p.Sub(s.RootPosition)))
		at += 3
	}
	for _, r := range s.JointRotations {
		at = putQuat(out, at, quat.Mul(inv, r))
	}
	putVec(out, at, quat.Rotate(inv, s.RootLinearVelocity))
	at += 3
	putVec(out, at, quat.Rotate(inv, s.RootAngularVelocity))
	at += 3
	for _, w := range s.JointAngularVelocities {
		putVec(out, at, quat.Rotate(inv, w))
		at += 3
	}
	return at
}

func encodeRootOffset(actual, target BodyState, out []float64, at int) {
	inv := heading.Inverse(actual.RootRotation)
	local := quat.Rotate(inv, target.RootPosition.Sub(actual.RootPosition))
	out[at] = local.X
	out[at+1] = local.Z
	out[at+2] = local.Y
	putQuat(out, at+3, quat.Mul(inv, target.RootRotation))
}

func putQuat(dst []float64, at int, q quat.Quat) int {
	wxyz := q.WXYZ()
	copy(dst[at:at+4], wxyz[:])
	return at + 4
}
