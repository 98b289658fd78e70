package observe

import (
	"errors"
	"math"
	"testing"

	"calmkit/internal/model"
	"calmkit/internal/quat"
	"calmkit/internal/skeleton"
)

func restFrame(l *skeleton.Layout, root quat.Vec3) *model.Frame {
	n := l.NumJoints()
	f := &model.Frame{
		RootPosition:         root,
		RootRotation:         quat.Identity(),
		JointLocalRotations:  make([]quat.Quat, n),
		JointGlobalPositions: make([]quat.Vec3, n),
	}
	for i := 0; i < n; i++ {
		f.JointLocalRotations[i] = quat.Identity()
		f.JointGlobalPositions[i] = root.Add(quat.Vec3{X: 0.1 * float64(i), Y: 0.05 * float64(i), Z: -0.02 * float64(i)})
	}
	return f
}

func TestEncodeDimension(t *testing.T) {
	enc := NewEncoder(skeleton.Default())
	if enc.Dim() != 102 {
		t.Fatalf("dim: got=%d want=102", enc.Dim())
	}
	obs, err := enc.Encode(restFrame(skeleton.Default(), quat.Vec3{Y: 0.9}), nil, 1.0/30)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(obs) != 102 {
		t.Fatalf("len: got=%d", len(obs))
	}
	if obs[0] != float32(0.9) {
		t.Fatalf("root height: got=%f", obs[0])
	}
}

func TestEncodeForwardTranslationScenario(t *testing.T) {
	l := skeleton.Default()
	o := l.Offsets()
	enc := NewEncoder(l)

	prev := restFrame(l, quat.Vec3{Y: 1})
	cur := restFrame(l, quat.Vec3{Y: 1, Z: 1})
	dt := 1.0 / 30

	obsPrev, err := enc.Encode(prev, nil, dt)
	if err != nil {
		t.Fatalf("encode prev: %v", err)
	}
	obs, err := enc.Encode(cur, prev, dt)
	if err != nil {
		t.Fatalf("encode cur: %v", err)
	}

	want := [3]float64{0, 0, 30}
	for i := 0; i < 3; i++ {
		if got := float64(obs[o.RootVelocity+i]); math.Abs(got-want[i]) > 1e-3 {
			t.Fatalf("root velocity[%d]: got=%f want=%f", i, got, want[i])
		}
		if got := obs[o.RootAngularVelocity+i]; got != 0 {
			t.Fatalf("root angular velocity[%d]: got=%f want=0", i, got)
		}
	}
	for i := o.DOFVelocities; i < o.KeyBodyPositions; i++ {
		if obs[i] != 0 {
			t.Fatalf("dof velocity[%d]: got=%f want=0", i-o.DOFVelocities, obs[i])
		}
	}
	for i := o.DOFPositions; i < o.DOFVelocities; i++ {
		if obs[i] != obsPrev[i] {
			t.Fatalf("dof position %d changed: %f -> %f", i, obsPrev[i], obs[i])
		}
	}
	for i := o.KeyBodyPositions; i < o.Dim; i++ {
		if math.Abs(float64(obs[i]-obsPrev[i])) > 1e-6 {
			t.Fatalf("key body %d changed under pure translation: %f -> %f", i, obsPrev[i], obs[i])
		}
	}
}

func TestEncodeFirstFrameZeroVelocity(t *testing.T) {
	l := skeleton.Default()
	o := l.Offsets()
	enc := NewEncoder(l)

	f := restFrame(l, quat.Vec3{X: 3, Y: 1, Z: -2})
	f.RootRotation = quat.FromAxisAngle(quat.Vec3{X: 0.3, Y: 1, Z: 0.1}, 0.9)
	for i := range f.JointLocalRotations {
		f.JointLocalRotations[i] = quat.FromAxisAngle(quat.Vec3{X: 1, Y: float64(i)}, 0.1*float64(i))
	}

	cases := []struct {
		name string
		prev *model.Frame
		dt   float64
	}{
		{name: "no previous", prev: nil, dt: 1.0 / 30},
		{name: "zero dt", prev: restFrame(l, quat.Vec3{}), dt: 0},
		{name: "negative dt", prev: restFrame(l, quat.Vec3{}), dt: -0.1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obs, err := enc.Encode(f, tc.prev, tc.dt)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			for i := o.RootVelocity; i < o.DOFPositions; i++ {
				if obs[i] != 0 {
					t.Fatalf("root velocity field %d: got=%f want=0", i, obs[i])
				}
			}
			for i := o.DOFVelocities; i < o.KeyBodyPositions; i++ {
				if obs[i] != 0 {
					t.Fatalf("dof velocity field %d: got=%f want=0", i, obs[i])
				}
			}
		})
	}
}

func TestEncodeHeadingInvariantRotation(t *testing.T) {
	l := skeleton.Default()
	o := l.Offsets()
	enc := NewEncoder(l)

	base := quat.Normalize(quat.Quat{X: 0.15, Y: 0.4, Z: -0.2, W: 0.85})
	f := restFrame(l, quat.Vec3{Y: 1})
	f.RootRotation = base
	want, err := enc.Encode(f, nil, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	for _, yaw := range []float64{0.3, -1.4, 2.9} {
		g := restFrame(l, quat.Vec3{Y: 1})
		g.RootRotation = quat.Mul(quat.FromAxisAngle(quat.Up, yaw), base)
		got, err := enc.Encode(g, nil, 0)
		if err != nil {
			t.Fatalf("encode yaw=%f: %v", yaw, err)
		}
		for i := o.RootRotation; i < o.RootVelocity; i++ {
			if math.Abs(float64(got[i]-want[i])) > 1e-5 {
				t.Fatalf("6d[%d] yaw=%f: got=%f want=%f", i-o.RootRotation, yaw, got[i], want[i])
			}
		}
	}
}

func TestEncodeVelocityInHeadingFrame(t *testing.T) {
	l := skeleton.Default()
	o := l.Offsets()
	enc := NewEncoder(l)

	// Facing +X and moving +X reads as forward motion.
	rot := quat.FromAxisAngle(quat.Up, math.Pi/2)
	prev := restFrame(l, quat.Vec3{Y: 1})
	prev.RootRotation = rot
	cur := restFrame(l, quat.Vec3{X: 0.5, Y: 1})
	cur.RootRotation = rot

	obs, err := enc.Encode(cur, prev, 0.5)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if math.Abs(float64(obs[o.RootVelocity])) > 1e-6 || math.Abs(float64(obs[o.RootVelocity+2])-1) > 1e-6 {
		t.Fatalf("unexpected heading-frame velocity: %v", obs[o.RootVelocity:o.RootVelocity+3])
	}
}

func TestEncodeAngularVelocityAboutUp(t *testing.T) {
	l := skeleton.Default()
	o := l.Offsets()
	enc := NewEncoder(l)

	prev := restFrame(l, quat.Vec3{Y: 1})
	cur := restFrame(l, quat.Vec3{Y: 1})
	cur.RootRotation = quat.FromAxisAngle(quat.Up, 0.1)

	obs, err := enc.Encode(cur, prev, 0.1)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got := obs[o.RootAngularVelocity : o.RootAngularVelocity+3]
	if math.Abs(float64(got[0])) > 1e-5 || math.Abs(float64(got[1])-1) > 1e-5 || math.Abs(float64(got[2])) > 1e-5 {
		t.Fatalf("angular velocity: got=%v want=[0 1 0]", got)
	}
}

func TestEncodeDegenerateRotationsDoNotProduceNaN(t *testing.T) {
	l := skeleton.Default()
	enc := NewEncoder(l)

	f := restFrame(l, quat.Vec3{Y: 1})
	f.RootRotation = quat.Quat{}
	for i := range f.JointLocalRotations {
		f.JointLocalRotations[i] = quat.Quat{X: 1e-14}
	}
	obs, err := enc.Encode(f, restFrame(l, quat.Vec3{}), 1.0/60)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for i, v := range obs {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("non-finite value at %d", i)
		}
	}
}

func TestEncodeRejectsWrongJointCount(t *testing.T) {
	enc := NewEncoder(skeleton.Default())
	f := restFrame(skeleton.Default(), quat.Vec3{})
	f.JointLocalRotations = f.JointLocalRotations[:16]
	if _, err := enc.Encode(f, nil, 0); !errors.Is(err, model.ErrFrameShape) {
		t.Fatalf("expected ErrFrameShape, got: %v", err)
	}
}

func TestEncodeRejectsNilFrames(t *testing.T) {
	enc := NewEncoder(skeleton.Default())
	if _, err := enc.Encode(nil, nil, 1.0/30); !errors.Is(err, ErrNilFrame) {
		t.Fatalf("expected ErrNilFrame, got: %v", err)
	}
	if _, err := enc.DOFPositions(nil); !errors.Is(err, ErrNilFrame) {
		t.Fatalf("expected ErrNilFrame from DOFPositions, got: %v", err)
	}
}

func TestDOFPositionsRejectsShortFrame(t *testing.T) {
	enc := NewEncoder(skeleton.Default())
	f := restFrame(skeleton.Default(), quat.Vec3{})
	f.JointLocalRotations = f.JointLocalRotations[:3]
	got, err := enc.DOFPositions(f)
	if !errors.Is(err, model.ErrFrameShape) {
		t.Fatalf("expected ErrFrameShape, got: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no positions, got %d", len(got))
	}
}

func TestDOFPositionsFollowAxisOrder(t *testing.T) {
	l, err := skeleton.NewLayout("pair", 1, []skeleton.JointDef{
		{Name: "hip", DOF: 3},
		{Name: "knee", DOF: 1},
	})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	enc := NewEncoder(l)

	a, b, c := 0.2, -0.3, 0.4
	hip := quat.Mul(quat.Mul(
		quat.FromAxisAngle(quat.Vec3{Z: 1}, -c),
		quat.FromAxisAngle(quat.Vec3{Y: 1}, -b)),
		quat.FromAxisAngle(quat.Vec3{X: 1}, -a))
	knee := quat.FromAxisAngle(quat.Vec3{X: 1}, -0.7)

	f := &model.Frame{
		RootRotation:         quat.Identity(),
		JointLocalRotations:  []quat.Quat{hip, knee},
		JointGlobalPositions: make([]quat.Vec3, 2),
	}
	got, err := enc.DOFPositions(f)
	if err != nil {
		t.Fatalf("dof positions: %v", err)
	}
	want := []float64{a, b, c, 0.7}
	if len(got) != len(want) {
		t.Fatalf("len: got=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("dof[%d]: got=%f want=%f", i, got[i], want[i])
		}
	}
}
