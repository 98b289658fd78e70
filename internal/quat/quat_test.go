package quat

import (
	"math"
	"testing"
)

const tol = 1e-9

func approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func quatApprox(a, b Quat, eps float64) bool {
	return approx(a.X, b.X, eps) && approx(a.Y, b.Y, eps) && approx(a.Z, b.Z, eps) && approx(a.W, b.W, eps)
}

func vecApprox(a, b Vec3, eps float64) bool {
	return approx(a.X, b.X, eps) && approx(a.Y, b.Y, eps) && approx(a.Z, b.Z, eps)
}

func TestConventionAdaptersRoundTrip(t *testing.T) {
	q := Quat{X: 0.1, Y: 0.2, Z: 0.3, W: 0.9}
	if got := FromXYZW(q.XYZW()); got != q {
		t.Fatalf("xyzw round trip: got=%+v want=%+v", got, q)
	}
	if got := FromWXYZ(q.WXYZ()); got != q {
		t.Fatalf("wxyz round trip: got=%+v want=%+v", got, q)
	}
	if w := q.WXYZ(); w[0] != 0.9 || w[1] != 0.1 {
		t.Fatalf("wxyz layout: %v", w)
	}
}

func TestMulNotCommutative(t *testing.T) {
	a := FromAxisAngle(Vec3{1, 0, 0}, math.Pi/2)
	b := FromAxisAngle(Vec3{0, 1, 0}, math.Pi/2)
	if quatApprox(Mul(a, b), Mul(b, a), 1e-6) {
		t.Fatal("expected a*b != b*a")
	}
	if got := Mul(Identity(), a); !quatApprox(got, a, tol) {
		t.Fatalf("identity product: got=%+v want=%+v", got, a)
	}
}

func TestMulComposesMatrices(t *testing.T) {
	a := Normalize(Quat{X: 0.3, Y: -0.2, Z: 0.5, W: 0.7})
	b := Normalize(Quat{X: -0.1, Y: 0.4, Z: 0.2, W: 0.8})
	v := Vec3{0.5, -1.25, 2}

	got := Rotate(Mul(a, b), v)
	want := Rotate(a, Rotate(b, v))
	if !vecApprox(got, want, 1e-12) {
		t.Fatalf("rotate(a*b) != rotate(a, rotate(b)): got=%+v want=%+v", got, want)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []Quat{
		{X: 1, Y: 2, Z: 3, W: 4},
		{X: -0.5, Y: 0, Z: 0.25, W: 0.1},
		{X: 0, Y: 0, Z: 0, W: -3},
	}
	for _, q := range inputs {
		once := Normalize(q)
		twice := Normalize(once)
		if !quatApprox(once, twice, 1e-15) {
			t.Fatalf("normalize not idempotent for %+v: once=%+v twice=%+v", q, once, twice)
		}
		if !approx(once.Norm(), 1, 1e-12) {
			t.Fatalf("normalized norm=%f", once.Norm())
		}
	}
}

func TestNormalizeDegenerateIsIdentity(t *testing.T) {
	for _, q := range []Quat{{}, {X: 1e-13}, {Y: -5e-14, W: 5e-14}} {
		if got := Normalize(q); got != Identity() {
			t.Fatalf("normalize(%+v)=%+v want identity", q, got)
		}
	}
}

func TestFromAxisAngleDegenerateAxis(t *testing.T) {
	if got := FromAxisAngle(Vec3{}, 1.2); got != Identity() {
		t.Fatalf("expected identity, got %+v", got)
	}
	got := FromAxisAngle(Vec3{0, 5, 0}, math.Pi)
	if !quatApprox(got, Quat{Y: 1, W: math.Cos(math.Pi / 2)}, tol) {
		t.Fatalf("axis not normalized: %+v", got)
	}
}

func TestRotateKnownRotations(t *testing.T) {
	tests := []struct {
		name string
		axis Vec3
		in   Vec3
		want Vec3
	}{
		{name: "x90 maps y to z", axis: Vec3{1, 0, 0}, in: Vec3{0, 1, 0}, want: Vec3{0, 0, 1}},
		{name: "y90 maps z to x", axis: Vec3{0, 1, 0}, in: Vec3{0, 0, 1}, want: Vec3{1, 0, 0}},
		{name: "z90 maps x to y", axis: Vec3{0, 0, 1}, in: Vec3{1, 0, 0}, want: Vec3{0, 1, 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Rotate(FromAxisAngle(tc.axis, math.Pi/2), tc.in)
			if !vecApprox(got, tc.want, 1e-12) {
				t.Fatalf("got=%+v want=%+v", got, tc.want)
			}
		})
	}
}

func TestInverseUndoesRotation(t *testing.T) {
	q := Normalize(Quat{X: 0.2, Y: 0.7, Z: -0.1, W: 0.4})
	v := Vec3{1, 2, 3}
	if got := Rotate(Inverse(q), Rotate(q, v)); !vecApprox(got, v, 1e-12) {
		t.Fatalf("got=%+v want=%+v", got, v)
	}
}

func TestEulerXYZSingleAxisQuarterTurns(t *testing.T) {
	// The decomposition reads the transposed matrix, so a positive quarter
	// turn about one axis reports the negated angle on that axis.
	tests := []struct {
		name string
		axis Vec3
		want Vec3
	}{
		{name: "x90", axis: Vec3{1, 0, 0}, want: Vec3{X: -math.Pi / 2}},
		{name: "y90 gimbal", axis: Vec3{0, 1, 0}, want: Vec3{Y: -math.Pi / 2}},
		{name: "z90", axis: Vec3{0, 0, 1}, want: Vec3{Z: -math.Pi / 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ToMat3(FromAxisAngle(tc.axis, math.Pi/2)).EulerXYZ()
			if !vecApprox(got, tc.want, 1e-9) {
				t.Fatalf("got=%+v want=%+v", got, tc.want)
			}
		})
	}
}

func TestEulerXYZRecoversComposedAngles(t *testing.T) {
	a, b, c := 0.3, -0.45, 1.1
	q := Mul(Mul(
		FromAxisAngle(Vec3{0, 0, 1}, -c),
		FromAxisAngle(Vec3{0, 1, 0}, -b)),
		FromAxisAngle(Vec3{1, 0, 0}, -a))

	got := ToMat3(q).EulerXYZ()
	if !vecApprox(got, Vec3{a, b, c}, 1e-12) {
		t.Fatalf("got=%+v want=(%f,%f,%f)", got, a, b, c)
	}
}

func TestEulerXYZGimbalBranchIsFinite(t *testing.T) {
	q := Mul(FromAxisAngle(Vec3{0, 1, 0}, -math.Pi/2), FromAxisAngle(Vec3{1, 0, 0}, 0.4))
	got := ToMat3(q).EulerXYZ()
	for _, v := range []float64{got.X, got.Y, got.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite euler: %+v", got)
		}
	}
	if got.Z != 0 {
		t.Fatalf("gimbal branch must pin z to zero, got %f", got.Z)
	}
	if !approx(got.Y, math.Pi/2, 1e-12) {
		t.Fatalf("unexpected y: %f", got.Y)
	}
}

func TestTanNorm6DIdentity(t *testing.T) {
	got := ToMat3(Identity()).TanNorm6D()
	want := [6]float64{1, 0, 0, 0, 1, 0}
	if got != want {
		t.Fatalf("got=%v want=%v", got, want)
	}
}

func TestSlerpEndpointsAndShortestPath(t *testing.T) {
	q0 := Identity()
	q1 := FromAxisAngle(Vec3{0, 1, 0}, math.Pi/2)

	if got := Slerp(q0, q1, 0); !quatApprox(got, q0, 1e-12) {
		t.Fatalf("t=0: got=%+v", got)
	}
	if got := Slerp(q0, q1, 1); !quatApprox(got, q1, 1e-12) {
		t.Fatalf("t=1: got=%+v", got)
	}
	mid := Slerp(q0, q1, 0.5)
	if want := FromAxisAngle(Vec3{0, 1, 0}, math.Pi/4); !quatApprox(mid, want, 1e-12) {
		t.Fatalf("t=0.5: got=%+v want=%+v", mid, want)
	}

	neg := Quat{X: -q1.X, Y: -q1.Y, Z: -q1.Z, W: -q1.W}
	if got := Slerp(q0, neg, 0.5); !quatApprox(got, mid, 1e-12) {
		t.Fatalf("expected shortest path through sign flip: got=%+v want=%+v", got, mid)
	}
}

func TestSlerpNearlyParallelFallsBackToLerp(t *testing.T) {
	q0 := Identity()
	q1 := FromAxisAngle(Vec3{1, 0, 0}, 1e-4)
	got := Slerp(q0, q1, 0.5)
	if math.IsNaN(got.W) || !approx(got.Norm(), 1, 1e-12) {
		t.Fatalf("unexpected lerp result: %+v", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(1.5, -1.0, 1.0); got != 1 {
		t.Fatalf("got=%f", got)
	}
	if got := Clamp(float32(-2), -1, 1); got != -1 {
		t.Fatalf("got=%f", got)
	}
	if got := Clamp(0.25, -1.0, 1.0); got != 0.25 {
		t.Fatalf("got=%f", got)
	}
}
