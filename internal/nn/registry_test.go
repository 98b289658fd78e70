package nn

import (
	"errors"
	"math"
	"testing"
)

func TestRegisterAndGetActivation(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	if err := RegisterActivation("smooth", ActELU); err != nil {
		t.Fatalf("register activation: %v", err)
	}
	got, err := GetActivation("Smooth")
	if err != nil {
		t.Fatalf("get activation: %v", err)
	}
	if got != ActELU {
		t.Fatalf("unexpected activation: got=%s want=elu", got)
	}
}

func TestRegisterActivationValidation(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	if err := RegisterActivation("", ActReLU); err == nil {
		t.Fatal("expected empty name error")
	}
	if err := RegisterActivation("bogus", Activation(9)); err == nil {
		t.Fatal("expected unknown kind error")
	}
	if err := RegisterActivationWithSpec(ActivationSpec{
		Name:          "bad-version",
		Kind:          ActTanh,
		SchemaVersion: 99,
		CodecVersion:  1,
	}); !errors.Is(err, ErrActivationVersion) {
		t.Fatalf("expected ErrActivationVersion, got: %v", err)
	}
}

func TestRegisterActivationDuplicate(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	if err := RegisterActivation("relu", ActReLU); !errors.Is(err, ErrActivationExists) {
		t.Fatalf("expected ErrActivationExists, got: %v", err)
	}
}

func TestGetActivationNotFound(t *testing.T) {
	_, err := GetActivation("sigmoid")
	if !errors.Is(err, ErrActivationNotFound) {
		t.Fatalf("expected ErrActivationNotFound, got: %v", err)
	}
}

func TestListActivationsSorted(t *testing.T) {
	names := ListActivations()
	want := []string{"elu", "identity", "linear", "none", "relu", "tanh"}
	if len(names) != len(want) {
		t.Fatalf("unexpected activation list: %+v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("unexpected activation list: %+v", names)
		}
	}
}

func TestParseActivations(t *testing.T) {
	acts, err := ParseActivations("elu, ELU,linear")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(acts) != 3 || acts[0] != ActELU || acts[1] != ActELU || acts[2] != ActNone {
		t.Fatalf("unexpected activations: %v", acts)
	}
	if _, err := ParseActivations("elu,swish"); !errors.Is(err, ErrActivationNotFound) {
		t.Fatalf("expected ErrActivationNotFound, got: %v", err)
	}
}

func TestActivationApply(t *testing.T) {
	tests := []struct {
		name string
		act  Activation
		x    float32
		want float64
	}{
		{name: "none", act: ActNone, x: -2.5, want: -2.5},
		{name: "relu-negative", act: ActReLU, x: -1, want: 0},
		{name: "relu-positive", act: ActReLU, x: 3, want: 3},
		{name: "tanh", act: ActTanh, x: 0.5, want: math.Tanh(0.5)},
		{name: "elu-positive", act: ActELU, x: 2, want: 2},
		{name: "elu-negative", act: ActELU, x: -1, want: math.Exp(-1) - 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.act.Apply(tc.x); math.Abs(float64(got)-tc.want) > 1e-6 {
				t.Fatalf("apply: got=%f want=%f", got, tc.want)
			}
			if got := tc.act.Apply64(float64(tc.x)); math.Abs(got-tc.want) > 1e-12 {
				t.Fatalf("apply64: got=%f want=%f", got, tc.want)
			}
		})
	}
}
