package model

import (
	"errors"
	"testing"

	"calmkit/internal/quat"
)

func TestFrameValidate(t *testing.T) {
	f := Frame{
		RootRotation:         quat.Identity(),
		JointLocalRotations:  make([]quat.Quat, 3),
		JointGlobalPositions: make([]quat.Vec3, 3),
	}
	if err := f.Validate(3); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := f.Validate(4); !errors.Is(err, ErrFrameShape) {
		t.Fatalf("expected ErrFrameShape, got: %v", err)
	}
	f.JointGlobalPositions = f.JointGlobalPositions[:2]
	if err := f.Validate(3); !errors.Is(err, ErrFrameShape) {
		t.Fatalf("expected ErrFrameShape for positions, got: %v", err)
	}
}

func TestBehaviorHasTag(t *testing.T) {
	b := Behavior{Clip: "walk.npy", Tags: []string{"walk", "locomotion"}}
	if !b.HasTag("locomotion") || b.HasTag("run") {
		t.Fatalf("unexpected tag lookup for %+v", b)
	}
}
