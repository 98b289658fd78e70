package motion

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"calmkit/internal/model"
	"calmkit/internal/observe"
	"calmkit/internal/quat"
	"calmkit/internal/skeleton"
)

// walkingClip moves the root 0.1 m along +Z per frame.
func walkingClip(l *skeleton.Layout, name string, frames int, fps float64) *Clip {
	c := &Clip{Name: name, FPS: fps, Frames: make([]model.Frame, frames)}
	n := l.NumJoints()
	for i := range c.Frames {
		root := quat.Vec3{Y: 0.9, Z: 0.1 * float64(i)}
		f := model.Frame{
			RootPosition:         root,
			RootRotation:         quat.Identity(),
			JointLocalRotations:  make([]quat.Quat, n),
			JointGlobalPositions: make([]quat.Vec3, n),
		}
		for j := 0; j < n; j++ {
			f.JointLocalRotations[j] = quat.Identity()
			f.JointGlobalPositions[j] = root.Add(quat.Vec3{X: 0.05 * float64(j), Y: 0.02 * float64(j)})
		}
		c.Frames[i] = f
	}
	return c
}

func writeClip(t *testing.T, dir, name string, frames int, fps float64) string {
	t.Helper()
	l := skeleton.Default()
	path := filepath.Join(dir, name+ClipExt)
	if err := SaveClip(path, walkingClip(l, name, frames, fps), l); err != nil {
		t.Fatalf("save clip: %v", err)
	}
	return path
}

func TestClipTiming(t *testing.T) {
	c := walkingClip(skeleton.Default(), "walk", 60, 0)
	if c.DT() != 1.0/30 {
		t.Fatalf("dt fallback: got=%f", c.DT())
	}
	if c.Duration() != 2 {
		t.Fatalf("duration: got=%f", c.Duration())
	}
	c.FPS = 60
	if c.Duration() != 1 {
		t.Fatalf("duration at 60fps: got=%f", c.Duration())
	}
}

func TestSaveLoadClipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeClip(t, dir, "walk_forward", 5, 30)

	c, err := LoadClip(path, skeleton.Default())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Name != "walk_forward" || c.NumFrames() != 5 || c.FPS != 30 {
		t.Fatalf("unexpected clip: name=%s frames=%d fps=%f", c.Name, c.NumFrames(), c.FPS)
	}
	want := walkingClip(skeleton.Default(), "walk_forward", 5, 30)
	if c.Frames[4].RootPosition != want.Frames[4].RootPosition {
		t.Fatalf("root position: got=%+v want=%+v", c.Frames[4].RootPosition, want.Frames[4].RootPosition)
	}
	if c.Frames[2].JointGlobalPositions[3] != want.Frames[2].JointGlobalPositions[3] {
		t.Fatalf("joint position mismatch")
	}
}

func TestLoadClipRejectsBadShapes(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"empty":      `{"fps":30,"joint_rotations":[],"joint_positions":[],"root_positions":[],"root_rotations":[]}`,
		"counts":     `{"fps":30,"joint_rotations":[[[0,0,0,1]]],"joint_positions":[],"root_positions":[[0,0,0]],"root_rotations":[[0,0,0,1]]}`,
		"joint_size": `{"fps":30,"joint_rotations":[[[0,0,0,1]]],"joint_positions":[[[0,0,0]]],"root_positions":[[0,0,0]],"root_rotations":[[0,0,0,1]]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+ClipExt)
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadClip(path, skeleton.Default())
			if !errors.Is(err, ErrClipShape) {
				t.Fatalf("expected ErrClipShape, got %v", err)
			}
		})
	}
}

func TestLoadClipChecksJointNames(t *testing.T) {
	l := skeleton.Default()
	dir := t.TempDir()
	path := writeClip(t, dir, "walk", 2, 30)

	joints := l.Joints()
	joints[0], joints[1] = joints[1], joints[0]
	swapped, err := skeleton.NewLayout("swapped", 1, joints)
	if err != nil {
		t.Fatalf("new layout: %v", err)
	}
	if _, err := LoadClip(path, swapped); !errors.Is(err, skeleton.ErrJointMismatch) {
		t.Fatalf("expected ErrJointMismatch, got %v", err)
	}
}

func TestObservationsCachedAndFirstFrameStill(t *testing.T) {
	l := skeleton.Default()
	enc := observe.NewEncoder(l)
	c := walkingClip(l, "walk", 4, 30)

	obs, err := c.Observations(enc)
	if err != nil {
		t.Fatalf("observations: %v", err)
	}
	if len(obs) != 4 || len(obs[0]) != enc.Dim() {
		t.Fatalf("shape: %d x %d", len(obs), len(obs[0]))
	}
	vz := l.Offsets().RootVelocity + 2
	if obs[0][vz] != 0 {
		t.Fatalf("first frame velocity: got=%f", obs[0][vz])
	}
	if d := obs[1][vz] - 3; d > 1e-4 || d < -1e-4 {
		t.Fatalf("second frame velocity: got=%f want=3", obs[1][vz])
	}

	again, err := c.Observations(enc)
	if err != nil {
		t.Fatalf("observations again: %v", err)
	}
	if &again[0][0] != &obs[0][0] {
		t.Fatal("expected cached observations")
	}
}
