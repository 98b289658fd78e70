// Package motion loads reference motion clips and groups them into datasets.
package motion

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"calmkit/internal/model"
	"calmkit/internal/observe"
	"calmkit/internal/quat"
	"calmkit/internal/skeleton"
)

// DefaultFPS is assumed for clips that do not declare a positive rate.
const DefaultFPS = 30.0

var ErrClipShape = errors.New("clip shape mismatch")

// Clip is an immutable sequence of pose frames.
type Clip struct {
	Name   string
	FPS    float64
	Tags   []string
	Frames []model.Frame

	obsOnce sync.Once
	obs     [][]float32
	obsErr  error
}

func (c *Clip) NumFrames() int { return len(c.Frames) }

// DT is the frame interval, 1/30 when FPS is not positive.
func (c *Clip) DT() float64 {
	if c.FPS <= 0 {
		return 1 / DefaultFPS
	}
	return 1 / c.FPS
}

// Duration is NumFrames * DT.
func (c *Clip) Duration() float64 {
	return float64(len(c.Frames)) * c.DT()
}

// HasTag reports whether tag is among c's tags.
func (c *Clip) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Observations encodes every frame once and caches the result. The first
// frame has no previous frame. The cache belongs to the first encoder passed.
func (c *Clip) Observations(enc *observe.Encoder) ([][]float32, error) {
	c.obsOnce.Do(func() {
		obs := make([][]float32, len(c.Frames))
		dt := c.DT()
		for i := range c.Frames {
			var prev *model.Frame
			if i > 0 {
				prev = &c.Frames[i-1]
			}
			o, err := enc.Encode(&c.Frames[i], prev, dt)
			if err != nil {
				c.obsErr = fmt.Errorf("clip %s frame %d: %w", c.Name, i, err)
				return
			}
			obs[i] = o
		}
		c.obs = obs
	})
	return c.obs, c.obsErr
}

// clipFile is the on-disk training-frame container. Quaternions are [x,y,z,w].
type clipFile struct {
	FPS            float64        `json:"fps"`
	JointNames     []string       `json:"joint_names,omitempty"`
	JointRotations [][][4]float64 `json:"joint_rotations"`
	JointPositions [][][3]float64 `json:"joint_positions"`
	RootPositions  [][3]float64   `json:"root_positions"`
	RootRotations  [][4]float64   `json:"root_rotations"`
}

// LoadClip reads a clip file and checks it against layout. The clip name is
// the file stem.
func LoadClip(path string, layout *skeleton.Layout) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f clipFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode clip %s: %w", path, err)
	}
	frames, err := f.frames(layout)
	if err != nil {
		return nil, fmt.Errorf("clip %s: %w", path, err)
	}
	return &Clip{
		Name:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		FPS:    f.FPS,
		Frames: frames,
	}, nil
}

func (f clipFile) frames(layout *skeleton.Layout) ([]model.Frame, error) {
	n := len(f.JointRotations)
	if n == 0 {
		return nil, fmt.Errorf("%w: no frames", ErrClipShape)
	}
	if len(f.JointPositions) != n || len(f.RootPositions) != n || len(f.RootRotations) != n {
		return nil, fmt.Errorf("%w: frame counts joint_rotations=%d joint_positions=%d root_positions=%d root_rotations=%d",
			ErrClipShape, n, len(f.JointPositions), len(f.RootPositions), len(f.RootRotations))
	}
	if len(f.JointNames) > 0 {
		if err := layout.CheckJointNames(f.JointNames); err != nil {
			return nil, err
		}
	}
	j := layout.NumJoints()
	frames := make([]model.Frame, n)
	for i := 0; i < n; i++ {
		if len(f.JointRotations[i]) != j || len(f.JointPositions[i]) != j {
			return nil, fmt.Errorf("%w: frame %d has %d rotations and %d positions, want %d",
				ErrClipShape, i, len(f.JointRotations[i]), len(f.JointPositions[i]), j)
		}
		fr := model.Frame{
			RootPosition:         quat.VecFromArray(f.RootPositions[i]),
			RootRotation:         quat.FromXYZW(f.RootRotations[i]),
			JointLocalRotations:  make([]quat.Quat, j),
			JointGlobalPositions: make([]quat.Vec3, j),
		}
		for k := 0; k < j; k++ {
			fr.JointLocalRotations[k] = quat.FromXYZW(f.JointRotations[i][k])
			fr.JointGlobalPositions[k] = quat.VecFromArray(f.JointPositions[i][k])
		}
		frames[i] = fr
	}
	return frames, nil
}

// SaveClip writes c in the clip file format with layout's joint names.
func SaveClip(path string, c *Clip, layout *skeleton.Layout) error {
	f := clipFile{
		FPS:            c.FPS,
		JointRotations: make([][][4]float64, len(c.Frames)),
		JointPositions: make([][][3]float64, len(c.Frames)),
		RootPositions:  make([][3]float64, len(c.Frames)),
		RootRotations:  make([][4]float64, len(c.Frames)),
	}
	for _, jd := range layout.Joints() {
		f.JointNames = append(f.JointNames, jd.Name)
	}
	for i, fr := range c.Frames {
		if err := fr.Validate(layout.NumJoints()); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		f.RootPositions[i] = fr.RootPosition.Array()
		f.RootRotations[i] = fr.RootRotation.XYZW()
		f.JointRotations[i] = make([][4]float64, len(fr.JointLocalRotations))
		f.JointPositions[i] = make([][3]float64, len(fr.JointGlobalPositions))
		for k := range fr.JointLocalRotations {
			f.JointRotations[i][k] = fr.JointLocalRotations[k].XYZW()
			f.JointPositions[i][k] = fr.JointGlobalPositions[k].Array()
		}
	}
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
