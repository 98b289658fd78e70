package model

import (
	"errors"
	"fmt"

	"calmkit/internal/quat"
)

var ErrFrameShape = errors.New("frame shape mismatch")

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Frame is one sampled skeleton pose. Joint slices follow the layout order.
type Frame struct {
	RootPosition         quat.Vec3
	RootRotation         quat.Quat
	JointLocalRotations  []quat.Quat
	JointGlobalPositions []quat.Vec3
}

// Validate checks that both joint slices have numJoints entries.
func (f Frame) Validate(numJoints int) error {
	if len(f.JointLocalRotations) != numJoints {
		return fmt.Errorf("%w: %d joint rotations, want %d", ErrFrameShape, len(f.JointLocalRotations), numJoints)
	}
	if len(f.JointGlobalPositions) != numJoints {
		return fmt.Errorf("%w: %d joint positions, want %d", ErrFrameShape, len(f.JointGlobalPositions), numJoints)
	}
	return nil
}

// Behavior is one entry of a latent behavior library.
type Behavior struct {
	Clip   string    `json:"clip"`
	Tags   []string  `json:"tags"`
	Latent []float32 `json:"latent"`
}

// HasTag reports whether tag is among b's tags.
func (b Behavior) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ModelRecord is a stored weight file. Data holds the exact encoded bytes.
type ModelRecord struct {
	VersionedRecord
	ID        string `json:"id"`
	Name      string `json:"name"`
	Format    string `json:"format"`
	InputDim  int    `json:"input_dim"`
	OutputDim int    `json:"output_dim"`
	Data      []byte `json:"data"`
}

// LibraryRecord is a stored latent library.
type LibraryRecord struct {
	VersionedRecord
	Name      string     `json:"name"`
	LatentDim int        `json:"latent_dim"`
	Behaviors []Behavior `json:"behaviors"`
}
