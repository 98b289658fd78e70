// Package skeleton holds the canonical joint layout that fixes the order and
// width of every observation field.
//
// A Layout is a single versioned value. Consumers receive it explicitly and
// derive their index tables from it instead of keeping their own copies.
package skeleton

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidLayout = errors.New("invalid joint layout")
	ErrJointMismatch = errors.New("joint names do not match layout")
)

//go:embed humanoid.yaml
var humanoidYAML []byte

// JointDef describes one tracked joint.
type JointDef struct {
	Name       string `yaml:"name" json:"name"`
	EngineBone string `yaml:"engine_bone" json:"engine_bone"`
	DOF        int    `yaml:"dof" json:"dof"`
	KeyBody    bool   `yaml:"key_body" json:"key_body"`
}

// DOFMapping locates one flat DOF index on its joint. Axis is 0, 1, 2 for X, Y, Z.
type DOFMapping struct {
	Joint int `json:"joint"`
	Axis  int `json:"axis"`
}

// Offsets is the start index of every observation field group.
type Offsets struct {
	RootHeight          int `json:"root_height"`
	RootRotation        int `json:"root_rotation"`
	RootVelocity        int `json:"root_velocity"`
	RootAngularVelocity int `json:"root_angular_velocity"`
	DOFPositions        int `json:"dof_positions"`
	DOFVelocities       int `json:"dof_velocities"`
	KeyBodyPositions    int `json:"key_body_positions"`
	Dim                 int `json:"dim"`
}

// Layout is an immutable joint table with its derived index tables.
type Layout struct {
	name     string
	version  int
	joints   []JointDef
	index    map[string]int
	totalDOF int
	keyBody  []int
	dofMap   []DOFMapping
	offsets  Offsets
}

type layoutFile struct {
	Name    string     `yaml:"name"`
	Version int        `yaml:"version"`
	Joints  []JointDef `yaml:"joints"`
}

var defaultLayout = sync.OnceValue(func() *Layout {
	return MustParse(humanoidYAML)
})

// Default returns the built-in humanoid layout.
func Default() *Layout {
	return defaultLayout()
}

// NewLayout validates joints and computes the derived tables.
func NewLayout(name string, version int, joints []JointDef) (*Layout, error) {
	if len(joints) == 0 {
		return nil, fmt.Errorf("%w: no joints", ErrInvalidLayout)
	}
	l := &Layout{
		name:    name,
		version: version,
		joints:  append([]JointDef(nil), joints...),
		index:   make(map[string]int, len(joints)),
	}
	for i, j := range l.joints {
		if j.Name == "" {
			return nil, fmt.Errorf("%w: joint %d has no name", ErrInvalidLayout, i)
		}
		if _, dup := l.index[j.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate joint %q", ErrInvalidLayout, j.Name)
		}
		switch j.DOF {
		case 0, 1, 3:
		default:
			return nil, fmt.Errorf("%w: joint %q has dof=%d", ErrInvalidLayout, j.Name, j.DOF)
		}
		l.index[j.Name] = i
		for axis := 0; axis < j.DOF; axis++ {
			l.dofMap = append(l.dofMap, DOFMapping{Joint: i, Axis: axis})
		}
		if j.KeyBody {
			l.keyBody = append(l.keyBody, i)
		}
	}
	l.totalDOF = len(l.dofMap)
	l.offsets = computeOffsets(l.totalDOF, len(l.keyBody))
	return l, nil
}

func computeOffsets(totalDOF, keyBodies int) Offsets {
	var o Offsets
	o.RootHeight = 0
	o.RootRotation = o.RootHeight + 1
	o.RootVelocity = o.RootRotation + 6
	o.RootAngularVelocity = o.RootVelocity + 3
	o.DOFPositions = o.RootAngularVelocity + 3
	o.DOFVelocities = o.DOFPositions + totalDOF
	o.KeyBodyPositions = o.DOFVelocities + totalDOF
	o.Dim = o.KeyBodyPositions + 3*keyBodies
	return o
}

// Parse decodes a YAML layout document.
func Parse(data []byte) (*Layout, error) {
	var f layoutFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	return NewLayout(f.Name, f.Version, f.Joints)
}

// MustParse is Parse for embedded layouts.
func MustParse(data []byte) *Layout {
	l, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return l
}

// LoadLayout reads a YAML layout from path.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Marshal renders the layout back to YAML.
func (l *Layout) Marshal() ([]byte, error) {
	return yaml.Marshal(layoutFile{Name: l.name, Version: l.version, Joints: l.joints})
}

func (l *Layout) Name() string { return l.name }

func (l *Layout) Version() int { return l.version }

func (l *Layout) NumJoints() int { return len(l.joints) }

func (l *Layout) TotalDOF() int { return l.totalDOF }

func (l *Layout) NumKeyBodies() int { return len(l.keyBody) }

func (l *Layout) Offsets() Offsets { return l.offsets }

// ObservationDim is 1+6+3+3+2*TotalDOF+3*NumKeyBodies.
func (l *Layout) ObservationDim() int { return l.offsets.Dim }

// Joints returns a copy of the joint table.
func (l *Layout) Joints() []JointDef {
	return append([]JointDef(nil), l.joints...)
}

// Joint returns the definition at index i.
func (l *Layout) Joint(i int) JointDef {
	return l.joints[i]
}

// KeyBodyIndices returns joint indices flagged as key bodies, in layout order.
func (l *Layout) KeyBodyIndices() []int {
	return append([]int(nil), l.keyBody...)
}

// DOFMappings returns the flat DOF index table.
func (l *Layout) DOFMappings() []DOFMapping {
	return append([]DOFMapping(nil), l.dofMap...)
}

// JointIndex looks up a joint by name.
func (l *Layout) JointIndex(name string) (int, bool) {
	i, ok := l.index[name]
	return i, ok
}

// CheckJointNames reports whether names lists exactly the layout's joints in order.
func (l *Layout) CheckJointNames(names []string) error {
	if len(names) != len(l.joints) {
		return fmt.Errorf("%w: got %d joints, want %d", ErrJointMismatch, len(names), len(l.joints))
	}
	for i, name := range names {
		if name != l.joints[i].Name {
			return fmt.Errorf("%w: joint %d is %q, want %q", ErrJointMismatch, i, name, l.joints[i].Name)
		}
	}
	return nil
}
