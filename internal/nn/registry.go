package nn

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

const (
	SupportedSchemaVersion = 1
	SupportedCodecVersion  = 1
)

var (
	ErrActivationExists   = errors.New("activation already registered")
	ErrActivationNotFound = errors.New("activation not found")
	ErrActivationVersion  = errors.New("activation version mismatch")
)

// Activation is the pointwise nonlinearity applied after a layer. The numeric
// values are the MLP1 file tags.
type Activation uint32

const (
	ActNone Activation = iota
	ActReLU
	ActTanh
	ActELU
)

// Valid reports whether a is a known activation kind.
func (a Activation) Valid() bool {
	return a <= ActELU
}

func (a Activation) String() string {
	switch a {
	case ActNone:
		return "none"
	case ActReLU:
		return "relu"
	case ActTanh:
		return "tanh"
	case ActELU:
		return "elu"
	default:
		return fmt.Sprintf("activation(%d)", uint32(a))
	}
}

// Apply evaluates a at x in single precision.
func (a Activation) Apply(x float32) float32 {
	switch a {
	case ActReLU:
		if x > 0 {
			return x
		}
		return 0
	case ActTanh:
		return float32(math.Tanh(float64(x)))
	case ActELU:
		if x > 0 {
			return x
		}
		return float32(math.Exp(float64(x)) - 1)
	default:
		return x
	}
}

// Apply64 evaluates a at x in double precision.
func (a Activation) Apply64(x float64) float64 {
	switch a {
	case ActReLU:
		return math.Max(x, 0)
	case ActTanh:
		return math.Tanh(x)
	case ActELU:
		if x > 0 {
			return x
		}
		return math.Exp(x) - 1
	default:
		return x
	}
}

// ActivationSpec binds a name, as used by CLI flags and JSON configs, to an
// activation kind.
type ActivationSpec struct {
	Name          string
	Kind          Activation
	SchemaVersion int
	CodecVersion  int
}

type registeredActivation struct {
	kind          Activation
	schemaVersion int
	codecVersion  int
}

var activationRegistry = struct {
	mu sync.RWMutex
	m  map[string]registeredActivation
}{
	m: make(map[string]registeredActivation),
}

func init() {
	initializeBuiltInActivations()
}

func initializeBuiltInActivations() {
	MustRegisterActivation("none", ActNone)
	MustRegisterActivation("identity", ActNone)
	MustRegisterActivation("linear", ActNone)
	MustRegisterActivation("relu", ActReLU)
	MustRegisterActivation("tanh", ActTanh)
	MustRegisterActivation("elu", ActELU)
}

func RegisterActivation(name string, kind Activation) error {
	return RegisterActivationWithSpec(ActivationSpec{
		Name:          name,
		Kind:          kind,
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
	})
}

func MustRegisterActivation(name string, kind Activation) {
	if err := RegisterActivation(name, kind); err != nil {
		panic(err)
	}
}

func RegisterActivationWithSpec(spec ActivationSpec) error {
	if spec.Name == "" {
		return errors.New("activation name is required")
	}
	if !spec.Kind.Valid() {
		return fmt.Errorf("unknown activation kind: %d", uint32(spec.Kind))
	}
	if spec.SchemaVersion != SupportedSchemaVersion || spec.CodecVersion != SupportedCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrActivationVersion, spec.SchemaVersion, spec.CodecVersion)
	}

	activationRegistry.mu.Lock()
	defer activationRegistry.mu.Unlock()

	name := strings.ToLower(spec.Name)
	if _, exists := activationRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrActivationExists, name)
	}

	activationRegistry.m[name] = registeredActivation{
		kind:          spec.Kind,
		schemaVersion: spec.SchemaVersion,
		codecVersion:  spec.CodecVersion,
	}
	return nil
}

// GetActivation resolves a case-insensitive activation name.
func GetActivation(name string) (Activation, error) {
	activationRegistry.mu.RLock()
	entry, ok := activationRegistry.m[strings.ToLower(strings.TrimSpace(name))]
	activationRegistry.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrActivationNotFound, name)
	}
	if entry.schemaVersion != SupportedSchemaVersion || entry.codecVersion != SupportedCodecVersion {
		return 0, fmt.Errorf("%w: %s", ErrActivationVersion, name)
	}
	return entry.kind, nil
}

// ParseActivations resolves a comma-separated list such as "elu,elu,none".
func ParseActivations(list string) ([]Activation, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	parts := strings.Split(list, ",")
	out := make([]Activation, 0, len(parts))
	for _, p := range parts {
		a, err := GetActivation(p)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func ListActivations() []string {
	activationRegistry.mu.RLock()
	defer activationRegistry.mu.RUnlock()

	names := make([]string, 0, len(activationRegistry.m))
	for name := range activationRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetActivationRegistryForTests() {
	activationRegistry.mu.Lock()
	activationRegistry.m = make(map[string]registeredActivation)
	activationRegistry.mu.Unlock()
	initializeBuiltInActivations()
}
