// Package latent holds the latent behavior library: named unit vectors in
// the encoder's latent space, tagged for lookup by the policy side.
package latent

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"golang.org/x/exp/constraints"

	"calmkit/internal/log"
	"calmkit/internal/model"
	"calmkit/internal/nn"
)

// NormTolerance is the largest accepted deviation of a latent norm from 1.
const NormTolerance = 1e-3

var (
	ErrLatentDim = errors.New("latent dimension mismatch")
	ErrNotFound  = errors.New("behavior not found")
)

// Library is the on-disk latent library document.
type Library struct {
	LatentDim int              `json:"latent_dim"`
	Behaviors []model.Behavior `json:"behaviors"`
}

func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lib Library
	if err := json.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("decode library %s: %w", path, err)
	}
	if err := lib.Validate(); err != nil {
		return nil, fmt.Errorf("library %s: %w", path, err)
	}
	return &lib, nil
}

func (l *Library) Save(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks every latent against LatentDim. Norms further than
// NormTolerance from 1 are logged, not rejected.
func (l *Library) Validate() error {
	if l.LatentDim <= 0 {
		return fmt.Errorf("%w: latent_dim=%d", ErrLatentDim, l.LatentDim)
	}
	for i, b := range l.Behaviors {
		if len(b.Latent) != l.LatentDim {
			return fmt.Errorf("%w: behavior %d (%s) has %d values, want %d", ErrLatentDim, i, b.Clip, len(b.Latent), l.LatentDim)
		}
		if n := nn.Norm(b.Latent); math.Abs(n-1) > NormTolerance {
			log.Warn("latent not unit length", "clip", b.Clip, "norm", n)
		}
	}
	return nil
}

func (l *Library) Len() int { return len(l.Behaviors) }

// Get looks up a behavior by exact clip name.
func (l *Library) Get(clip string) (model.Behavior, error) {
	for _, b := range l.Behaviors {
		if b.Clip == clip {
			return b, nil
		}
	}
	return model.Behavior{}, fmt.Errorf("%w: %s", ErrNotFound, clip)
}

// ByTag returns the behaviors carrying tag. An empty tag matches all.
func (l *Library) ByTag(tag string) []model.Behavior {
	var out []model.Behavior
	for _, b := range l.Behaviors {
		if tag == "" || b.HasTag(tag) {
			out = append(out, b)
		}
	}
	return out
}

// Tags lists the distinct tags in first-seen order.
func (l *Library) Tags() []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range l.Behaviors {
		for _, t := range b.Tags {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// Match is a Nearest result.
type Match struct {
	Behavior   model.Behavior `json:"behavior"`
	Similarity float64        `json:"similarity"`
}

// Nearest returns the behavior with the highest cosine similarity to z,
// restricted to tag when it is non-empty.
func (l *Library) Nearest(z []float32, tag string) (Match, error) {
	if len(z) != l.LatentDim {
		return Match{}, fmt.Errorf("%w: query has %d values, want %d", ErrLatentDim, len(z), l.LatentDim)
	}
	best := Match{Similarity: math.Inf(-1)}
	found := false
	for _, b := range l.ByTag(tag) {
		if s := nn.Cosine(z, b.Latent); s > best.Similarity {
			best = Match{Behavior: b, Similarity: s}
			found = true
		}
	}
	if !found {
		return Match{}, fmt.Errorf("%w: tag %q", ErrNotFound, tag)
	}
	return best, nil
}

// Zero is the fallback latent, the first basis vector.
func (l *Library) Zero() []float32 {
	z := make([]float32, max(l.LatentDim, 1))
	z[0] = 1
	return z
}

// SampleRandom returns a copy of a uniformly chosen latent, or Zero when the
// library is empty.
func (l *Library) SampleRandom(rng *rand.Rand) []float32 {
	return l.sample(l.Behaviors, rng)
}

// SampleByTag returns a copy of a uniformly chosen latent carrying tag, or
// Zero when none match.
func (l *Library) SampleByTag(tag string, rng *rand.Rand) []float32 {
	return l.sample(l.ByTag(tag), rng)
}

func (l *Library) sample(from []model.Behavior, rng *rand.Rand) []float32 {
	if len(from) == 0 {
		return l.Zero()
	}
	return append([]float32(nil), from[rng.Intn(len(from))].Latent...)
}

// Interpolate blends z0 toward z1 by alpha and renormalizes.
func Interpolate(z0, z1 []float32, alpha float32) ([]float32, error) {
	if len(z0) != len(z1) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLatentDim, len(z0), len(z1))
	}
	out := make([]float32, len(z0))
	for i := range out {
		out[i] = lerp(z0[i], z1[i], alpha)
	}
	return nn.L2Normalize(out), nil
}

func lerp[T constraints.Float](a, b, t T) T {
	return a + (b-a)*t
}
