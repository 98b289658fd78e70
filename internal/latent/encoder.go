package latent

import (
	"fmt"
	"math"
	"math/rand"

	"calmkit/internal/log"
	"calmkit/internal/model"
	"calmkit/internal/motion"
	"calmkit/internal/nn"
	"calmkit/internal/observe"
)

// Encoder maps flattened observation windows to unit latents.
type Encoder struct {
	net *nn.Network
}

func NewEncoder(net *nn.Network) (*Encoder, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{net: net}, nil
}

func (e *Encoder) InputDim() int { return e.net.InputDim() }

func (e *Encoder) LatentDim() int { return e.net.OutputDim() }

// Encode truncates or zero-pads x to the input width, runs the network and
// L2-normalizes the output.
func (e *Encoder) Encode(x []float32) ([]float32, error) {
	out, err := e.net.Forward(fit(x, e.InputDim()))
	if err != nil {
		return nil, err
	}
	return nn.L2Normalize(out), nil
}

// EncodeClips builds a library with one behavior per clip. Each clip's
// observations are flattened frame by frame. Tags come from tags by clip
// file name, then the clip's own tags, then InferTags.
func (e *Encoder) EncodeClips(clips []*motion.Clip, enc *observe.Encoder, tags map[string][]string) (*Library, error) {
	lib := &Library{LatentDim: e.LatentDim()}
	for _, c := range clips {
		obs, err := c.Observations(enc)
		if err != nil {
			return nil, err
		}
		flat := make([]float32, 0, len(obs)*enc.Dim())
		for _, o := range obs {
			flat = append(flat, o...)
		}
		z, err := e.Encode(flat)
		if err != nil {
			return nil, fmt.Errorf("encode clip %s: %w", c.Name, err)
		}
		name := c.Name + motion.ClipExt
		bt, ok := tags[name]
		switch {
		case ok:
		case len(c.Tags) > 0:
			bt = append([]string(nil), c.Tags...)
		default:
			bt = InferTags(name)
		}
		lib.Behaviors = append(lib.Behaviors, model.Behavior{Clip: name, Tags: bt, Latent: z})
		log.Debug("encoded clip", "clip", name, "tags", bt)
	}
	return lib, nil
}

func fit(x []float32, n int) []float32 {
	out := make([]float32, n)
	copy(out, x)
	return out
}

var dummyBehaviors = []struct {
	name string
	tags []string
}{
	{"walk_forward", []string{"walk", "locomotion"}},
	{"walk_backward", []string{"walk", "locomotion"}},
	{"run_forward", []string{"run", "locomotion"}},
	{"run_fast", []string{"run", "sprint", "locomotion"}},
	{"jog", []string{"run", "jog", "locomotion"}},
	{"idle_stand", []string{"idle"}},
	{"idle_look", []string{"idle"}},
	{"crouch_walk", []string{"crouch", "locomotion"}},
	{"crouch_idle", []string{"crouch", "idle"}},
	{"kick_right", []string{"kick", "strike"}},
	{"punch_jab", []string{"punch", "strike"}},
	{"jump_forward", []string{"jump"}},
	{"roll_forward", []string{"roll", "dodge"}},
	{"turn_left", []string{"turn"}},
	{"strafe_right", []string{"strafe", "locomotion"}},
}

// Dummy builds a deterministic library of gaussian unit latents for tests
// and engine bring-up. Values are rounded to six decimals.
func Dummy(dim int, seed int64) *Library {
	rng := rand.New(rand.NewSource(seed))
	lib := &Library{LatentDim: dim}
	for _, d := range dummyBehaviors {
		v := make([]float64, dim)
		var sum float64
		for i := range v {
			v[i] = rng.NormFloat64()
			sum += v[i] * v[i]
		}
		norm := math.Sqrt(sum)
		z := make([]float32, dim)
		for i := range v {
			z[i] = float32(math.Round(v[i]/norm*1e6) / 1e6)
		}
		lib.Behaviors = append(lib.Behaviors, model.Behavior{
			Clip:   d.name + motion.ClipExt,
			Tags:   append([]string(nil), d.tags...),
			Latent: z,
		})
	}
	return lib
}
