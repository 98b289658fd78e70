package nn

import (
	"fmt"
	"math"
	"math/rand"
)

// NewRandom builds a network with Xavier-normal weights, stddev
// sqrt(2/(in+out)), and zero biases. dims lists layer widths input first;
// acts has one entry per layer.
func NewRandom(dims []int, acts []Activation, seed int64) (*Network, error) {
	if len(dims) < 2 {
		return nil, fmt.Errorf("%w: need at least two dims, got %v", ErrLayerShape, dims)
	}
	if len(acts) != len(dims)-1 {
		return nil, fmt.Errorf("%w: %d activations for %d layers", ErrLayerShape, len(acts), len(dims)-1)
	}
	rng := rand.New(rand.NewSource(seed))
	net := &Network{Layers: make([]Layer, 0, len(acts))}
	for i, act := range acts {
		in, out := dims[i], dims[i+1]
		if in <= 0 || out <= 0 {
			return nil, fmt.Errorf("%w: layer %d has shape %dx%d", ErrLayerShape, i, out, in)
		}
		std := math.Sqrt(2.0 / float64(in+out))
		w := make([]float32, in*out)
		for j := range w {
			w[j] = float32(rng.NormFloat64() * std)
		}
		net.Layers = append(net.Layers, Layer{
			In:         in,
			Out:        out,
			Activation: act,
			Weights:    w,
			Bias:       make([]float32, out),
		})
	}
	return net, nil
}

// HiddenELU returns the activation list for an MLP with ELU hidden layers
// and a linear output, the fixed convention of headerless weight files.
func HiddenELU(layers int) []Activation {
	acts := make([]Activation, layers)
	for i := 0; i < layers-1; i++ {
		acts[i] = ActELU
	}
	return acts
}
