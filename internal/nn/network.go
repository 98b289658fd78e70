package nn

import (
	"errors"
	"fmt"
)

var (
	ErrLayerShape = errors.New("layer shape mismatch")
	ErrInputDim   = errors.New("input dimension mismatch")
	ErrEmpty      = errors.New("network has no layers")
)

// Layer computes act(W·x + b). Weights are row-major [Out][In].
type Layer struct {
	In         int
	Out        int
	Activation Activation
	Weights    []float32
	Bias       []float32
}

// Network is a feed-forward MLP. It owns its buffers and is read-only after
// construction, so one value can serve any number of concurrent callers.
type Network struct {
	Layers []Layer
}

// Validate checks buffer sizes and that each layer feeds the next.
func (n *Network) Validate() error {
	if len(n.Layers) == 0 {
		return ErrEmpty
	}
	for i, l := range n.Layers {
		if l.In <= 0 || l.Out <= 0 {
			return fmt.Errorf("%w: layer %d has shape %dx%d", ErrLayerShape, i, l.Out, l.In)
		}
		if len(l.Weights) != l.In*l.Out {
			return fmt.Errorf("%w: layer %d has %d weights, want %d", ErrLayerShape, i, len(l.Weights), l.In*l.Out)
		}
		if len(l.Bias) != l.Out {
			return fmt.Errorf("%w: layer %d has %d biases, want %d", ErrLayerShape, i, len(l.Bias), l.Out)
		}
		if !l.Activation.Valid() {
			return fmt.Errorf("%w: layer %d has activation %d", ErrLayerShape, i, uint32(l.Activation))
		}
		if i > 0 && n.Layers[i-1].Out != l.In {
			return fmt.Errorf("%w: layer %d outputs %d but layer %d expects %d", ErrLayerShape, i-1, n.Layers[i-1].Out, i, l.In)
		}
	}
	return nil
}

func (n *Network) InputDim() int {
	if len(n.Layers) == 0 {
		return 0
	}
	return n.Layers[0].In
}

func (n *Network) OutputDim() int {
	if len(n.Layers) == 0 {
		return 0
	}
	return n.Layers[len(n.Layers)-1].Out
}

// Forward evaluates the network on x with float32 accumulation.
func (n *Network) Forward(x []float32) ([]float32, error) {
	if len(n.Layers) == 0 {
		return nil, ErrEmpty
	}
	if len(x) != n.InputDim() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInputDim, len(x), n.InputDim())
	}
	cur := x
	for _, l := range n.Layers {
		next := make([]float32, l.Out)
		for o := 0; o < l.Out; o++ {
			row := l.Weights[o*l.In : (o+1)*l.In]
			sum := l.Bias[o]
			for i, w := range row {
				sum += w * cur[i]
			}
			next[o] = l.Activation.Apply(sum)
		}
		cur = next
	}
	return cur, nil
}

// Activations lists the per-layer activation kinds.
func (n *Network) Activations() []Activation {
	out := make([]Activation, len(n.Layers))
	for i, l := range n.Layers {
		out[i] = l.Activation
	}
	return out
}

// Dims returns the layer widths, input first.
func (n *Network) Dims() []int {
	if len(n.Layers) == 0 {
		return nil
	}
	dims := []int{n.Layers[0].In}
	for _, l := range n.Layers {
		dims = append(dims, l.Out)
	}
	return dims
}
