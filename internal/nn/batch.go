package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ForwardBatch evaluates every row of xs in double precision as one matrix
// product per layer, X·Wᵀ + b. It shares no arithmetic with Forward and
// serves as the reference evaluation.
func (n *Network) ForwardBatch(xs [][]float32) ([][]float64, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return nil, nil
	}
	in := n.InputDim()
	data := make([]float64, 0, len(xs)*in)
	for r, x := range xs {
		if len(x) != in {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrInputDim, r, len(x), in)
		}
		for _, v := range x {
			data = append(data, float64(v))
		}
	}
	cur := mat.NewDense(len(xs), in, data)

	for _, l := range n.Layers {
		w := mat.NewDense(l.Out, l.In, widen(l.Weights))
		var next mat.Dense
		next.Mul(cur, w.T())
		bias := widen(l.Bias)
		act := l.Activation
		next.Apply(func(_, j int, v float64) float64 {
			return act.Apply64(v + bias[j])
		}, &next)
		cur = &next
	}

	rows, _ := cur.Dims()
	out := make([][]float64, rows)
	for r := range out {
		out[r] = mat.Row(nil, r, cur)
	}
	return out, nil
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
