package mlpcodec

import (
	"math"
	"os"

	"calmkit/internal/nn"
)

// WriteFile encodes net to path and verifies the on-disk size.
func WriteFile(path string, net *nn.Network, f Format) error {
	data, err := Encode(net, f)
	if err != nil {
		return withPath(err, path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if want := EncodedSize(net, f); uint64(info.Size()) != want {
		return withPath(formatErr("write", "file_size", want, uint64(info.Size()), ErrSizeMismatch), path)
	}
	return nil
}

// ReadFile loads and decodes the whole file at path.
func ReadFile(path string) (*nn.Network, Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	net, f, err := Decode(data)
	if err != nil {
		return nil, 0, withPath(err, path)
	}
	return net, f, nil
}

// LayerSummary describes one decoded layer.
type LayerSummary struct {
	Index      int     `json:"index"`
	In         int     `json:"in"`
	Out        int     `json:"out"`
	Activation string  `json:"activation"`
	Params     int     `json:"params"`
	WeightMin  float32 `json:"weight_min"`
	WeightMax  float32 `json:"weight_max"`
	BiasMin    float32 `json:"bias_min"`
	BiasMax    float32 `json:"bias_max"`
}

// Summarize reports shape and value ranges per layer.
func Summarize(net *nn.Network) []LayerSummary {
	out := make([]LayerSummary, 0, len(net.Layers))
	for i, l := range net.Layers {
		wMin, wMax := span(l.Weights)
		bMin, bMax := span(l.Bias)
		out = append(out, LayerSummary{
			Index:      i,
			In:         l.In,
			Out:        l.Out,
			Activation: l.Activation.String(),
			Params:     len(l.Weights) + len(l.Bias),
			WeightMin:  wMin,
			WeightMax:  wMax,
			BiasMin:    bMin,
			BiasMax:    bMax,
		})
	}
	return out
}

func span(v []float32) (float32, float32) {
	if len(v) == 0 {
		return 0, 0
	}
	lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
	for _, x := range v {
		lo = min(lo, x)
		hi = max(hi, x)
	}
	return lo, hi
}
