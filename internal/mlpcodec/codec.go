// Package mlpcodec reads and writes MLP weight files.
//
// Two little-endian layouts coexist and are told apart by their first four
// bytes:
//
//	MLP1:     magic 0x4D4C5031, version 1, numLayers,
//	          then per layer: in, out, activation tag, weights[out*in], bias[out]
//	MLP\x01:  magic 0x4D4C5001, numLayers,
//	          then per layer: in, out, weights[out*in], bias[out]
//
// Every header and count is uint32 and every value float32. Weights are
// row-major with rows indexed by output neuron. A file must be exactly the
// size its headers imply. MLP\x01 stores no activations: hidden layers are
// ELU and the output layer is linear.
package mlpcodec

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"strings"

	"calmkit/internal/nn"
)

const (
	MagicMLP1   uint32 = 0x4D4C5031
	MagicMLPv01 uint32 = 0x4D4C5001
	VersionMLP1 uint32 = 1
)

// Format selects one of the two file layouts.
type Format int

const (
	FormatMLP1 Format = iota + 1
	FormatMLPv01
)

func (f Format) String() string {
	switch f {
	case FormatMLP1:
		return "mlp1"
	case FormatMLPv01:
		return "mlp01"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat accepts "mlp1" and "mlp01" (case-insensitive).
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mlp1":
		return FormatMLP1, nil
	case "mlp01", "mlp\\x01", "unicon":
		return FormatMLPv01, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

func (f Format) magic() uint32 {
	if f == FormatMLPv01 {
		return MagicMLPv01
	}
	return MagicMLP1
}

func (f Format) headerSize() uint64 {
	if f == FormatMLPv01 {
		return 8
	}
	return 12
}

func (f Format) layerHeaderSize() uint64 {
	if f == FormatMLPv01 {
		return 8
	}
	return 12
}

// DetectFormat inspects the magic number.
func DetectFormat(data []byte) (Format, error) {
	if len(data) < 4 {
		return 0, formatErr("decode", "length", 4, uint64(len(data)), ErrTruncated)
	}
	switch m := binary.LittleEndian.Uint32(data); m {
	case MagicMLP1:
		return FormatMLP1, nil
	case MagicMLPv01:
		return FormatMLPv01, nil
	default:
		return 0, formatErr("decode", "magic", uint64(MagicMLP1), uint64(m), ErrBadMagic)
	}
}

// EncodedSize returns header + Σ(layer header + 4·out·in + 4·out).
func EncodedSize(net *nn.Network, f Format) uint64 {
	size := f.headerSize()
	for _, l := range net.Layers {
		size += f.layerHeaderSize() + 4*uint64(l.Out)*uint64(l.In) + 4*uint64(l.Out)
	}
	return size
}

// Decode parses a weight file of either format.
func Decode(data []byte) (*nn.Network, Format, error) {
	f, err := DetectFormat(data)
	if err != nil {
		return nil, 0, err
	}
	r := reader{data: data, off: 4}

	if f == FormatMLP1 {
		version, err := r.uint32("version")
		if err != nil {
			return nil, 0, err
		}
		if version != VersionMLP1 {
			return nil, 0, formatErr("decode", "version", uint64(VersionMLP1), uint64(version), ErrBadVersion)
		}
	}
	numLayers, err := r.uint32("num_layers")
	if err != nil {
		return nil, 0, err
	}
	if numLayers == 0 {
		return nil, 0, formatErr("decode", "num_layers", 1, 0, ErrLayerShape)
	}

	expected := f.headerSize()
	layers := make([]nn.Layer, 0, min(uint64(numLayers), uint64(len(data))/f.layerHeaderSize()))
	for i := uint32(0); i < numLayers; i++ {
		field := fmt.Sprintf("layer[%d]", i)
		in, err := r.uint32(field + ".in")
		if err != nil {
			return nil, 0, err
		}
		out, err := r.uint32(field + ".out")
		if err != nil {
			return nil, 0, err
		}
		if in == 0 || out == 0 {
			return nil, 0, formatErr("decode", field+".width", 1, 0, ErrLayerShape)
		}
		if len(layers) > 0 {
			if prev := layers[len(layers)-1].Out; uint32(prev) != in {
				return nil, 0, formatErr("decode", field+".in", uint64(prev), uint64(in), ErrLayerShape)
			}
		}

		act := nn.ActNone
		if f == FormatMLP1 {
			tag, err := r.uint32(field + ".activation")
			if err != nil {
				return nil, 0, err
			}
			act = nn.Activation(tag)
			if !act.Valid() {
				return nil, 0, formatErr("decode", field+".activation", uint64(nn.ActELU), uint64(tag), ErrBadActivation)
			}
		} else if i < numLayers-1 {
			act = nn.ActELU
		}

		remaining := uint64(len(data) - r.off)
		hi, cells := bits.Mul64(uint64(out), uint64(in)+1)
		if hi != 0 || cells > remaining/4 {
			want := uint64(math.MaxUint64)
			if hi == 0 && cells <= math.MaxUint64/4 {
				want = 4 * cells
			}
			return nil, 0, formatErr("decode", field+".payload", want, remaining, ErrTruncated)
		}
		payload := 4 * cells
		expected += f.layerHeaderSize() + payload
		weights := r.floats(int(out) * int(in))
		bias := r.floats(int(out))
		layers = append(layers, nn.Layer{
			In:         int(in),
			Out:        int(out),
			Activation: act,
			Weights:    weights,
			Bias:       bias,
		})
	}

	if uint64(len(data)) != expected {
		return nil, 0, formatErr("decode", "file_size", expected, uint64(len(data)), ErrSizeMismatch)
	}
	return &nn.Network{Layers: layers}, f, nil
}

// Encode serializes net. The result is exactly EncodedSize(net, f) bytes.
// MLP\x01 only accepts networks following its fixed activation convention.
func Encode(net *nn.Network, f Format) ([]byte, error) {
	if f != FormatMLP1 && f != FormatMLPv01 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
	for i, l := range net.Layers {
		if int64(l.In) > math.MaxUint32 || int64(l.Out) > math.MaxUint32 {
			return nil, formatErr("encode", fmt.Sprintf("layer[%d].width", i), math.MaxUint32, uint64(max(l.In, l.Out)), ErrLayerShape)
		}
	}
	if err := net.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLayerShape, err)
	}
	if f == FormatMLPv01 {
		for i, l := range net.Layers {
			want := nn.ActELU
			if i == len(net.Layers)-1 {
				want = nn.ActNone
			}
			if l.Activation != want {
				return nil, formatErr("encode", fmt.Sprintf("layer[%d].activation", i), uint64(want), uint64(l.Activation), ErrBadActivation)
			}
		}
	}

	size := EncodedSize(net, f)
	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint32(buf, f.magic())
	if f == FormatMLP1 {
		buf = binary.LittleEndian.AppendUint32(buf, VersionMLP1)
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(net.Layers)))
	for _, l := range net.Layers {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(l.In))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(l.Out))
		if f == FormatMLP1 {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(l.Activation))
		}
		for _, w := range l.Weights {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(w))
		}
		for _, b := range l.Bias {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(b))
		}
	}
	if uint64(len(buf)) != size {
		return nil, formatErr("encode", "size", size, uint64(len(buf)), ErrSizeMismatch)
	}
	return buf, nil
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) uint32(field string) (uint32, error) {
	if len(r.data)-r.off < 4 {
		return 0, formatErr("decode", field, uint64(r.off+4), uint64(len(r.data)), ErrTruncated)
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

// floats reads n values; the caller has checked the remaining length.
func (r *reader) floats(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.off:]))
		r.off += 4
	}
	return out
}
