package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"

	"calmkit/internal/mlpcodec"
	"calmkit/internal/nn"
	"calmkit/internal/storage"
)

const (
	// forwardTolerance bounds the relative gap between the float32 forward
	// pass and the float64 matrix reference.
	forwardTolerance = 1e-4
	relativeGapFloor = 1e-6
)

func runExportRandom(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("export-random", flag.ContinueOnError)
	dimsFlag := fs.String("dims", "612,1024,512,64", "layer widths, input first")
	actsFlag := fs.String("acts", "", "per-layer activations (default: elu hidden, none output)")
	formatName := fs.String("format", "mlp1", "weight format: mlp1|mlp01")
	seed := fs.Int64("seed", 42, "rng seed")
	out := fs.String("out", "", "output weight file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("export-random requires --out")
	}

	dims, err := parseInts(*dimsFlag)
	if err != nil {
		return err
	}
	format, err := mlpcodec.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	acts := nn.HiddenELU(max(len(dims)-1, 0))
	if *actsFlag != "" {
		if acts, err = nn.ParseActivations(*actsFlag); err != nil {
			return err
		}
	}

	net, err := nn.NewRandom(dims, acts, *seed)
	if err != nil {
		return err
	}
	if err := mlpcodec.WriteFile(*out, net, format); err != nil {
		return err
	}
	fmt.Printf("exported path=%s format=%s dims=%v bytes=%d\n", *out, format, net.Dims(), mlpcodec.EncodedSize(net, format))
	return nil
}

func runVerify(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	path := fs.String("model", "", "weight file path")
	inputDim := fs.Int("input-dim", 0, "expected input width (0 skips)")
	outputDim := fs.Int("output-dim", 0, "expected output width (0 skips)")
	samples := fs.Int("samples", 8, "random inputs for the forward equivalence check")
	seed := fs.Int64("seed", 1, "rng seed for check inputs")
	jsonOut := fs.Bool("json", false, "emit layer summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("verify requires --model")
	}

	net, format, err := mlpcodec.ReadFile(*path)
	if err != nil {
		return err
	}
	if *inputDim > 0 && net.InputDim() != *inputDim {
		return fmt.Errorf("input dim mismatch: file=%d expected=%d", net.InputDim(), *inputDim)
	}
	if *outputDim > 0 && net.OutputDim() != *outputDim {
		return fmt.Errorf("output dim mismatch: file=%d expected=%d", net.OutputDim(), *outputDim)
	}

	maxRel, err := forwardEquivalence(net, *samples, *seed)
	if err != nil {
		return err
	}
	summary := mlpcodec.Summarize(net)

	if *jsonOut {
		return printJSON(struct {
			Path          string                  `json:"path"`
			Format        string                  `json:"format"`
			Layers        []mlpcodec.LayerSummary `json:"layers"`
			MaxForwardRel float64                 `json:"max_forward_rel"`
		}{Path: *path, Format: format.String(), Layers: summary, MaxForwardRel: maxRel})
	}
	fmt.Printf("verified path=%s format=%s layers=%d input=%d output=%d max_forward_rel=%.3g\n",
		*path, format, len(net.Layers), net.InputDim(), net.OutputDim(), maxRel)
	for _, l := range summary {
		fmt.Printf("layer=%d %dx%d act=%s params=%d w=[%.4f,%.4f] b=[%.4f,%.4f]\n",
			l.Index, l.Out, l.In, l.Activation, l.Params, l.WeightMin, l.WeightMax, l.BiasMin, l.BiasMax)
	}
	return nil
}

// forwardEquivalence compares Forward against ForwardBatch on random inputs
// and returns the largest relative difference.
func forwardEquivalence(net *nn.Network, samples int, seed int64) (float64, error) {
	if samples <= 0 {
		return 0, nil
	}
	rng := rand.New(rand.NewSource(seed))
	xs := make([][]float32, samples)
	for i := range xs {
		xs[i] = make([]float32, net.InputDim())
		for j := range xs[i] {
			xs[i][j] = float32(rng.Float64()*2 - 1)
		}
	}
	ref, err := net.ForwardBatch(xs)
	if err != nil {
		return 0, err
	}
	var worst float64
	for i, x := range xs {
		got, err := net.Forward(x)
		if err != nil {
			return 0, err
		}
		worst = math.Max(worst, relativeGap(got, ref[i]))
	}
	if worst > forwardTolerance {
		return worst, fmt.Errorf("forward pass disagrees with matrix reference: max_rel=%.3g", worst)
	}
	return worst, nil
}

// relativeGap returns max|got-ref| / max|ref| over one output vector. The
// denominator is floored at relativeGapFloor for all-zero references.
func relativeGap(got []float32, ref []float64) float64 {
	var diff, scale float64
	for j, v := range got {
		diff = math.Max(diff, math.Abs(float64(v)-ref[j]))
		scale = math.Max(scale, math.Abs(ref[j]))
	}
	return diff / math.Max(scale, relativeGapFloor)
}

func runConvert(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	in := fs.String("in", "", "input weight file")
	out := fs.String("out", "", "output weight file")
	formatName := fs.String("format", "mlp1", "output format: mlp1|mlp01")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return errors.New("convert requires --in and --out")
	}
	format, err := mlpcodec.ParseFormat(*formatName)
	if err != nil {
		return err
	}

	net, from, err := mlpcodec.ReadFile(*in)
	if err != nil {
		return err
	}
	if err := mlpcodec.WriteFile(*out, net, format); err != nil {
		return err
	}
	fmt.Printf("converted in=%s from=%s out=%s to=%s\n", *in, from, *out, format)
	return nil
}

func runForward(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("forward", flag.ContinueOnError)
	path := fs.String("model", "", "weight file path")
	name := fs.String("name", "", "stored model name (instead of --model)")
	input := fs.String("input", "", "comma-separated input vector")
	inputFile := fs.String("input-file", "", "JSON file with one input vector or a list of them")
	zeros := fs.Bool("zeros", false, "use an all-zero input")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	net, err := resolveNetwork(ctx, *path, *name, sf)
	if err != nil {
		return err
	}

	var batch [][]float32
	switch {
	case *zeros:
		batch = [][]float32{make([]float32, net.InputDim())}
	case *input != "":
		x, err := parseFloats(*input)
		if err != nil {
			return err
		}
		batch = [][]float32{x}
	case *inputFile != "":
		if batch, err = readInputs(*inputFile); err != nil {
			return err
		}
	default:
		return errors.New("forward requires --input, --input-file or --zeros")
	}

	if len(batch) == 1 {
		out, err := net.Forward(batch[0])
		if err != nil {
			return err
		}
		return printJSON(out)
	}
	out, err := net.ForwardBatch(batch)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func resolveNetwork(ctx context.Context, path, name string, sf storeFlags) (*nn.Network, error) {
	switch {
	case path != "":
		net, _, err := mlpcodec.ReadFile(path)
		return net, err
	case name != "":
		store, err := sf.open(ctx)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = storage.CloseIfSupported(store)
		}()
		record, ok, err := store.GetModel(ctx, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("model not found: %s", name)
		}
		return storage.DecodeModel(record)
	default:
		return nil, errors.New("either --model or --name is required")
	}
}

func readInputs(path string) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var batch [][]float32
	if err := json.Unmarshal(data, &batch); err == nil {
		return batch, nil
	}
	var single []float32
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("input file %s: expected a vector or a list of vectors", path)
	}
	return [][]float32{single}, nil
}
