package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"

	"calmkit/internal/latent"
	"calmkit/internal/mlpcodec"
	"calmkit/internal/motion"
	"calmkit/internal/observe"
)

func runLibraryDummy(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("library-dummy", flag.ContinueOnError)
	out := fs.String("out", "data/calm/latent_library.json", "output library path")
	dim := fs.Int("dim", 64, "latent dimension")
	seed := fs.Int64("seed", 42, "rng seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dim <= 0 {
		return errors.New("dim must be > 0")
	}

	lib := latent.Dummy(*dim, *seed)
	if err := lib.Save(*out); err != nil {
		return err
	}
	fmt.Printf("library path=%s behaviors=%d latent_dim=%d\n", *out, lib.Len(), lib.LatentDim)
	return nil
}

func runLibraryEncode(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("library-encode", flag.ContinueOnError)
	encoderPath := fs.String("encoder", "", "encoder weight file")
	clipsDir := fs.String("clips", "", "directory of clip files")
	manifestPath := fs.String("manifest", "", "dataset manifest (instead of --clips)")
	tagsFile := fs.String("tags-file", "", "optional clip-to-tags JSON")
	layoutPath := fs.String("layout", "", "joint layout YAML (default: built-in humanoid)")
	out := fs.String("out", "data/calm/latent_library.json", "output library path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *encoderPath == "" {
		return errors.New("library-encode requires --encoder")
	}
	if (*clipsDir == "") == (*manifestPath == "") {
		return errors.New("library-encode requires exactly one of --clips or --manifest")
	}

	layout, err := loadLayout(*layoutPath)
	if err != nil {
		return err
	}
	obsEnc := observe.NewEncoder(layout)

	net, _, err := mlpcodec.ReadFile(*encoderPath)
	if err != nil {
		return err
	}
	enc, err := latent.NewEncoder(net)
	if err != nil {
		return err
	}

	var ds *motion.Dataset
	if *manifestPath != "" {
		ds, err = motion.FromManifest(*manifestPath, obsEnc)
	} else {
		ds, err = motion.FromDirectory(*clipsDir, obsEnc, nil)
	}
	if err != nil {
		return err
	}

	var tags map[string][]string
	if *tagsFile != "" {
		if tags, err = latent.LoadTagsFile(*tagsFile); err != nil {
			return err
		}
	}

	lib, err := enc.EncodeClips(ds.Clips(), obsEnc, tags)
	if err != nil {
		return err
	}
	if err := lib.Save(*out); err != nil {
		return err
	}
	fmt.Printf("library path=%s behaviors=%d latent_dim=%d encoder_input=%d\n", *out, lib.Len(), lib.LatentDim, enc.InputDim())
	return nil
}

func runLibraryQuery(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("library-query", flag.ContinueOnError)
	path := fs.String("library", "", "library path")
	tag := fs.String("tag", "", "restrict to behaviors with this tag")
	nearest := fs.String("nearest", "", "comma-separated latent to match by cosine similarity")
	sample := fs.Bool("sample", false, "print a random latent (from --tag when set)")
	seed := fs.Int64("seed", 1, "rng seed for --sample")
	jsonOut := fs.Bool("json", false, "emit results as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("library-query requires --library")
	}
	lib, err := latent.Load(*path)
	if err != nil {
		return err
	}

	switch {
	case *nearest != "":
		z, err := parseFloats(*nearest)
		if err != nil {
			return err
		}
		match, err := lib.Nearest(z, *tag)
		if err != nil {
			return err
		}
		if *jsonOut {
			return printJSON(match)
		}
		fmt.Printf("nearest clip=%s similarity=%.6f tags=%v\n", match.Behavior.Clip, match.Similarity, match.Behavior.Tags)
	case *sample:
		rng := rand.New(rand.NewSource(*seed))
		z := lib.SampleRandom(rng)
		if *tag != "" {
			z = lib.SampleByTag(*tag, rng)
		}
		return printJSON(z)
	default:
		behaviors := lib.ByTag(*tag)
		if *jsonOut {
			return printJSON(behaviors)
		}
		for _, b := range behaviors {
			fmt.Printf("clip=%s tags=%v\n", b.Clip, b.Tags)
		}
		fmt.Printf("behaviors=%d latent_dim=%d tags=%v\n", len(behaviors), lib.LatentDim, lib.Tags())
	}
	return nil
}
