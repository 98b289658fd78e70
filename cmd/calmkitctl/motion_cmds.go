package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"

	"calmkit/internal/motion"
	"calmkit/internal/observe"
)

func runInfo(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	layoutPath := fs.String("layout", "", "joint layout YAML (default: built-in humanoid)")
	jsonOut := fs.Bool("json", false, "emit layout summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	layout, err := loadLayout(*layoutPath)
	if err != nil {
		return err
	}

	offsets := layout.Offsets()
	if *jsonOut {
		return printJSON(map[string]any{
			"name":            layout.Name(),
			"version":         layout.Version(),
			"joints":          layout.Joints(),
			"total_dof":       layout.TotalDOF(),
			"key_bodies":      layout.KeyBodyIndices(),
			"offsets":         offsets,
			"observation_dim": layout.ObservationDim(),
			"encoder_input":   observe.EncoderSteps * layout.ObservationDim(),
		})
	}
	fmt.Printf("layout=%s version=%d joints=%d dof=%d key_bodies=%d obs_dim=%d encoder_input=%d\n",
		layout.Name(), layout.Version(), layout.NumJoints(), layout.TotalDOF(), layout.NumKeyBodies(),
		layout.ObservationDim(), observe.EncoderSteps*layout.ObservationDim())
	fmt.Printf("offsets root_height=%d root_rotation=%d root_velocity=%d root_angular_velocity=%d dof_positions=%d dof_velocities=%d key_body_positions=%d\n",
		offsets.RootHeight, offsets.RootRotation, offsets.RootVelocity, offsets.RootAngularVelocity,
		offsets.DOFPositions, offsets.DOFVelocities, offsets.KeyBodyPositions)
	for i, j := range layout.Joints() {
		fmt.Printf("joint=%d name=%s bone=%s dof=%d key_body=%t\n", i, j.Name, j.EngineBone, j.DOF, j.KeyBody)
	}
	return nil
}

func runEncode(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	clipPath := fs.String("clip", "", "clip file path")
	layoutPath := fs.String("layout", "", "joint layout YAML (default: built-in humanoid)")
	stack := fs.Int("stack", 1, "observations stacked per output row, oldest first")
	out := fs.String("out", "", "write observations as JSON to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *clipPath == "" {
		return errors.New("encode requires --clip")
	}
	if *stack <= 0 {
		return errors.New("stack must be > 0")
	}
	layout, err := loadLayout(*layoutPath)
	if err != nil {
		return err
	}
	enc := observe.NewEncoder(layout)

	clip, err := motion.LoadClip(*clipPath, layout)
	if err != nil {
		return err
	}
	obs, err := clip.Observations(enc)
	if err != nil {
		return err
	}

	rows := obs
	if *stack > 1 {
		hist := observe.NewHistory(enc.Dim(), *stack)
		rows = make([][]float32, 0, len(obs))
		for _, o := range obs {
			if err := hist.Push(o); err != nil {
				return err
			}
			rows = append(rows, hist.Stacked(*stack))
		}
	}

	if *out != "" {
		if err := writeJSON(*out, rows); err != nil {
			return err
		}
	}
	fmt.Printf("encoded clip=%s frames=%d fps=%g width=%d\n", clip.Name, clip.NumFrames(), clip.FPS, len(rows[0]))
	return nil
}

func runManifestGenerate(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("manifest-generate", flag.ContinueOnError)
	dir := fs.String("dir", "", "directory of clip files")
	out := fs.String("out", "", "manifest path (default: <dir>/manifest.yaml)")
	layoutPath := fs.String("layout", "", "joint layout YAML (default: built-in humanoid)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return errors.New("manifest-generate requires --dir")
	}
	layout, err := loadLayout(*layoutPath)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = filepath.Join(*dir, "manifest.yaml")
	}

	m, err := motion.GenerateManifest(*dir, layout)
	if err != nil {
		return err
	}
	if err := motion.SaveManifest(path, m); err != nil {
		return err
	}
	fmt.Printf("manifest path=%s motions=%d\n", path, len(m.Motions))
	return nil
}

func runManifestValidate(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("manifest-validate", flag.ContinueOnError)
	path := fs.String("manifest", "", "manifest path")
	layoutPath := fs.String("layout", "", "joint layout YAML (default: built-in humanoid)")
	jsonOut := fs.Bool("json", false, "emit report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("manifest-validate requires --manifest")
	}
	layout, err := loadLayout(*layoutPath)
	if err != nil {
		return err
	}

	report, err := motion.ValidateManifest(*path, layout)
	if err != nil {
		return err
	}
	if *jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		for _, e := range report.Entries {
			if e.OK {
				fmt.Printf("ok file=%s frames=%d\n", e.File, e.Frames)
			} else {
				fmt.Printf("error file=%s reason=%s\n", e.File, e.Error)
			}
		}
		fmt.Printf("summary ok=%d errors=%d\n", report.OK, report.Errors)
	}
	if !report.Valid() {
		return fmt.Errorf("manifest %s has %d invalid entries", *path, report.Errors)
	}
	return nil
}
