package motion

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"calmkit/internal/log"
	"calmkit/internal/skeleton"
)

// Manifest lists the clips of a dataset.
type Manifest struct {
	Motions []ManifestEntry `yaml:"motions"`
}

type ManifestEntry struct {
	File string   `yaml:"file"`
	FPS  float64  `yaml:"fps,omitempty"`
	Tags []string `yaml:"tags,flow"`
}

func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return m, nil
}

func SaveManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// GenerateManifest scans dir for clip files and builds an entry for each
// readable one, with the rounded fps and tags inferred from the file name.
func GenerateManifest(dir string, layout *skeleton.Layout) (Manifest, error) {
	files, err := clipFiles(dir)
	if err != nil {
		return Manifest{}, err
	}
	if len(files) == 0 {
		return Manifest{}, fmt.Errorf("%s: %w", dir, ErrEmptyDataset)
	}
	var m Manifest
	for _, name := range files {
		c, err := LoadClip(filepath.Join(dir, name), layout)
		if err != nil {
			log.Error("manifest entry failed", "file", name, "err", err)
			continue
		}
		fps := c.FPS
		if fps <= 0 {
			fps = DefaultFPS
		}
		entry := ManifestEntry{
			File: name,
			FPS:  math.Round(fps),
			Tags: InferTags(strings.TrimSuffix(name, filepath.Ext(name))),
		}
		log.Info("manifest entry", "file", name, "frames", c.NumFrames(), "duration", c.Duration(), "tags", entry.Tags)
		m.Motions = append(m.Motions, entry)
	}
	return m, nil
}

// EntryStatus is the validation outcome for one manifest entry.
type EntryStatus struct {
	File   string `json:"file"`
	OK     bool   `json:"ok"`
	Frames int    `json:"frames,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ValidationReport summarizes ValidateManifest.
type ValidationReport struct {
	Entries []EntryStatus `json:"entries"`
	OK      int           `json:"ok"`
	Errors  int           `json:"errors"`
}

func (r ValidationReport) Valid() bool { return r.Errors == 0 }

// ValidateManifest checks that every listed file exists and has consistent
// shapes for layout.
func ValidateManifest(path string, layout *skeleton.Layout) (ValidationReport, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return ValidationReport{}, err
	}
	base := filepath.Dir(path)
	var r ValidationReport
	for _, e := range m.Motions {
		st := EntryStatus{File: e.File}
		full := filepath.Join(base, e.File)
		if _, err := os.Stat(full); err != nil {
			st.Error = "missing"
		} else if c, err := LoadClip(full, layout); err != nil {
			st.Error = err.Error()
		} else {
			st.OK = true
			st.Frames = c.NumFrames()
		}
		if st.OK {
			r.OK++
		} else {
			r.Errors++
			log.Error("manifest entry invalid", "file", e.File, "err", st.Error)
		}
		r.Entries = append(r.Entries, st)
	}
	return r, nil
}

var manifestTagKeywords = []struct {
	keyword string
	tags    []string
}{
	{"walk", []string{"walk", "locomotion"}},
	{"run", []string{"run", "locomotion"}},
	{"sprint", []string{"run", "sprint", "locomotion"}},
	{"jog", []string{"run", "jog", "locomotion"}},
	{"idle", []string{"idle"}},
	{"stand", []string{"idle"}},
	{"crouch", []string{"crouch"}},
	{"sneak", []string{"crouch", "sneak"}},
	{"kick", []string{"kick", "strike"}},
	{"punch", []string{"punch", "strike"}},
	{"strike", []string{"strike"}},
	{"jump", []string{"jump"}},
	{"turn", []string{"turn"}},
}

// InferTags derives dataset tags from a clip file stem by keyword match.
// Stems with no known keyword get "unknown".
func InferTags(stem string) []string {
	lower := strings.ToLower(stem)
	var tags []string
	seen := make(map[string]bool)
	for _, kw := range manifestTagKeywords {
		if !strings.Contains(lower, kw.keyword) {
			continue
		}
		for _, t := range kw.tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	if len(tags) == 0 {
		return []string{"unknown"}
	}
	return tags
}
