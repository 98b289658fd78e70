package motion

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"calmkit/internal/log"
	"calmkit/internal/observe"
)

// ClipExt is the extension of clip files found by directory scans.
const ClipExt = ".json"

var ErrEmptyDataset = errors.New("dataset has no clips")

// FrameRef addresses one frame of a dataset.
type FrameRef struct {
	Clip  int
	Frame int
}

// Dataset is an ordered set of clips sharing one encoder.
type Dataset struct {
	enc   *observe.Encoder
	clips []*Clip
}

func NewDataset(enc *observe.Encoder) *Dataset {
	return &Dataset{enc: enc}
}

func (d *Dataset) Add(c *Clip) {
	d.clips = append(d.clips, c)
}

func (d *Dataset) Clips() []*Clip {
	return append([]*Clip(nil), d.clips...)
}

func (d *Dataset) Encoder() *observe.Encoder { return d.enc }

// ObsDim is the encoder's observation length.
func (d *Dataset) ObsDim() int { return d.enc.Dim() }

func (d *Dataset) TotalFrames() int {
	total := 0
	for _, c := range d.clips {
		total += c.NumFrames()
	}
	return total
}

// ByTag returns clips carrying tag, in dataset order.
func (d *Dataset) ByTag(tag string) []*Clip {
	var out []*Clip
	for _, c := range d.clips {
		if c.HasTag(tag) {
			out = append(out, c)
		}
	}
	return out
}

// SampleFrames draws n frames, choosing each clip with probability
// proportional to its frame count and then a frame uniformly within it.
func (d *Dataset) SampleFrames(n int, rng *rand.Rand) []FrameRef {
	total := d.TotalFrames()
	if total == 0 || n <= 0 {
		return nil
	}
	cumulative := make([]int, len(d.clips))
	acc := 0
	for i, c := range d.clips {
		acc += c.NumFrames()
		cumulative[i] = acc
	}
	out := make([]FrameRef, n)
	for i := range out {
		pick := rng.Intn(total)
		ci := sort.SearchInts(cumulative, pick+1)
		out[i] = FrameRef{Clip: ci, Frame: rng.Intn(d.clips[ci].NumFrames())}
	}
	return out
}

// SampleObservations draws n encoded frames, computing clip observations on
// first use.
func (d *Dataset) SampleObservations(n int, rng *rand.Rand) ([][]float32, error) {
	if len(d.clips) == 0 {
		return nil, ErrEmptyDataset
	}
	refs := d.SampleFrames(n, rng)
	out := make([][]float32, len(refs))
	for i, ref := range refs {
		obs, err := d.clips[ref.Clip].Observations(d.enc)
		if err != nil {
			return nil, err
		}
		out[i] = obs[ref.Frame]
	}
	return out, nil
}

// FromManifest loads every clip listed in the manifest at path. Files are
// resolved relative to the manifest. A positive manifest fps overrides the
// clip's own rate. Clips that fail to load are skipped and logged.
func FromManifest(path string, enc *observe.Encoder) (*Dataset, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(path)
	d := NewDataset(enc)
	for _, e := range m.Motions {
		c, err := LoadClip(filepath.Join(base, e.File), enc.Layout())
		if err != nil {
			log.Warn("skipping clip", "file", e.File, "err", err)
			continue
		}
		if e.FPS > 0 {
			c.FPS = e.FPS
		}
		c.Tags = append([]string(nil), e.Tags...)
		d.Add(c)
	}
	if len(d.clips) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyDataset)
	}
	log.Info("loaded dataset", "manifest", path, "clips", len(d.clips), "frames", d.TotalFrames())
	return d, nil
}

// FromDirectory loads every clip file in dir, sorted by name, tagging each
// with tags.
func FromDirectory(dir string, enc *observe.Encoder, tags []string) (*Dataset, error) {
	files, err := clipFiles(dir)
	if err != nil {
		return nil, err
	}
	d := NewDataset(enc)
	for _, name := range files {
		c, err := LoadClip(filepath.Join(dir, name), enc.Layout())
		if err != nil {
			log.Warn("skipping clip", "file", name, "err", err)
			continue
		}
		c.Tags = append([]string(nil), tags...)
		d.Add(c)
	}
	if len(d.clips) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrEmptyDataset)
	}
	return d, nil
}

func clipFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ClipExt {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
