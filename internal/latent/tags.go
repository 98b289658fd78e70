package latent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var libraryTagKeywords = []struct {
	keyword string
	tags    []string
}{
	{"walk", []string{"walk"}},
	{"run", []string{"run"}},
	{"sprint", []string{"run", "sprint"}},
	{"jog", []string{"run", "jog"}},
	{"idle", []string{"idle"}},
	{"stand", []string{"idle"}},
	{"crouch", []string{"crouch"}},
	{"sneak", []string{"crouch", "sneak"}},
	{"kick", []string{"kick", "strike"}},
	{"punch", []string{"punch", "strike"}},
	{"strike", []string{"strike"}},
	{"attack", []string{"strike"}},
	{"jump", []string{"jump"}},
	{"roll", []string{"roll"}},
	{"dodge", []string{"dodge"}},
	{"turn", []string{"turn"}},
	{"strafe", []string{"strafe"}},
}

// InferTags derives library tags from a clip file name. Names with no known
// keyword get "unknown".
func InferTags(clip string) []string {
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(clip), filepath.Ext(clip)))
	seen := make(map[string]bool)
	var tags []string
	for _, kw := range libraryTagKeywords {
		if !strings.Contains(stem, kw.keyword) {
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

// LoadTagsFile reads a clip→tags mapping, either as an object keyed by clip
// name or as a list of {"clip", "tags"} entries.
func LoadTagsFile(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var byClip map[string][]string
	if err := json.Unmarshal(data, &byClip); err == nil {
		return byClip, nil
	}
	var entries []struct {
		Clip string   `json:"clip"`
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("tags file %s: unexpected format", path)
	}
	byClip = make(map[string][]string, len(entries))
	for _, e := range entries {
		byClip[e.Clip] = e.Tags
	}
	return byClip, nil
}
