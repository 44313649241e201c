package layering

import (
	"reflect"
	"testing"
)

func TestMergeLayersValueMaps(t *testing.T) {
	cases := []struct {
		name   string
		layers []map[string]any
		expect map[string]any
	}{
		{
			name: "stronger layer wins",
			layers: []map[string]any{
				{"title": "Override"},
				{"title": "Base", "description": "Shared"},
			},
			expect: map[string]any{"title": "Override", "description": "Shared"},
		},
		{
			name: "weaker fills missing keys",
			layers: []map[string]any{
				{"title": "Show"},
				{"description": "Inherited"},
				{"description": "Package", "tagline": "Fallback"},
			},
			expect: map[string]any{"title": "Show", "description": "Inherited", "tagline": "Fallback"},
		},
		{
			name: "nested maps merge per key",
			layers: []map[string]any{
				{"images": map[string]any{"thumbnail": "a.png"}},
				{"images": map[string]any{"thumbnail": "b.png", "banner": "c.png"}},
			},
			expect: map[string]any{"images": map[string]any{"thumbnail": "a.png", "banner": "c.png"}},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := MergeLayers(tc.layers...)
			if !reflect.DeepEqual(tc.expect, got) {
				t.Errorf("merged layers mismatch:\nwant: %#v\n got: %#v", tc.expect, got)
			}
		})
	}
}

func TestMergeLayersZeroInput(t *testing.T) {
	type sample struct {
		Value int
	}
	var zero sample
	if got := MergeLayers[sample](); got != zero {
		t.Fatalf("expected MergeLayers() to return zero value, got %+v", got)
	}
}

func TestMergeLayersStructPointers(t *testing.T) {
	type channel struct {
		Volume *int
	}
	type settings struct {
		Enabled *bool
		Channel *channel
		Tags    []string
	}

	enabled := true
	volume := 7
	strong := settings{Enabled: &enabled}
	weak := settings{Channel: &channel{Volume: &volume}, Tags: []string{"drama"}}

	got := MergeLayers(strong, weak)
	if got.Enabled == nil || !*got.Enabled {
		t.Fatalf("expected strong Enabled to survive, got %+v", got)
	}
	if got.Channel == nil || got.Channel.Volume == nil || *got.Channel.Volume != 7 {
		t.Fatalf("expected weak Channel to fill the gap, got %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "drama" {
		t.Fatalf("expected weak Tags to fill the gap, got %+v", got)
	}
}

func TestCloneDetachesMapsAndSlices(t *testing.T) {
	original := map[string]any{
		"tags":  []string{"news", "local"},
		"extra": map[string]any{"lang": "en"},
	}

	cloned := Clone(original)
	cloned["tags"].([]string)[0] = "mutated"
	cloned["extra"].(map[string]any)["lang"] = "de"

	if original["tags"].([]string)[0] != "news" {
		t.Fatalf("clone shares slice storage with original")
	}
	if original["extra"].(map[string]any)["lang"] != "en" {
		t.Fatalf("clone shares map storage with original")
	}
}
