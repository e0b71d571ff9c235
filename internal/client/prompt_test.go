package client

import (
	"strings"
	"testing"

	"github.com/wavecanvas/api/internal/model"
)

func features(tempo, valence, energy, centroid float64) *model.AudioFeatures {
	return &model.AudioFeatures{
		Tempo:            tempo,
		Valence:          valence,
		Energy:           energy,
		SpectralCentroid: centroid,
		Key:              "G",
		Mode:             "major",
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	f := features(128, 0.65, 0.4, 3000)

	a := BuildPrompt(f, "abstract", nil)
	b := BuildPrompt(f, "abstract", nil)
	if a != b {
		t.Error("prompt is not deterministic for identical inputs")
	}
	if !strings.Contains(a, "abstract") {
		t.Error("prompt should mention the requested style")
	}
	if !strings.Contains(a, "G major") {
		t.Error("prompt should mention the detected key and mode")
	}
}

func TestBuildPrompt_CustomOverride(t *testing.T) {
	custom := "a cat playing a synthesizer"
	got := BuildPrompt(features(128, 0.5, 0.5, 3000), "abstract", &custom)
	if got != custom {
		t.Errorf("custom prompt not returned verbatim: %q", got)
	}

	empty := ""
	got = BuildPrompt(features(128, 0.5, 0.5, 3000), "abstract", &empty)
	if got == "" {
		t.Error("empty custom prompt should fall back to the generated one")
	}
}

func TestBuildPrompt_TempoBuckets(t *testing.T) {
	cases := []struct {
		tempo float64
		want  string
	}{
		{60, "slow, meditative"},
		{79.9, "slow, meditative"},
		{80, "moderate, flowing"},
		{119.9, "moderate, flowing"},
		{120, "energetic, dynamic"},
		{149.9, "energetic, dynamic"},
		{150, "fast, intense"},
		{200, "fast, intense"},
	}
	for _, tc := range cases {
		got := BuildPrompt(features(tc.tempo, 0.5, 0.5, 3000), "abstract", nil)
		if !strings.Contains(got, tc.want) {
			t.Errorf("tempo %.1f: expected %q in prompt", tc.tempo, tc.want)
		}
	}
}

func TestBuildPrompt_ValenceBuckets(t *testing.T) {
	cases := []struct {
		valence float64
		want    string
	}{
		{0.1, "melancholic, introspective"},
		{0.3, "contemplative, neutral"},
		{0.5, "uplifting, hopeful"},
		{0.7, "joyful, celebratory"},
	}
	for _, tc := range cases {
		got := BuildPrompt(features(100, tc.valence, 0.5, 3000), "abstract", nil)
		if !strings.Contains(got, tc.want) {
			t.Errorf("valence %.1f: expected %q in prompt", tc.valence, tc.want)
		}
	}
}

func TestBuildPrompt_EnergyAndCentroidBuckets(t *testing.T) {
	if got := BuildPrompt(features(100, 0.5, 0.2, 1500), "abstract", nil); !strings.Contains(got, "soft, subtle") || !strings.Contains(got, "warm, deep colors") {
		t.Errorf("low energy/centroid buckets wrong:\n%s", got)
	}
	if got := BuildPrompt(features(100, 0.5, 0.6, 4000), "abstract", nil); !strings.Contains(got, "bold, vibrant") || !strings.Contains(got, "bright, cool colors") {
		t.Errorf("high energy/centroid buckets wrong:\n%s", got)
	}
}
