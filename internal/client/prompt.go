package client

import (
	"fmt"

	"github.com/wavecanvas/api/internal/model"
)

// BuildPrompt turns a feature vector and visual style into a generation
// prompt. A non-empty custom prompt is returned verbatim. The mapping is a
// pure function: same features and style always produce the same text.
func BuildPrompt(features *model.AudioFeatures, style string, customPrompt *string) string {
	if customPrompt != nil && *customPrompt != "" {
		return *customPrompt
	}

	var tempoDesc string
	switch {
	case features.Tempo < 80:
		tempoDesc = "slow, meditative"
	case features.Tempo < 120:
		tempoDesc = "moderate, flowing"
	case features.Tempo < 150:
		tempoDesc = "energetic, dynamic"
	default:
		tempoDesc = "fast, intense"
	}

	var moodDesc string
	switch {
	case features.Valence < 0.3:
		moodDesc = "melancholic, introspective"
	case features.Valence < 0.5:
		moodDesc = "contemplative, neutral"
	case features.Valence < 0.7:
		moodDesc = "uplifting, hopeful"
	default:
		moodDesc = "joyful, celebratory"
	}

	var energyDesc string
	switch {
	case features.Energy < 0.3:
		energyDesc = "soft, subtle"
	case features.Energy < 0.6:
		energyDesc = "balanced, harmonious"
	default:
		energyDesc = "bold, vibrant"
	}

	var colorDesc string
	switch {
	case features.SpectralCentroid < 2000:
		colorDesc = "warm, deep colors"
	case features.SpectralCentroid < 4000:
		colorDesc = "balanced color palette"
	default:
		colorDesc = "bright, cool colors"
	}

	return fmt.Sprintf(`Create a %s visual artwork inspired by music with the following characteristics:
- Rhythm: %s (%.0f BPM)
- Mood: %s
- Energy: %s
- Colors: %s
- Musical key: %s %s

The artwork should visually represent the emotional and rhythmic qualities of the music,
creating a synesthetic experience that captures the essence of the sound.`,
		style, tempoDesc, features.Tempo, moodDesc, energyDesc, colorDesc,
		features.Key, features.Mode)
}
