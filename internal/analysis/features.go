// Package analysis extracts numeric features and frame series from decoded
// waveforms. Extraction is deterministic: the same samples always produce
// the same (rounded) output.
package analysis

import (
	"math"

	"github.com/wavecanvas/api/internal/errs"
	"github.com/wavecanvas/api/internal/model"
)

// KeyNames maps a pitch-class index to its note name.
var KeyNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Krumhansl-Schmuckler key profiles.
var (
	majorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// Tempo search bounds in BPM.
const (
	tempoMin     = 60.0
	tempoMax     = 200.0
	defaultTempo = 120.0
)

// RMS of a typical full-scale mix; used to rescale mean RMS into [0,1].
const energyRef = 0.1

// ExtractFeatures computes the feature vector for one waveform.
func ExtractFeatures(samples []float64, sampleRate int) (*model.AudioFeatures, error) {
	if len(samples) == 0 || sampleRate <= 0 {
		return nil, errs.Wrap(errs.ErrValidation, "empty waveform", nil)
	}

	env := rmsEnvelope(samples, frameLength, hopLength)
	tempo := estimateTempo(env, sampleRate, hopLength)

	var meanRMS float64
	for _, v := range env {
		meanRMS += v
	}
	meanRMS /= float64(len(env))
	energy := clamp01(meanRMS / energyRef)

	sp := newSpectral(frameLength)
	fb := melFilterbank(melBands, frameLength/2+1, frameLength, sampleRate)

	nFrames := frameCount(len(samples), frameLength, hopLength)
	frame := make([]float64, frameLength)

	chroma := make([]float64, 12)
	mfccSums := make([]float64, mfccCoeffs)
	var centroidSum float64
	centroidFrames := 0

	for i := 0; i < nFrames; i++ {
		frameAt(samples, i*hopLength, frameLength, frame)
		spectrum := sp.powerSpectrum(frame)

		accumulateChroma(chroma, spectrum, frameLength, sampleRate)

		if c, ok := spectralCentroid(spectrum, frameLength, sampleRate); ok {
			centroidSum += c
			centroidFrames++
		}

		mel := applyFilterbank(fb, spectrum)
		for b := range mel {
			mel[b] = powerToDB(mel[b], 1)
		}
		for c, v := range dct2(mel, mfccCoeffs) {
			mfccSums[c] += v
		}
	}

	keyIndex, mode := detectKey(chroma)

	modeWeight := 0.3
	if mode == "major" {
		modeWeight = 0.7
	}
	tempoWeight := clamp01((tempo - 60) / 120)
	valence := clamp01(0.6*modeWeight + 0.4*tempoWeight)

	centroid := 0.0
	if centroidFrames > 0 {
		centroid = centroidSum / float64(centroidFrames)
	}

	mfccSummary := make([]float64, mfccCoeffs)
	for c := range mfccSums {
		mfccSummary[c] = round(mfccSums[c]/float64(nFrames), 4)
	}

	return &model.AudioFeatures{
		Tempo:            round(tempo, 2),
		Energy:           round(energy, 4),
		Valence:          round(valence, 4),
		Key:              KeyNames[keyIndex],
		Mode:             mode,
		SpectralCentroid: round(centroid, 2),
		MFCCSummary:      mfccSummary,
	}, nil
}

// estimateTempo beat-tracks over the energy envelope: autocorrelation of
// the onset strength (positive envelope flux) across the lag range that
// maps into [tempoMin, tempoMax] BPM.
func estimateTempo(env []float64, sampleRate, hop int) float64 {
	if len(env) < 4 {
		return defaultTempo
	}

	onset := make([]float64, len(env)-1)
	var total float64
	for i := 1; i < len(env); i++ {
		d := env[i] - env[i-1]
		if d > 0 {
			onset[i-1] = d
			total += d
		}
	}
	if total == 0 {
		return defaultTempo
	}

	frameRate := float64(sampleRate) / float64(hop)
	lagMin := int(math.Ceil(60 * frameRate / tempoMax))
	lagMax := int(math.Floor(60 * frameRate / tempoMin))
	if lagMax >= len(onset) {
		lagMax = len(onset) - 1
	}
	if lagMin < 1 {
		lagMin = 1
	}
	if lagMin > lagMax {
		return defaultTempo
	}

	bestLag, bestScore := 0, 0.0
	for lag := lagMin; lag <= lagMax; lag++ {
		var score float64
		for i := 0; i+lag < len(onset); i++ {
			score += onset[i] * onset[i+lag]
		}
		// normalize so longer overlap windows do not dominate
		score /= float64(len(onset) - lag)
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return defaultTempo
	}
	return 60 * frameRate / float64(bestLag)
}

// accumulateChroma folds spectrum energy onto the 12 pitch classes.
// Class 0 is C; bins outside the piano range are ignored.
func accumulateChroma(chroma []float64, spectrum []float64, frameLen, sampleRate int) {
	for k := 1; k < len(spectrum); k++ {
		f := binFreq(k, frameLen, sampleRate)
		if f < 27.5 || f > 4186 {
			continue
		}
		midi := 69 + 12*math.Log2(f/440)
		class := int(math.Round(midi)) % 12
		if class < 0 {
			class += 12
		}
		chroma[class] += math.Sqrt(spectrum[k])
	}
}

// detectKey correlates each cyclic rotation of the chroma profile against
// the major and minor reference profiles. The strict greater-than keeps the
// earliest-found maximum: lower key index first, major before minor at each
// index. A minor profile can only win a tie outright; changing this flips
// musically ambiguous results, so keep it.
func detectKey(chroma []float64) (int, string) {
	bestCorr := math.Inf(-1)
	bestKey := 0
	bestMode := "major"

	rotated := make([]float64, 12)
	for i := 0; i < 12; i++ {
		for j := 0; j < 12; j++ {
			rotated[j] = chroma[(j+i)%12]
		}
		if c := pearson(rotated, majorProfile[:]); c > bestCorr {
			bestCorr = c
			bestKey = i
			bestMode = "major"
		}
		if c := pearson(rotated, minorProfile[:]); c > bestCorr {
			bestCorr = c
			bestKey = i
			bestMode = "minor"
		}
	}
	return bestKey, bestMode
}

// spectralCentroid returns the magnitude-weighted mean frequency of one
// frame; ok is false for silent frames.
func spectralCentroid(spectrum []float64, frameLen, sampleRate int) (float64, bool) {
	var weighted, total float64
	for k := range spectrum {
		mag := math.Sqrt(spectrum[k])
		weighted += binFreq(k, frameLen, sampleRate) * mag
		total += mag
	}
	if total < 1e-12 {
		return 0, false
	}
	return weighted / total, true
}
