package analysis

import (
	"github.com/wavecanvas/api/internal/errs"
	"github.com/wavecanvas/api/internal/model"
)

// DefaultFPS is the frame rate of a frame series when the caller does not
// choose one.
const DefaultFPS = 30

// ExtractFrameSeries computes per-frame amplitude and a 128-band mel
// spectrum covering the whole waveform at the given frame rate. Amplitude
// is normalized by its own maximum; the spectrum is dB-scaled relative to
// the loudest band and mapped from [-80, 0] dB into [0, 1].
func ExtractFrameSeries(samples []float64, sampleRate, fps int) (*model.FrameSeries, error) {
	if len(samples) == 0 || sampleRate <= 0 {
		return nil, errs.Wrap(errs.ErrValidation, "empty waveform", nil)
	}
	if fps <= 0 {
		fps = DefaultFPS
	}

	hop := sampleRate / fps
	if hop < 1 {
		hop = 1
	}

	// The series must cover the whole clip, so trailing frames past the
	// final full analysis window are included (zero-padded).
	rms := rmsFrames(samples, frameLength, hop, coverCount(len(samples), hop))
	rmsMax := 0.0
	for _, v := range rms {
		if v > rmsMax {
			rmsMax = v
		}
	}
	if rmsMax == 0 {
		rmsMax = 1
	}

	sp := newSpectral(frameLength)
	fb := melFilterbank(melBands, frameLength/2+1, frameLength, sampleRate)

	nFrames := len(rms)
	frame := make([]float64, frameLength)
	mel := make([][]float64, nFrames)
	ref := 0.0
	for i := 0; i < nFrames; i++ {
		frameAt(samples, i*hop, frameLength, frame)
		mel[i] = applyFilterbank(fb, sp.powerSpectrum(frame))
		for _, p := range mel[i] {
			if p > ref {
				ref = p
			}
		}
	}

	series := &model.FrameSeries{
		Duration:    round(float64(len(samples))/float64(sampleRate), 2),
		FPS:         fps,
		TotalFrames: nFrames,
		Frames:      make([]model.Frame, nFrames),
	}

	for i := 0; i < nFrames; i++ {
		spectrum := make([]float64, melBands)
		for b, p := range mel[i] {
			db := powerToDB(p, ref)
			spectrum[b] = round(clamp01((db-dbFloor)/-dbFloor), 4)
		}
		series.Frames[i] = model.Frame{
			Time:      round(float64(i)/float64(fps), 4),
			Amplitude: round(rms[i]/rmsMax, 4),
			Spectrum:  spectrum,
		}
	}

	return series, nil
}
