package analysis

import (
	"math"
	"testing"
)

func TestExtractFrameSeries_ShapeAndBounds(t *testing.T) {
	const sr = 8000
	samples := synthTone([]float64{440}, sr, 2, 0)

	series, err := ExtractFrameSeries(samples, sr, 30)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if series.FPS != 30 {
		t.Errorf("fps = %d, want 30", series.FPS)
	}
	if series.Duration != 2.0 {
		t.Errorf("duration = %v, want 2.0", series.Duration)
	}
	if series.TotalFrames != len(series.Frames) {
		t.Errorf("total_frames %d != len(frames) %d", series.TotalFrames, len(series.Frames))
	}
	// roughly duration * fps frames
	want := 2 * 30
	if series.TotalFrames < want || series.TotalFrames > want+1 {
		t.Errorf("total_frames = %d, want ~%d", series.TotalFrames, want)
	}

	maxAmp := 0.0
	for i, fr := range series.Frames {
		if fr.Amplitude < 0 || fr.Amplitude > 1 {
			t.Fatalf("frame %d amplitude %v outside [0,1]", i, fr.Amplitude)
		}
		if fr.Amplitude > maxAmp {
			maxAmp = fr.Amplitude
		}
		if len(fr.Spectrum) != 128 {
			t.Fatalf("frame %d spectrum has %d bands, want 128", i, len(fr.Spectrum))
		}
		for b, s := range fr.Spectrum {
			if s < 0 || s > 1 {
				t.Fatalf("frame %d band %d = %v outside [0,1]", i, b, s)
			}
		}
		wantTime := round(float64(i)/30, 4)
		if fr.Time != wantTime {
			t.Fatalf("frame %d time = %v, want %v", i, fr.Time, wantTime)
		}
	}
	// amplitude is normalized by its own maximum
	if math.Abs(maxAmp-1.0) > 1e-9 {
		t.Errorf("max amplitude = %v, want 1.0", maxAmp)
	}
}

func TestExtractFrameSeries_CoversFullClip(t *testing.T) {
	const sr = 44100
	const fps = 30
	samples := synthTone([]float64{440}, sr, 2, 0)

	series, err := ExtractFrameSeries(samples, sr, fps)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	// No part of the clip may be left without frame data: the last frame
	// must start within one frame period of the end.
	last := series.Frames[len(series.Frames)-1].Time
	if series.Duration-last > 1.0/fps+1e-9 {
		t.Errorf("series ends at %vs but clip lasts %vs: tail not covered", last, series.Duration)
	}
	if series.TotalFrames < int(series.Duration*fps) {
		t.Errorf("total_frames = %d, want at least %d", series.TotalFrames, int(series.Duration*fps))
	}
}

func TestExtractFrameSeries_DefaultFPS(t *testing.T) {
	samples := synthTone([]float64{220}, 8000, 1, 0)

	series, err := ExtractFrameSeries(samples, 8000, 0)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if series.FPS != DefaultFPS {
		t.Errorf("fps = %d, want %d", series.FPS, DefaultFPS)
	}
}

func TestExtractFrameSeries_Rounded(t *testing.T) {
	samples := synthTone([]float64{330}, 8000, 1, 0)

	series, err := ExtractFrameSeries(samples, 8000, 30)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if !decimalsAtMost(series.Duration, 2) {
		t.Errorf("duration %v has more than 2 decimals", series.Duration)
	}
	for _, fr := range series.Frames {
		if !decimalsAtMost(fr.Amplitude, 4) || !decimalsAtMost(fr.Time, 4) {
			t.Fatalf("frame floats not rounded to 4 decimals: %+v", fr)
		}
		for _, s := range fr.Spectrum {
			if !decimalsAtMost(s, 4) {
				t.Fatalf("spectrum value %v not rounded to 4 decimals", s)
			}
		}
	}
}
