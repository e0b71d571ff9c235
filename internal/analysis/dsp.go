package analysis

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Analysis frame parameters. Feature extraction uses the fixed hop; the
// frame-series mode derives its hop from the target frame rate.
const (
	frameLength = 2048
	hopLength   = 512
	melBands    = 128
	mfccCoeffs  = 13
	dbFloor     = -80.0
)

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}

// frameCount returns how many full analysis frames fit; short signals still
// produce one zero-padded frame.
func frameCount(n, frameLen, hop int) int {
	if n <= frameLen {
		return 1
	}
	return 1 + (n-frameLen)/hop
}

// coverCount returns how many hop-spaced frames are needed so every sample
// falls inside some frame. Trailing frames read past the end of the signal
// and are zero-padded by frameAt.
func coverCount(n, hop int) int {
	if n <= 0 {
		return 0
	}
	return 1 + (n-1)/hop
}

// frameAt copies a zero-padded frame starting at sample offset start.
func frameAt(samples []float64, start, frameLen int, dst []float64) {
	for i := 0; i < frameLen; i++ {
		if start+i < len(samples) {
			dst[i] = samples[start+i]
		} else {
			dst[i] = 0
		}
	}
}

// rmsEnvelope computes per-frame root-mean-square amplitude over the
// frames that fully fit the signal.
func rmsEnvelope(samples []float64, frameLen, hop int) []float64 {
	return rmsFrames(samples, frameLen, hop, frameCount(len(samples), frameLen, hop))
}

// rmsFrames computes per-frame RMS for an explicit frame count, allowing
// callers that need zero-padded trailing frames to cover the whole signal.
func rmsFrames(samples []float64, frameLen, hop, n int) []float64 {
	env := make([]float64, n)
	frame := make([]float64, frameLen)
	for i := 0; i < n; i++ {
		frameAt(samples, i*hop, frameLen, frame)
		var sum float64
		for _, v := range frame {
			sum += v * v
		}
		env[i] = math.Sqrt(sum / float64(frameLen))
	}
	return env
}

// spectral wraps a real-input FFT with a Hann window.
type spectral struct {
	fft      *fourier.FFT
	window   []float64
	buf      []float64
	coeffs   []complex128
	frameLen int
}

func newSpectral(frameLen int) *spectral {
	return &spectral{
		fft:      fourier.NewFFT(frameLen),
		window:   hannWindow(frameLen),
		buf:      make([]float64, frameLen),
		coeffs:   make([]complex128, frameLen/2+1),
		frameLen: frameLen,
	}
}

// powerSpectrum returns the windowed power spectrum of one frame,
// frameLen/2+1 bins.
func (s *spectral) powerSpectrum(frame []float64) []float64 {
	for i := range frame {
		s.buf[i] = frame[i] * s.window[i]
	}
	s.coeffs = s.fft.Coefficients(s.coeffs, s.buf)
	out := make([]float64, len(s.coeffs))
	for i, c := range s.coeffs {
		re, im := real(c), imag(c)
		out[i] = re*re + im*im
	}
	return out
}

// binFreq is the center frequency of FFT bin k.
func binFreq(k, frameLen, sampleRate int) float64 {
	return float64(k) * float64(sampleRate) / float64(frameLen)
}

func hzToMel(f float64) float64 {
	return 2595 * math.Log10(1+f/700)
}

func melToHz(m float64) float64 {
	return 700 * (math.Pow(10, m/2595) - 1)
}

// melFilterbank builds triangular filters mapping nBins spectrum bins onto
// bands mel bands.
func melFilterbank(bands, nBins, frameLen, sampleRate int) [][]float64 {
	low := hzToMel(0)
	high := hzToMel(float64(sampleRate) / 2)

	points := make([]float64, bands+2)
	for i := range points {
		points[i] = melToHz(low + (high-low)*float64(i)/float64(bands+1))
	}

	fb := make([][]float64, bands)
	for b := 0; b < bands; b++ {
		fb[b] = make([]float64, nBins)
		left, center, right := points[b], points[b+1], points[b+2]
		for k := 0; k < nBins; k++ {
			f := binFreq(k, frameLen, sampleRate)
			switch {
			case f <= left || f >= right:
				// outside the triangle
			case f <= center:
				if center > left {
					fb[b][k] = (f - left) / (center - left)
				}
			default:
				if right > center {
					fb[b][k] = (right - f) / (right - center)
				}
			}
		}
	}
	return fb
}

// applyFilterbank reduces a power spectrum to mel band energies.
func applyFilterbank(fb [][]float64, spectrum []float64) []float64 {
	out := make([]float64, len(fb))
	for b, weights := range fb {
		var sum float64
		for k, w := range weights {
			if w != 0 {
				sum += w * spectrum[k]
			}
		}
		out[b] = sum
	}
	return out
}

// dct2 computes the first k coefficients of an orthonormal DCT-II.
func dct2(in []float64, k int) []float64 {
	n := len(in)
	out := make([]float64, k)
	scale0 := math.Sqrt(1 / float64(n))
	scale := math.Sqrt(2 / float64(n))
	for c := 0; c < k; c++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += in[i] * math.Cos(math.Pi*float64(c)*(float64(i)+0.5)/float64(n))
		}
		if c == 0 {
			out[c] = sum * scale0
		} else {
			out[c] = sum * scale
		}
	}
	return out
}

// pearson computes the Pearson correlation coefficient of two equal-length
// vectors; NaN-free (returns 0 when either side has zero variance).
func pearson(a, b []float64) float64 {
	n := float64(len(a))
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n

	var cov, varA, varB float64
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// round rounds v to the given number of decimal places; persisted floats go
// through this so serialized output is stable across runs.
func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// powerToDB converts a power value to decibels relative to ref, floored at
// dbFloor.
func powerToDB(p, ref float64) float64 {
	if ref <= 0 {
		ref = 1
	}
	if p <= 0 {
		return dbFloor
	}
	db := 10 * math.Log10(p/ref)
	if db < dbFloor {
		return dbFloor
	}
	return db
}
