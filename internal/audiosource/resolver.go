// Package audiosource resolves relative audio paths into decoded waveforms.
package audiosource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"

	"github.com/wavecanvas/api/internal/errs"
)

// Clip is a decoded mono waveform. Samples are normalized to [-1, 1].
type Clip struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Resolver turns a relative audio path into decoded samples.
type Resolver interface {
	Resolve(path string) (*Clip, error)
}

// DirResolver resolves paths against a base directory of WAV files.
type DirResolver struct {
	dir string
}

func NewDirResolver(dir string) *DirResolver {
	return &DirResolver{dir: dir}
}

// AbsPath returns the absolute location of a relative audio path, rejecting
// paths that escape the base directory.
func (r *DirResolver) AbsPath(path string) (string, error) {
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", errs.Wrap(errs.ErrValidation, "invalid audio path "+path, nil)
	}
	return filepath.Join(r.dir, clean), nil
}

func (r *DirResolver) Resolve(path string) (*Clip, error) {
	full, err := r.AbsPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrNotFound, "audio file not found: "+path, nil)
		}
		return nil, fmt.Errorf("failed to open audio file %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errs.Wrap(errs.ErrValidation, "not a valid WAV file: "+path, nil)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	scale := float64(int64(1) << uint(bitDepth-1))

	// Downmix interleaved channels to mono by averaging.
	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch])
		}
		samples[i] = sum / float64(channels) / scale
	}

	return &Clip{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
	}, nil
}
