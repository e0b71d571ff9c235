// Package render invokes the external video compositor. The compositor is
// a command-line tool that communicates success or failure only through its
// exit code and output streams.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/wavecanvas/api/internal/config"
	"github.com/wavecanvas/api/internal/errs"
	"github.com/wavecanvas/api/internal/model"
)

// resolutions maps the resolution enum to explicit pixel dimensions.
var resolutions = map[string][2]int{
	"720p":  {1280, 720},
	"1080p": {1920, 1080},
	"4k":    {3840, 2160},
}

// compositions maps a visual style to the compositor's composition name.
var compositions = map[string]string{
	"circular": "CircularWaveform",
	"radial":   "RadialWaveform",
	"bars":     "BarWaveform",
}

const (
	defaultResolution  = "1080p"
	defaultComposition = "CircularWaveform"
)

// Request carries everything one render invocation needs.
type Request struct {
	JobID       string
	AudioPath   string
	Style       string
	ColorScheme string
	Resolution  string
	Series      *model.FrameSeries
}

// Result points at the produced artifact.
type Result struct {
	VideoPath string
}

// Renderer adapts render requests onto the external compositor process.
type Renderer struct {
	cfg         config.RendererConfig
	srcAudioDir string
}

func NewRenderer(cfg config.RendererConfig, srcAudioDir string) *Renderer {
	return &Renderer{cfg: cfg, srcAudioDir: srcAudioDir}
}

// props is the JSON blob handed to the compositor on its command line.
type props struct {
	DataFile    string `json:"dataFile"`
	AudioSrc    string `json:"audioSrc"`
	ColorScheme string `json:"colorScheme"`
}

// Invoke writes the frame-series side file, stages the source audio, runs
// the compositor, and returns the artifact location. A non-zero exit
// becomes an external-service failure carrying the last diagnostic text.
func (r *Renderer) Invoke(ctx context.Context, req Request) (*Result, error) {
	if err := r.writeSeriesFile(req.JobID, req.Series); err != nil {
		return nil, err
	}
	if err := r.stageAudio(req.AudioPath); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(r.cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	outPath := r.ArtifactPath(req.JobID)

	propsJSON, err := json.Marshal(props{
		DataFile:    "data/" + req.JobID + ".json",
		AudioSrc:    "audio/" + filepath.ToSlash(req.AudioPath),
		ColorScheme: req.ColorScheme,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal props: %w", err)
	}

	args := BuildArgs(req.Style, outPath, string(propsJSON), req.Resolution)

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.Timeout)*time.Second)
		defer cancel()
	}

	// Explicit argument list; style and path values never pass through a
	// shell.
	cmd := exec.CommandContext(ctx, r.cfg.Command, args...)
	cmd.Dir = r.cfg.WorkDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, errs.Wrap(errs.ErrTimeout, "render exceeded timeout", nil)
	}
	if ctx.Err() == context.Canceled {
		return nil, fmt.Errorf("render aborted: %w", context.Canceled)
	}
	if runErr != nil {
		return nil, errs.Wrap(errs.ErrExternal, diagnostic(stderr.String(), stdout.String()), nil)
	}

	return &Result{VideoPath: outPath}, nil
}

// BuildArgs assembles the compositor argument list for one render.
func BuildArgs(style, outPath, propsJSON, resolution string) []string {
	composition, ok := compositions[style]
	if !ok {
		composition = defaultComposition
	}
	res, ok := resolutions[resolution]
	if !ok {
		res = resolutions[defaultResolution]
	}
	return []string{
		"render",
		composition,
		outPath,
		"--props=" + propsJSON,
		"--width=" + strconv.Itoa(res[0]),
		"--height=" + strconv.Itoa(res[1]),
		"--codec=h264",
	}
}

// ArtifactPath returns where the artifact for a job id lives.
func (r *Renderer) ArtifactPath(jobID string) string {
	return filepath.Join(r.cfg.OutDir, jobID+".mp4")
}

// SeriesPath returns where the frame-series side file for a job id lives.
func (r *Renderer) SeriesPath(jobID string) string {
	return filepath.Join(r.cfg.DataDir, jobID+".json")
}

// Cleanup removes the artifacts associated with a job. Missing files are
// not an error.
func (r *Renderer) Cleanup(jobID string) {
	os.Remove(r.SeriesPath(jobID))
	os.Remove(r.ArtifactPath(jobID))
}

func (r *Renderer) writeSeriesFile(jobID string, series *model.FrameSeries) error {
	if err := os.MkdirAll(r.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("failed to marshal frame series: %w", err)
	}
	return os.WriteFile(r.SeriesPath(jobID), data, 0o644)
}

// stageAudio copies the source audio into the compositor's input directory
// on first use. Already staged files are left alone.
func (r *Renderer) stageAudio(audioPath string) error {
	dest := filepath.Join(r.cfg.AudioDir, audioPath)
	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	src := filepath.Join(r.srcAudioDir, audioPath)
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return errs.Wrap(errs.ErrNotFound, "audio file not found: "+audioPath, nil)
		}
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

func diagnostic(stderr, stdout string) string {
	msg := stderr
	if msg == "" {
		msg = stdout
	}
	if msg == "" {
		msg = "unknown render error"
	}
	return errs.Truncate(msg)
}
