package model

// AudioFeatures is the immutable numeric summary extracted from one audio
// file. All floats are rounded before leaving the extractor so persisted
// output is stable across runs.
type AudioFeatures struct {
	Tempo            float64   `json:"tempo"`            // beats per minute
	Energy           float64   `json:"energy"`           // normalized RMS, 0-1
	Valence          float64   `json:"valence"`          // emotional positivity, 0-1
	Key              string    `json:"key"`              // pitch class, "C".."B"
	Mode             string    `json:"mode"`             // "major" or "minor"
	SpectralCentroid float64   `json:"spectralCentroid"` // brightness, Hz
	MFCCSummary      []float64 `json:"mfccSummary"`      // 13 cepstral means
}

// Frame is one step of a frame-by-frame audio analysis.
//
// The JSON keys of Frame and FrameSeries are the wire contract of the data
// file handed to the external compositor; do not rename them.
type Frame struct {
	Time      float64   `json:"time"`
	Amplitude float64   `json:"amplitude"`
	Spectrum  []float64 `json:"spectrum"` // 128 mel bands, 0-1
}

// FrameSeries covers the full duration of a source audio file at a fixed
// frame rate and drives the external renderer.
type FrameSeries struct {
	Duration    float64 `json:"duration"`
	FPS         int     `json:"fps"`
	TotalFrames int     `json:"total_frames"`
	Frames      []Frame `json:"frames"`
}
