package whisperx

import "revoice/internal/config"

// Config captures runtime settings for WhisperX transcription.
type Config struct {
	// Model is the Whisper checkpoint, e.g. "large-v3".
	Model       string
	CUDAEnabled bool
	// VADMethod is "silero" or "pyannote".
	VADMethod string
	HFToken   string
	// Binary is the uvx launcher used to run whisperx without a local install.
	Binary string
}

// ConfigFrom maps daemon configuration onto the service config.
func ConfigFrom(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}
	}
	return Config{
		Model:       cfg.Transcription.Model,
		CUDAEnabled: cfg.Transcription.CUDAEnabled,
		VADMethod:   cfg.Transcription.VADMethod,
		HFToken:     cfg.Transcription.HFToken,
		Binary:      cfg.Tools.UVX,
	}
}

const (
	DefaultModel      = "large-v3"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "4"
	ChunkSize         = "15"
	VADOnset          = "0.08"
	VADOffset         = "0.07"
	BeamSize          = "5"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "float32"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
	UVXCommand        = "uvx"
)
