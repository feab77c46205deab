package whisperx

// Config captures runtime settings for WhisperX operations.
type Config struct {
	// UVXBinary launches whisperx in an isolated environment.
	UVXBinary string
	// Model is the WhisperX model to use (e.g., "base", "large-v3").
	Model string
	// Language is an optional ISO 639-1 hint; empty lets whisperx detect it.
	Language string
	// ComputeType is the CTranslate2 compute type ("int8", "float32", ...).
	ComputeType string
}

// WhisperX configuration constants.
const (
	DefaultModel       = "base"
	DefaultComputeType = "int8"
	PypiIndexURL       = "https://pypi.org/simple"
	BatchSize          = "4"
	ChunkSize          = "15"
	VADOnset           = "0.08"
	VADOffset          = "0.07"
	BeamSize           = "5"
	Temperature        = "0.0"
	SegmentResolution  = "sentence"
	OutputFormat       = "json"
	CPUDevice          = "cpu"
	VADMethodSilero    = "silero"
)

// UVXCommand is the default launcher binary.
const UVXCommand = "uvx"
