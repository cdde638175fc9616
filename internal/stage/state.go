package stage

// Canonical stage names in execution order.
const (
	Metadata   = "metadata"
	Extract    = "extract"
	Transcribe = "transcribe"
	Translate  = "translate"
	Synthesize = "synthesize"
	Upload     = "upload"
)

// Order returns the fixed pipeline order.
func Order() []string {
	return []string{Metadata, Extract, Transcribe, Translate, Synthesize, Upload}
}

// SourceMetadata describes the source video as reported by the metadata resolver.
type SourceMetadata struct {
	OriginalLanguage string
	Title            string
	Channel          string
}

// State carries intermediate artifacts from one stage to the next within a
// single job run. It is never persisted.
type State struct {
	SourceURL        string
	WorkDir          string
	Metadata         SourceMetadata
	OriginalLanguage string
	AudioPath        string
	Transcript       string
	Translation      string
	SpeechPath       string
	VideoPath        string
	AudioURL         string
	VideoURL         string
}
