package workflow

import (
	"context"
	"io"

	"revoice/internal/stage"
)

// MetadataResolver reports facts about the source video, chiefly its original
// spoken language.
type MetadataResolver interface {
	Resolve(ctx context.Context, sourceID string) (stage.SourceMetadata, error)
}

// AudioExtractor pulls the audio track of a source into workDir.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, sourceURL, workDir string) (string, error)
}

// Transcriber turns speech into text in the given language.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
}

// Translator translates text between BCP 47 languages.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// SpeechSynthesizer renders text as speech audio inside workDir.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, language, workDir string) (string, error)
}

// ArtifactUploader publishes a local file and returns its public reference.
type ArtifactUploader interface {
	Upload(ctx context.Context, localPath, destinationName string) (string, error)
}

// VideoComposer re-muxes the source video with a replacement audio track.
type VideoComposer interface {
	Compose(ctx context.Context, sourceURL, audioPath, workDir string) (string, error)
}

type healthChecker interface {
	HealthCheck(context.Context) stage.Health
}

// Capabilities groups the collaborators the stages delegate to. Composer is
// optional; when nil only the synthesized audio is uploaded.
type Capabilities struct {
	Metadata    MetadataResolver
	Extractor   AudioExtractor
	Transcriber Transcriber
	Translator  Translator
	Synthesizer SpeechSynthesizer
	Uploader    ArtifactUploader
	Composer    VideoComposer

	// DefaultLanguage is assumed when the resolver reports no original language.
	DefaultLanguage string
}

// Closers returns the collaborators that hold client connections.
func (c Capabilities) Closers() []io.Closer {
	var out []io.Closer
	for _, v := range []any{c.Metadata, c.Extractor, c.Transcriber, c.Translator, c.Synthesizer, c.Uploader, c.Composer} {
		if closer, ok := v.(io.Closer); ok && closer != nil {
			out = append(out, closer)
		}
	}
	return out
}
