package testsupport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"revoice/internal/stage"
)

// Pipeline is an in-memory stand-in for every capability collaborator. It
// records calls by stage name and can be told to fail, panic or block at one
// stage.
type Pipeline struct {
	// OriginalLanguage is what Resolve reports; empty means unknown.
	OriginalLanguage string
	// FailAt names the stage whose capability returns FailErr.
	FailAt  string
	FailErr error
	// PanicAt names the stage whose capability panics.
	PanicAt string
	// BlockAt names the stage that waits for Release or context cancellation.
	BlockAt string
	// CancelErr, when set, is returned by the BlockAt stage on cancellation
	// instead of ctx.Err.
	CancelErr error
	// BaseURL prefixes uploaded references.
	BaseURL string

	mu       sync.Mutex
	calls    []string
	uploads  map[string]string
	release  chan struct{}
	entered  chan string
	relOnce  sync.Once
	langSeen map[string]string
}

// NewPipeline returns a fake that succeeds at every stage.
func NewPipeline() *Pipeline {
	return &Pipeline{
		OriginalLanguage: "en",
		BaseURL:          "https://cdn.test/revoice",
		uploads:          make(map[string]string),
		release:          make(chan struct{}),
		entered:          make(chan string, 16),
		langSeen:         make(map[string]string),
	}
}

// Calls returns the stage names invoked so far, in order.
func (p *Pipeline) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Uploads maps destination names to the local files uploaded under them.
func (p *Pipeline) Uploads() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.uploads))
	for k, v := range p.uploads {
		out[k] = v
	}
	return out
}

// Language returns the language argument a stage was called with.
func (p *Pipeline) Language(stageName string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.langSeen[stageName]
}

// Entered delivers the name of each stage as it starts.
func (p *Pipeline) Entered() <-chan string { return p.entered }

// Release unblocks the BlockAt stage.
func (p *Pipeline) Release() {
	p.relOnce.Do(func() { close(p.release) })
}

func (p *Pipeline) enter(ctx context.Context, name, lang string) error {
	p.mu.Lock()
	p.calls = append(p.calls, name)
	if lang != "" {
		p.langSeen[name] = lang
	}
	p.mu.Unlock()
	select {
	case p.entered <- name:
	default:
	}

	if p.PanicAt == name {
		panic("fake " + name + " exploded")
	}
	if p.BlockAt == name {
		select {
		case <-p.release:
		case <-ctx.Done():
			if p.CancelErr != nil {
				return p.CancelErr
			}
			return ctx.Err()
		}
	}
	if p.FailAt == name {
		if p.FailErr != nil {
			return p.FailErr
		}
		return errors.New("fake " + name + " failure")
	}
	return nil
}

func (p *Pipeline) Resolve(ctx context.Context, sourceID string) (stage.SourceMetadata, error) {
	if err := p.enter(ctx, stage.Metadata, ""); err != nil {
		return stage.SourceMetadata{}, err
	}
	return stage.SourceMetadata{OriginalLanguage: p.OriginalLanguage, Title: "video " + sourceID}, nil
}

func (p *Pipeline) ExtractAudio(ctx context.Context, _ string, workDir string) (string, error) {
	if err := p.enter(ctx, stage.Extract, ""); err != nil {
		return "", err
	}
	return writeArtifact(workDir, "audio.mp3")
}

func (p *Pipeline) Transcribe(ctx context.Context, _ string, language string) (string, error) {
	if err := p.enter(ctx, stage.Transcribe, language); err != nil {
		return "", err
	}
	return "hello world", nil
}

func (p *Pipeline) Translate(ctx context.Context, text, _ string, to string) (string, error) {
	if err := p.enter(ctx, stage.Translate, to); err != nil {
		return "", err
	}
	return "[" + to + "] " + text, nil
}

func (p *Pipeline) Synthesize(ctx context.Context, _ string, language, workDir string) (string, error) {
	if err := p.enter(ctx, stage.Synthesize, language); err != nil {
		return "", err
	}
	return writeArtifact(workDir, "speech.mp3")
}

func (p *Pipeline) Upload(ctx context.Context, localPath, name string) (string, error) {
	if err := p.enter(ctx, stage.Upload, ""); err != nil {
		return "", err
	}
	p.mu.Lock()
	p.uploads[name] = localPath
	p.mu.Unlock()
	return strings.TrimRight(p.BaseURL, "/") + "/" + name, nil
}

// Compose is recorded as "compose"; it shares the upload stage.
func (p *Pipeline) Compose(ctx context.Context, _ string, _ string, workDir string) (string, error) {
	if err := p.enter(ctx, "compose", ""); err != nil {
		return "", err
	}
	return writeArtifact(workDir, "revoiced.mp4")
}

func writeArtifact(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake "+name), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
