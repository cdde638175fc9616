package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/stage"
)

const (
	// MaxInputBytes stays below the 5000 byte request limit.
	MaxInputBytes = 4800
	// OutputFile is the synthesized speech file name inside a work dir.
	OutputFile = "speech.mp3"
)

// Config holds Text-to-Speech settings.
type Config struct {
	APIKey         string
	Endpoint       string
	VoiceGender    string
	SpeakingRate   float64
	TimeoutSeconds int
}

// ConfigFrom maps the speech section of the daemon config.
func ConfigFrom(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}
	}
	s := cfg.Speech
	return Config{
		APIKey:         s.APIKey,
		Endpoint:       s.Endpoint,
		VoiceGender:    s.VoiceGender,
		SpeakingRate:   s.SpeakingRate,
		TimeoutSeconds: s.TimeoutSeconds,
	}
}

// SpeechClient is the part of the Text-to-Speech client the synthesizer uses.
type SpeechClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// Synthesizer renders text to MP3 speech.
type Synthesizer struct {
	cfg      Config
	client   SpeechClient
	gender   texttospeechpb.SsmlVoiceGender
	timeout  time.Duration
	logger   *slog.Logger
	maxBytes int
}

// Option customizes the Synthesizer.
type Option func(*Synthesizer)

// WithClient injects a Text-to-Speech client.
func WithClient(client SpeechClient) Option {
	return func(s *Synthesizer) {
		if client != nil {
			s.client = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxInputBytes lowers the per-request text budget (tests).
func WithMaxInputBytes(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 && n <= MaxInputBytes {
			s.maxBytes = n
		}
	}
}

// New constructs a Synthesizer. The REST client is built once here when an
// API key is configured and no client was injected.
func New(ctx context.Context, cfg Config, opts ...Option) (*Synthesizer, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.VoiceGender = strings.ToUpper(strings.TrimSpace(cfg.VoiceGender))
	gender := texttospeechpb.SsmlVoiceGender_NEUTRAL
	if v, ok := texttospeechpb.SsmlVoiceGender_value[cfg.VoiceGender]; ok {
		gender = texttospeechpb.SsmlVoiceGender(v)
	}
	timeout := time.Minute
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	s := &Synthesizer{
		cfg:      cfg,
		gender:   gender,
		timeout:  timeout,
		logger:   logging.NewNop(),
		maxBytes: MaxInputBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client != nil || cfg.APIKey == "" {
		return s, nil
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	client, err := texttospeech.NewRESTClient(ctx, clientOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stage.Synthesize, "tts client", "build text-to-speech client", err)
	}
	s.client = client
	return s, nil
}

// Synthesize writes speech for text in lang to workDir and returns its path.
func (s *Synthesizer) Synthesize(ctx context.Context, text, lang, workDir string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", services.Wrap(services.ErrValidation, stage.Synthesize, "tts", "empty text", nil)
	}
	if s.client == nil {
		return "", services.Wrap(services.ErrConfiguration, stage.Synthesize, "tts", "speech api key not configured", nil)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("tts: ensure work dir: %w", err)
	}

	chunks := SplitText(text, s.maxBytes)
	var audio bytes.Buffer
	for i, chunk := range chunks {
		data, err := s.synthesizeChunk(ctx, chunk, lang)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("tts chunk %d/%d: %w", i+1, len(chunks), err)
		}
		audio.Write(data)
	}

	path := filepath.Join(workDir, OutputFile)
	if err := os.WriteFile(path, audio.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("tts: write output: %w", err)
	}
	s.logger.Debug("speech synthesized",
		logging.String("language", lang),
		logging.Int("chunks", len(chunks)),
		logging.Int("bytes", audio.Len()),
	)
	return path, nil
}

// HealthCheck reports whether a client is available.
func (s *Synthesizer) HealthCheck(context.Context) stage.Health {
	if s.client == nil {
		return stage.Unhealthy(stage.Synthesize, "speech api key not configured")
	}
	return stage.Healthy(stage.Synthesize)
}

// Close releases the Text-to-Speech client.
func (s *Synthesizer) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Synthesizer) synthesizeChunk(ctx context.Context, text, lang string) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	resp, err := s.client.SynthesizeSpeech(callCtx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: lang,
			SsmlGender:   s.gender,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  s.cfg.SpeakingRate,
		},
	})
	if err != nil {
		return nil, services.Wrap(markerFor(err), stage.Synthesize, "SynthesizeSpeech", "request failed", err)
	}
	audio := resp.GetAudioContent()
	if len(audio) == 0 {
		return nil, services.Wrap(services.ErrTransient, stage.Synthesize, "SynthesizeSpeech", "missing audio content", nil)
	}
	return audio, nil
}

// markerFor classifies REST (HTTP status) and gRPC (status code) failures.
func markerFor(err error) error {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPCode() {
		case http.StatusBadRequest:
			return services.ErrValidation
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.ErrConfiguration
		}
	}
	switch status.Code(err) {
	case codes.InvalidArgument:
		return services.ErrValidation
	case codes.Unauthenticated, codes.PermissionDenied:
		return services.ErrConfiguration
	case codes.DeadlineExceeded:
		return services.ErrTimeout
	default:
		return services.ErrTransient
	}
}
