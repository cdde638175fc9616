package workflow

import (
	"context"
	"fmt"
	"strings"

	"revoice/internal/jobs"
	"revoice/internal/stage"
)

const fallbackLanguage = "pt-BR"

// AudioObjectName is the destination name of a job's synthesized audio.
func AudioObjectName(job *jobs.Job) string {
	return fmt.Sprintf("synthesized_audio_%s_%s.mp3", job.SourceID, job.TargetLanguage)
}

// VideoObjectName is the destination name of a job's re-muxed video.
func VideoObjectName(job *jobs.Job) string {
	return fmt.Sprintf("translated_video_%s_%s.mp4", job.SourceID, job.TargetLanguage)
}

// Stages builds the six pipeline handlers over caps in execution order.
func Stages(caps Capabilities) ([]stage.Handler, error) {
	var missing []string
	if caps.Metadata == nil {
		missing = append(missing, "metadata resolver")
	}
	if caps.Extractor == nil {
		missing = append(missing, "audio extractor")
	}
	if caps.Transcriber == nil {
		missing = append(missing, "transcriber")
	}
	if caps.Translator == nil {
		missing = append(missing, "translator")
	}
	if caps.Synthesizer == nil {
		missing = append(missing, "speech synthesizer")
	}
	if caps.Uploader == nil {
		missing = append(missing, "artifact uploader")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("workflow: missing capabilities: %s", strings.Join(missing, ", "))
	}
	defaultLang := strings.TrimSpace(caps.DefaultLanguage)
	if defaultLang == "" {
		defaultLang = fallbackLanguage
	}

	return []stage.Handler{
		&capabilityStage{name: stage.Metadata, probe: caps.Metadata, run: func(ctx context.Context, job *jobs.Job, st *stage.State) error {
			meta, err := caps.Metadata.Resolve(ctx, job.SourceID)
			if err != nil {
				return err
			}
			if strings.TrimSpace(meta.OriginalLanguage) == "" {
				meta.OriginalLanguage = defaultLang
			}
			st.Metadata = meta
			st.OriginalLanguage = meta.OriginalLanguage
			return nil
		}},
		&capabilityStage{name: stage.Extract, probe: caps.Extractor, run: func(ctx context.Context, _ *jobs.Job, st *stage.State) error {
			if err := stage.RequireInput(stage.Extract, "source url", st.SourceURL); err != nil {
				return err
			}
			path, err := caps.Extractor.ExtractAudio(ctx, st.SourceURL, st.WorkDir)
			if err != nil {
				return err
			}
			st.AudioPath = path
			return nil
		}},
		&capabilityStage{name: stage.Transcribe, probe: caps.Transcriber, run: func(ctx context.Context, _ *jobs.Job, st *stage.State) error {
			if err := stage.RequireInput(stage.Transcribe, "audio path", st.AudioPath); err != nil {
				return err
			}
			text, err := caps.Transcriber.Transcribe(ctx, st.AudioPath, st.OriginalLanguage)
			if err != nil {
				return err
			}
			st.Transcript = text
			return nil
		}},
		&capabilityStage{name: stage.Translate, probe: caps.Translator, run: func(ctx context.Context, job *jobs.Job, st *stage.State) error {
			if err := stage.RequireInput(stage.Translate, "transcript", st.Transcript); err != nil {
				return err
			}
			text, err := caps.Translator.Translate(ctx, st.Transcript, st.OriginalLanguage, job.TargetLanguage)
			if err != nil {
				return err
			}
			st.Translation = text
			return nil
		}},
		&capabilityStage{name: stage.Synthesize, probe: caps.Synthesizer, run: func(ctx context.Context, job *jobs.Job, st *stage.State) error {
			if err := stage.RequireInput(stage.Synthesize, "translation", st.Translation); err != nil {
				return err
			}
			path, err := caps.Synthesizer.Synthesize(ctx, st.Translation, job.TargetLanguage, st.WorkDir)
			if err != nil {
				return err
			}
			st.SpeechPath = path
			return nil
		}},
		&uploadStage{uploader: caps.Uploader, composer: caps.Composer},
	}, nil
}

// capabilityStage adapts a single capability call to stage.Handler.
type capabilityStage struct {
	name  string
	probe any
	run   func(context.Context, *jobs.Job, *stage.State) error
}

func (s *capabilityStage) Name() string { return s.name }

func (s *capabilityStage) Execute(ctx context.Context, job *jobs.Job, st *stage.State) error {
	return s.run(ctx, job, st)
}

func (s *capabilityStage) HealthCheck(ctx context.Context) stage.Health {
	return probeHealth(ctx, s.name, s.probe)
}

// uploadStage publishes the synthesized audio and, with a composer, the
// re-muxed video.
type uploadStage struct {
	uploader ArtifactUploader
	composer VideoComposer
}

func (s *uploadStage) Name() string { return stage.Upload }

func (s *uploadStage) Execute(ctx context.Context, job *jobs.Job, st *stage.State) error {
	if err := stage.RequireInput(stage.Upload, "speech path", st.SpeechPath); err != nil {
		return err
	}
	audioURL, err := s.uploader.Upload(ctx, st.SpeechPath, AudioObjectName(job))
	if err != nil {
		return err
	}
	st.AudioURL = audioURL
	if s.composer == nil {
		return nil
	}

	videoPath, err := s.composer.Compose(ctx, st.SourceURL, st.SpeechPath, st.WorkDir)
	if err != nil {
		return err
	}
	st.VideoPath = videoPath
	videoURL, err := s.uploader.Upload(ctx, videoPath, VideoObjectName(job))
	if err != nil {
		return err
	}
	st.VideoURL = videoURL
	return nil
}

func (s *uploadStage) HealthCheck(ctx context.Context) stage.Health {
	health := probeHealth(ctx, stage.Upload, s.uploader)
	if !health.Ready || s.composer == nil {
		return health
	}
	if remux := probeHealth(ctx, stage.Upload, s.composer); !remux.Ready {
		return remux
	}
	return health
}

func probeHealth(ctx context.Context, name string, probe any) stage.Health {
	checker, ok := probe.(healthChecker)
	if !ok {
		return stage.Healthy(name)
	}
	health := checker.HealthCheck(ctx)
	health.Name = name
	return health
}
