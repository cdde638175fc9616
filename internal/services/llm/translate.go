package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"revoice/internal/language"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/stage"
)

// DefaultChunkRunes bounds the text sent per completion so long transcripts
// stay within typical output token limits.
const DefaultChunkRunes = 4000

const translationPrompt = `You translate transcripts of spoken video narration.
Translate the "text" field from source_language to target_language.
Keep the meaning, tone and paragraph breaks. Do not summarize, explain or add content.
Respond with JSON only: {"translation": "<translated text>"}`

// Completer is the subset of Client used by Translator.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Translator translates transcripts through a chat model.
type Translator struct {
	client     Completer
	configured bool
	chunkRunes int
	logger     *slog.Logger
}

// NewTranslator wraps client. A nil logger is replaced with a no-op logger.
func NewTranslator(client *Client, logger *slog.Logger) *Translator {
	t := newTranslator(client, logger)
	t.configured = client.Configured()
	return t
}

// NewTranslatorWithCompleter is NewTranslator for any Completer (tests and
// alternative backends).
func NewTranslatorWithCompleter(client Completer, chunkRunes int, logger *slog.Logger) *Translator {
	t := newTranslator(client, logger)
	t.configured = client != nil
	if chunkRunes > 0 {
		t.chunkRunes = chunkRunes
	}
	return t
}

func newTranslator(client Completer, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Translator{client: client, chunkRunes: DefaultChunkRunes, logger: logger}
}

type translationRequest struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Text           string `json:"text"`
}

type translationResponse struct {
	Translation string `json:"translation"`
}

// Translate renders text from one language into another. Identical tags
// return the input untouched.
func (t *Translator) Translate(ctx context.Context, text, from, to string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", services.Wrap(services.ErrValidation, stage.Translate, "translate", "empty transcript", nil)
	}
	if strings.EqualFold(strings.TrimSpace(from), strings.TrimSpace(to)) {
		return text, nil
	}
	if !t.configured {
		return "", services.Wrap(services.ErrConfiguration, stage.Translate, "translate", "translation api key not configured", nil)
	}

	chunks := chunkParagraphs(text, t.chunkRunes)
	out := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		translated, err := t.translateChunk(ctx, chunk, from, to)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", services.Wrap(classify(err), stage.Translate, "translate",
				fmt.Sprintf("chunk %d/%d", i+1, len(chunks)), err)
		}
		out = append(out, translated)
	}
	t.logger.Debug("transcript translated",
		logging.String("from", from),
		logging.String("to", to),
		logging.Int("chunks", len(chunks)),
	)
	return strings.Join(out, "\n\n"), nil
}

// HealthCheck reports whether the translator has credentials.
func (t *Translator) HealthCheck(context.Context) stage.Health {
	if !t.configured {
		return stage.Unhealthy(stage.Translate, "translation api key not configured")
	}
	return stage.Healthy(stage.Translate)
}

func (t *Translator) translateChunk(ctx context.Context, chunk, from, to string) (string, error) {
	prompt, err := json.Marshal(translationRequest{
		SourceLanguage: describe(from),
		TargetLanguage: describe(to),
		Text:           chunk,
	})
	if err != nil {
		return "", err
	}
	content, err := t.client.CompleteJSON(ctx, translationPrompt, string(prompt))
	if err != nil {
		return "", err
	}
	var resp translationResponse
	if err := DecodeJSON(content, &resp); err != nil {
		return "", fmt.Errorf("parse translation: %w", err)
	}
	translated := strings.TrimSpace(resp.Translation)
	if translated == "" {
		return "", errors.New("model returned an empty translation")
	}
	return translated, nil
}

func describe(tag string) string {
	return fmt.Sprintf("%s (%s)", language.DisplayName(tag), tag)
}

func classify(err error) error {
	var status *statusError
	if errors.As(err, &status) && (status.Code == http.StatusUnauthorized || status.Code == http.StatusForbidden) {
		return services.ErrConfiguration
	}
	return services.ErrTransient
}

// chunkParagraphs packs paragraphs into chunks of at most limit runes.
// Paragraphs longer than limit are split at sentence ends, then at spaces.
func chunkParagraphs(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var pieces []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		pieces = append(pieces, splitLong(para, limit)...)
	}
	return pack(pieces, "\n\n", limit)
}

func splitLong(para string, limit int) []string {
	if utf8.RuneCountInString(para) <= limit {
		return []string{para}
	}
	var sentences []string
	start := 0
	for i := 0; i < len(para); i++ {
		switch para[i] {
		case '.', '!', '?':
			if i+1 == len(para) || para[i+1] == ' ' {
				sentences = append(sentences, strings.TrimSpace(para[start:i+1]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(para[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	var words []string
	for _, s := range sentences {
		if utf8.RuneCountInString(s) <= limit {
			words = append(words, s)
			continue
		}
		words = append(words, pack(strings.Fields(s), " ", limit)...)
	}
	return pack(words, " ", limit)
}

func pack(parts []string, sep string, limit int) []string {
	var chunks []string
	var current strings.Builder
	size := 0
	for _, part := range parts {
		n := utf8.RuneCountInString(part)
		if size > 0 && size+len(sep)+n > limit {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
		if size > 0 {
			current.WriteString(sep)
			size += len(sep)
		}
		current.WriteString(part)
		size += n
	}
	if size > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
