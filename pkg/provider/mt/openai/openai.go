// Package openai provides a translation backend backed by the OpenAI chat
// completions API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/polyvox/polyvox/pkg/provider/mt"
)

// DefaultModel is the default chat model used for translation.
const DefaultModel = "gpt-4o-mini"

const systemPrompt = "You are a translation engine. Translate the user's text" +
	" from %s to %s. Reply with the translation only, no commentary, no quotes."

// Ensure Translator implements the mt.Translator interface.
var _ mt.Translator = (*Translator)(nil)

// Translator implements mt.Translator using the OpenAI API.
type Translator struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the translator.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Translator.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Useful for pointing
// at an OpenAI-compatible local server.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI Translator.
// If model is empty, DefaultModel (gpt-4o-mini) is used.
func New(apiKey string, model string, opts ...Option) (*Translator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai mt: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Translator{client: client, model: model}, nil
}

// EngineInfo implements mt.Translator.
func (t *Translator) EngineInfo() string {
	return "openai " + t.model
}

// Translate implements mt.Translator.
func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (*mt.Result, error) {
	src, _ := mt.CanonicalCode(sourceLang)
	dst, _ := mt.CanonicalCode(targetLang)

	start := time.Now()
	resp, err := t.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: t.model,
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(fmt.Sprintf(systemPrompt, src, dst)),
			oai.UserMessage(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai mt: translate to %s: %w", dst, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai mt: empty response for %s", dst)
	}

	return &mt.Result{
		SourceText:        text,
		TranslatedText:    strings.TrimSpace(resp.Choices[0].Message.Content),
		SourceLanguage:    src,
		TargetLanguage:    dst,
		Confidence:        0.9,
		ProcessingLatency: time.Since(start),
	}, nil
}
