package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// Options for a client of an OpenAI compatible API
type Options struct {
	Key string
	// URL overrides the API base URL, used for Gemini's OpenAI compatible endpoint
	URL         string
	Model       string
	SpeechModel string
	Timeout     time.Duration
	// DocumentDate is mentioned in summarization prompts
	DocumentDate string
}

// Gemini defaults for document summaries
const (
	GeminiModel = "gemini-1.5-flash-latest"
	GeminiURL   = "https://generativelanguage.googleapis.com/v1beta/openai"
)

// WithGeminiDefaults fills empty model and URL with Gemini values
func WithGeminiDefaults(opt Options) Options {
	if opt.Model == "" {
		opt.Model = GeminiModel
	}
	if opt.URL == "" {
		opt.URL = GeminiURL
	}
	return opt
}

// Client wraps chat completion and speech calls
type Client struct {
	api          *openai.Client
	model        string
	speechModel  string
	documentDate string
	backoff      func() backoff.BackOff
}

// NewClient creates a client
func NewClient(opt Options) (*Client, error) {
	if opt.Key == "" {
		return nil, errors.New("no api key")
	}
	if opt.Model == "" {
		return nil, errors.New("no model")
	}
	cfg := openai.DefaultConfig(opt.Key)
	if opt.URL != "" {
		cfg.BaseURL = strings.TrimSuffix(opt.URL, "/")
	}
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	res := &Client{api: openai.NewClientWithConfig(cfg), model: opt.Model, speechModel: opt.SpeechModel,
		documentDate: opt.DocumentDate, backoff: newSimpleBackoff}
	if res.speechModel == "" {
		res.speechModel = string(openai.TTSModel1)
	}
	goapp.Log.Info().Str("model", res.model).Str("url", cfg.BaseURL).Msg("llm client")
	return res, nil
}

func (c *Client) chatJSON(ctx context.Context, msgs []openai.ChatCompletionMessage, res interface{}) error {
	req := openai.ChatCompletionRequest{
		Model:          c.model,
		Messages:       msgs,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}
	content, err := goapp.InvokeWithBackoff(ctx, func() (string, bool, error) {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", isRetryable(err), fmt.Errorf("can't call chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", false, errors.New("no choices in response")
		}
		return resp.Choices[0].Message.Content, false, nil
	}, c.backoff())
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(cleanJSON(content)), res); err != nil {
		return fmt.Errorf("can't decode model answer: %w", err)
	}
	return nil
}

// models sometimes wrap json into a markdown block even in json mode
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return goapp.IsRetryableCode(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return goapp.IsRetryableCode(reqErr.HTTPStatusCode)
	}
	return goapp.IsRetryableErr(err)
}

func newSimpleBackoff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
}

func system(s string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: s}
}

func user(s string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: s}
}

func assistant(s string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: s}
}
