package llm

import (
	"context"
	"fmt"
	"io"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultVoice is used when no voice is requested
const DefaultVoice = "nova"

// Synthesize converts text to mp3 bytes
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	defer goapp.Estimate("synthesize")()
	if voice == "" {
		voice = DefaultVoice
	}
	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.speechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	}
	return goapp.InvokeWithBackoff(ctx, func() ([]byte, bool, error) {
		resp, err := c.api.CreateSpeech(ctx, req)
		if err != nil {
			return nil, isRetryable(err), fmt.Errorf("can't call speech: %w", err)
		}
		defer resp.Close()
		res, err := io.ReadAll(resp)
		if err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't read audio: %w", err)
		}
		if len(res) == 0 {
			return nil, false, errors.New("empty audio")
		}
		return res, false, nil
	}, c.backoff())
}
