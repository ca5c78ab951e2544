package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// Script is a short-form audio script generated from input text
type Script struct {
	Soundbite         string   `json:"soundbite"`
	Duration          int      `json:"duration"`
	Tone              string   `json:"tone"`
	Music             string   `json:"music"`
	HookElements      []string `json:"hook_elements"`
	TimingMarkers     []string `json:"timing_markers"`
	TrendingPotential int      `json:"trending_potential"`
	TargetAudience    string   `json:"target_audience"`
	Hashtags          []string `json:"hashtags"`
}

const scriptSystem = `You write short viral audio scripts for TikTok. Turn the text you get into an engaging script
meant to be read out loud verbatim.
Rules:
1. Grab attention within the first 3 seconds.
2. The script must take 7-15 seconds to read.
3. Focus on emotional impact and shareability.
Answer with a single JSON object only:
{"soundbite": string - exact text to read,
 "duration": int - recommended length in seconds,
 "tone": string - speaking style,
 "music": string - background music genre or mood,
 "hook_elements": [string] - what makes it catchy,
 "timing_markers": [string] - where to emphasize phrases,
 "trending_potential": int 1-10,
 "target_audience": string,
 "hashtags": [string]}`

// GenerateScript asks the model for a script
func (c *Client) GenerateScript(ctx context.Context, text string) (*Script, error) {
	defer goapp.Estimate("generate script")()
	msgs := []openai.ChatCompletionMessage{
		system(scriptSystem),
		user("Give me TikTok optimized audio scripts in this format for any text I send."),
		assistant("Understood. For every text I will return one engaging script to be read out loud verbatim."),
		user(fmt.Sprintf("Generate a TikTok optimized audio script from this text: %s", text)),
	}
	var res Script
	if err := c.chatJSON(ctx, msgs, &res); err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Soundbite) == "" {
		return nil, errors.New("no soundbite in model answer")
	}
	return &res, nil
}
