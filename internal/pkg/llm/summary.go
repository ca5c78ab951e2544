package llm

import (
	"context"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	openai "github.com/sashabaranov/go-openai"
)

// chunk value labels
const (
	ValueGood   = "GOOD"
	ValueBad    = "BAD"
	ValueNone   = "NONE"
	ValueUnsure = "UNSURE"
)

// Summary of one discussed topic
type Summary struct {
	Topic            string   `json:"topic"`
	Summary          string   `json:"summary"`
	KeyWords         []string `json:"key_words"`
	RelatedPersonnel []string `json:"related_personnel"`
}

// ChunkSummary is the classification of a document chunk
type ChunkSummary struct {
	Summaries  []Summary `json:"summaries"`
	IsValuable string    `json:"is_valuable"`
}

const summarySystem = `You are an unbiased expert news reporter.
You process government documents containing debates of politicians. Your objectives:
1. Find the key talking points and debates relevant to the public.
2. Keep summaries factual, accurate and concise, at most 300 words each.
3. Name the politician and the party they represent when summarising their opinion.
4. Focus on senators, MPs and other politicians rather than on the Speaker.
If the chunk holds nothing about a politician's perspective, return an empty summaries list and is_valuable NONE.
If the summaries are good, relevant to the public and factual, set is_valuable to GOOD, otherwise BAD.
Use UNSURE when you can not decide.
Answer with a single JSON object only:
{"summaries": [{"topic": string - short title,
  "summary": string,
  "key_words": [string],
  "related_personnel": [string] - names of the participants}],
 "is_valuable": "GOOD" | "BAD" | "NONE" | "UNSURE"}`

// Classify summarizes a document chunk and grades its value
func (c *Client) Classify(ctx context.Context, chunk string) (*ChunkSummary, error) {
	defer goapp.Estimate("classify chunk")()
	msgs := []openai.ChatCompletionMessage{
		system(summarySystem),
		user(fmt.Sprintf(`WARNING: many spaces may be missing from the text, words are concatenated but the meaning is the same.

**The day the document refers to**: "%s (dd/mm/yyyy)"

**Chunk of the document**: %s`, c.documentDate, chunk)),
	}
	var res ChunkSummary
	if err := c.chatJSON(ctx, msgs, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
