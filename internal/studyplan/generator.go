package studyplan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/openai/openai-go"

	"github.com/bull/syllabus-coach/internal/logger"
)

// DefaultMaxContextTokens bounds the context block sent to the model.
const DefaultMaxContextTokens = 8000

// ErrEmptyResponse means the model returned no choices.
var ErrEmptyResponse = errors.New("model returned no answer")

// Generator calls a chat model through an OpenAI-compatible endpoint with
// temperature 0.
type Generator struct {
	client           *openai.Client
	model            string
	maxContextTokens int
	log              *logger.Logger
}

// NewGenerator creates a chat generator for model.
// Optional maxContextTokens sets the truncation limit (defaults to DefaultMaxContextTokens).
func NewGenerator(client *openai.Client, model string, log *logger.Logger, maxContextTokens ...int) *Generator {
	max := DefaultMaxContextTokens
	if len(maxContextTokens) > 0 && maxContextTokens[0] > 0 {
		max = maxContextTokens[0]
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{
		client:           client,
		model:            model,
		maxContextTokens: max,
		log:              log.With("component", "generator"),
	}
}

// Model returns the chat model name.
func (g *Generator) Model() string {
	return g.model
}

// Complete sends one system and one user message and returns the reply text verbatim.
func (g *Generator) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       openai.ChatModel(g.model),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// truncateContext cuts context to fit within token limits.
// Uses rough estimate of 4 characters per token.
func (g *Generator) truncateContext(text string) string {
	maxChars := g.maxContextTokens * 4
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	g.log.Warn("Truncating context", "from_chars", utf8.RuneCountInString(text), "to_chars", maxChars)

	var b strings.Builder
	n := 0
	for _, r := range text {
		if n == maxChars {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
