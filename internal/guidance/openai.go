package guidance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = "You are a concise productivity coach inside a goal, task and expense tracker. " +
	"Answer in at most three sentences of plain text."

// ChatService defines the interface for making chat completion calls.
// This abstraction enables testing without calling the real OpenAI API.
type ChatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI generates guidance with a chat model and falls back to Rules on
// any failure.
type OpenAI struct {
	chat      ChatService
	model     openai.ChatModel
	maxTokens int64
	timeout   time.Duration
	fallback  Responder
}

// Compile-time interface check
var _ Responder = (*OpenAI)(nil)

// NewOpenAI creates a model-backed responder.
func NewOpenAI(apiKey, model string, maxTokens int64, timeout time.Duration) *OpenAI {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return newOpenAI(client.Chat.Completions, model, maxTokens, timeout)
}

func newOpenAI(chat ChatService, model string, maxTokens int64, timeout time.Duration) *OpenAI {
	if maxTokens <= 0 {
		maxTokens = 200
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenAI{
		chat:      chat,
		model:     openai.ChatModel(model),
		maxTokens: maxTokens,
		timeout:   timeout,
		fallback:  Rules{},
	}
}

// Respond asks the model and returns the rule answer if the call fails or
// comes back empty.
func (o *OpenAI) Respond(ctx context.Context, text string) string {
	answer, err := o.Generate(ctx, text)
	if err != nil {
		slog.Warn("guidance generation failed, using rules",
			"component", "guidance",
			"error", err,
		)
		return o.fallback.Respond(ctx, text)
	}
	return answer
}

// Generate returns the model's answer to text.
func (o *OpenAI) Generate(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(text),
		}),
		Model:       openai.F(o.model),
		MaxTokens:   openai.Int(o.maxTokens),
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		return "", fmt.Errorf("guidance generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("guidance generation failed: no choices returned")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("guidance generation failed: empty answer")
	}
	return answer, nil
}
