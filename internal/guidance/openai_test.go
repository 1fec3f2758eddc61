package guidance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// mockChatService implements ChatService for testing
type mockChatService struct {
	response *openai.ChatCompletion
	err      error

	callCount    int
	lastModel    openai.ChatModel
	lastMessages int
	lastMax      int64
}

func (m *mockChatService) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.callCount++
	m.lastModel = params.Model.Value
	m.lastMessages = len(params.Messages.Value)
	m.lastMax = params.MaxTokens.Value
	return m.response, m.err
}

func completion(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestOpenAI_Respond_UsesModelAnswer(t *testing.T) {
	mock := &mockChatService{response: completion("  Start with the smallest task.  ")}
	o := newOpenAI(mock, "gpt-4o-mini", 150, time.Second)

	got := o.Respond(context.Background(), "how do I get started?")

	if got != "Start with the smallest task." {
		t.Errorf("Respond = %q", got)
	}
	if mock.callCount != 1 {
		t.Errorf("callCount = %d, want 1", mock.callCount)
	}
	if mock.lastModel != "gpt-4o-mini" || mock.lastMessages != 2 || mock.lastMax != 150 {
		t.Errorf("params: model=%q messages=%d max=%d", mock.lastModel, mock.lastMessages, mock.lastMax)
	}
}

func TestOpenAI_Respond_FallsBackToRules(t *testing.T) {
	tests := []struct {
		name string
		mock *mockChatService
	}{
		{"api error", &mockChatService{err: errors.New("rate limited")}},
		{"no choices", &mockChatService{response: &openai.ChatCompletion{}}},
		{"blank answer", &mockChatService{response: completion("   ")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOpenAI(tt.mock, "gpt-4o-mini", 0, 0)
			input := "help me with my budget"
			if got, want := o.Respond(context.Background(), input), (Rules{}).Respond(context.Background(), input); got != want {
				t.Errorf("Respond = %q, want rule answer %q", got, want)
			}
		})
	}
}

func TestOpenAI_Generate_CancelledContext(t *testing.T) {
	mock := &mockChatService{response: completion("unused")}
	o := newOpenAI(mock, "gpt-4o-mini", 0, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := o.Generate(ctx, "hi"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if mock.callCount != 0 {
		t.Errorf("callCount = %d, want 0", mock.callCount)
	}
}

func TestNewOpenAI_Defaults(t *testing.T) {
	o := newOpenAI(&mockChatService{}, "m", 0, 0)
	if o.maxTokens != 200 || o.timeout != 10*time.Second {
		t.Errorf("defaults: maxTokens=%d timeout=%v", o.maxTokens, o.timeout)
	}
}
