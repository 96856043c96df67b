package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"github.com/ghostnote/ghost-note/backend/internal/config"
)

// Separator splits individual questions in a suggestion string.
const Separator = "||"

// DefaultSuggestions is served whenever the model is unavailable.
const DefaultSuggestions = "What song always gets stuck in your head ? || If your life had a theme song, what would it be ? || What's the most unexpected place you've met someone interesting ?"

const suggestionPrompt = "Create a list of {count} open-ended and engaging questions formatted as a single string. " +
	"Each question should be separated by '||'. These questions are for an anonymous social messaging platform, " +
	"and should be suitable for a diverse audience. Avoid personal or sensitive topics, focusing instead on " +
	"universal themes that encourage friendly interaction. For example, your output should be structured like this: " +
	"'What's a hobby you've recently started? || If you could have dinner with any historical figure, who would it be? || " +
	"What's a simple thing that makes you happy?'. Ensure the questions are intriguing, foster curiosity, and contribute " +
	"to a positive and welcoming conversational environment. Don't use escape sequences as a part of your response."

const defaultCount = 3

var ErrStreamingDisabled = errors.New("streaming disabled in configuration")

// Suggestion is the outcome of a suggestion request.
type Suggestion struct {
	Text     string
	Fallback bool
}

// Questions splits the suggestion into trimmed, non-empty questions.
func (s Suggestion) Questions() []string {
	parts := strings.Split(s.Text, Separator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Service generates conversation starters with an Ark chat model.
type Service struct {
	chain     compose.Runnable[map[string]any, *schema.Message]
	streaming bool
}

// NewService builds the suggestion chain from cfg. When the model is not
// configured the service still works and always serves DefaultSuggestions.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	if !cfg.Enabled() {
		logrus.Warn("[ai] chat model not configured, serving default suggestions")
		return &Service{}, nil
	}

	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg.StreamResponse)
}

// NewServiceWithModel compiles the suggestion chain around chatModel.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, streaming bool) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.UserMessage(suggestionPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile suggestion chain: %w", err)
	}

	return &Service{chain: runnable, streaming: streaming}, nil
}

// Enabled reports whether a model backs the service.
func (s *Service) Enabled() bool {
	return s != nil && s.chain != nil
}

// StreamingEnabled reports whether suggestions may be streamed over SSE.
func (s *Service) StreamingEnabled() bool {
	return s.Enabled() && s.streaming
}

// Suggest asks the model for questions. Model failures fall back to the
// default suggestions instead of failing the request.
func (s *Service) Suggest(ctx context.Context) Suggestion {
	if !s.Enabled() {
		return Suggestion{Text: DefaultSuggestions, Fallback: true}
	}

	response, err := s.chain.Invoke(ctx, s.input())
	if err != nil {
		logrus.Errorf("[ai] suggestion chain failed: %v", err)
		return Suggestion{Text: DefaultSuggestions, Fallback: true}
	}

	text := Clean(response.Content)
	if text == "" {
		logrus.Warn("[ai] model returned an empty suggestion")
		return Suggestion{Text: DefaultSuggestions, Fallback: true}
	}

	logrus.Infof("[ai] generated suggestions length=%d", len(text))
	return Suggestion{Text: text}
}

// StreamSuggestions streams raw model chunks via the configured chain.
func (s *Service) StreamSuggestions(ctx context.Context) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		return nil, ErrStreamingDisabled
	}

	stream, err := s.chain.Stream(ctx, s.input())
	if err != nil {
		return nil, fmt.Errorf("failed to stream suggestion chain output: %w", err)
	}
	return stream, nil
}

func (s *Service) input() map[string]any {
	return map[string]any{"count": defaultCount}
}

// Clean trims whitespace and one pair of surrounding double quotes.
func Clean(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, `"`)
	text = strings.TrimSuffix(text, `"`)
	return strings.TrimSpace(text)
}
