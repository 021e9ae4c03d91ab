package ai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

func NewOpenAIClient(apiKey, model string, logger *slog.Logger) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("ai: OPENAI_API_KEY not set")
	}
	return NewOpenAIClientWithConfig(openai.DefaultConfig(apiKey), model, logger), nil
}

// NewOpenAIClientWithConfig allows pointing the client at a custom base URL.
func NewOpenAIClientWithConfig(cfg openai.ClientConfig, model string, logger *slog.Logger) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

func (c *OpenAIClient) GetReply(
	ctx context.Context,
	history []Message,
) (string, error) {

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)

	// the role prompt goes first
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: AgentReplyPrompt,
	})

	for _, m := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Text,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		c.logger.Error("openai completion failed", slog.Any("error", err))
		return "", err
	}

	if len(resp.Choices) == 0 {
		c.logger.Warn("openai returned no choices")
		return "", nil
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debug("openai reply", slog.String("model", c.model), slog.String("reply", short(raw)))

	return raw, nil
}

const logPreviewLen = 180

// short trims s for logging without splitting a UTF-8 sequence.
func short(s string) string {
	if len(s) <= logPreviewLen {
		return s
	}
	i := logPreviewLen
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i] + "..."
}
