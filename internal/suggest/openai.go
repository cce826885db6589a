package suggest

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"

	"github.com/hammamikhairi/ottoboard/internal/logger"
)

// Completer sends one instruction/prompt pair to a language model and
// returns its text output.
type Completer interface {
	Complete(ctx context.Context, instructions, prompt string) (string, error)
}

// OpenAIOption configures the OpenAI completer.
type OpenAIOption func(*OpenAI)

// WithModel overrides the model.
func WithModel(model string) OpenAIOption {
	return func(c *OpenAI) {
		c.model = model
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(c *OpenAI) {
		c.opts = append(c.opts, option.WithBaseURL(url))
	}
}

// OpenAI completes prompts through the Responses API.
type OpenAI struct {
	client openai.Client
	model  openai.ChatModel
	opts   []option.RequestOption
	log    *logger.Logger
}

var _ Completer = (*OpenAI)(nil)

// NewOpenAI creates a completer authenticated with apiKey.
func NewOpenAI(apiKey string, log *logger.Logger, opts ...OpenAIOption) *OpenAI {
	c := &OpenAI{
		model: openai.ChatModelGPT4oMini,
		opts:  []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(1)},
		log:   log,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client = openai.NewClient(c.opts...)
	return c
}

// Complete sends a system and a user message and returns the output text.
func (c *OpenAI) Complete(ctx context.Context, instructions, prompt string) (string, error) {
	sys := responses.ResponseInputMessageContentListParam{
		{OfInputText: &responses.ResponseInputTextParam{Text: instructions}},
	}
	user := responses.ResponseInputMessageContentListParam{
		{OfInputText: &responses.ResponseInputTextParam{Text: prompt}},
	}

	started := time.Now()
	resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: responses.ResponseInputParam{
			responses.ResponseInputItemParamOfMessage(sys, responses.EasyInputMessageRoleSystem),
			responses.ResponseInputItemParamOfMessage(user, responses.EasyInputMessageRoleUser),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	out := resp.OutputText()
	c.log.Debug("openai: %d chars in %s", len(out), time.Since(started))
	return out, nil
}
