// Package llm is the text completion client for OpenAI compatible chat
// completion endpoints. OpenRouter is the default endpoint.
package llm // import "github.com/joincivil/civil-debate-processor/pkg/llm"

import (
	"context"
	"math"
	"net/http"
	"time"

	log "github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

const (
	// DefaultBaseURL is the OpenRouter API
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultTimeout is the per request timeout
	DefaultTimeout = 30 * time.Second
)

// NewClientParams are the params to NewClient
type NewClientParams struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	HTTPClient        *http.Client
}

// NewClient returns a new completion client. A RequestsPerMinute of 0 means
// requests are not rate limited.
func NewClient(params *NewClientParams) (*Client, error) {
	if params.APIKey == "" {
		return nil, errors.New("llm api key is required")
	}
	config := openai.DefaultConfig(params.APIKey)
	config.BaseURL = DefaultBaseURL
	if params.BaseURL != "" {
		config.BaseURL = params.BaseURL
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := &http.Client{}
	if params.HTTPClient != nil {
		cp := *params.HTTPClient
		httpClient = &cp
	}
	httpClient.Timeout = timeout
	config.HTTPClient = httpClient

	var limiter *rate.Limiter
	if params.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(params.RequestsPerMinute)), 1)
	}
	return &Client{
		client:  openai.NewClientWithConfig(config),
		limiter: limiter,
	}, nil
}

// Client sends chat completion requests
type Client struct {
	client  *openai.Client
	limiter *rate.Limiter
}

// Complete sends the system and user prompts and returns the first choice's
// content
func (c *Client) Complete(ctx context.Context, req *model.CompletionRequest) (string, error) {
	if c.limiter != nil {
		err := c.limiter.Wait(ctx)
		if err != nil {
			return "", errors.Wrap(err, "error waiting for rate limiter")
		}
	}
	messages := []openai.ChatCompletionMessage{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	// A zero temperature is dropped by omitempty, the smallest float is sent
	// in its place
	temperature := req.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", errors.Wrapf(err, "chat completion with %v failed", req.Model)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Errorf("chat completion with %v returned no choices", req.Model)
	}
	log.V(2).Infof("Completion with %v finished: %v, tokens: %v", req.Model,
		resp.Choices[0].FinishReason, resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}
