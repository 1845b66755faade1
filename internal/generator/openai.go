package generator

import (
	"context"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// DecodingParams configures sampling for code output.
type DecodingParams struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// DefaultDecodingParams favours deterministic, low-variance code.
func DefaultDecodingParams() DecodingParams {
	return DecodingParams{
		Temperature: 0.2,
		TopP:        0.8,
		MaxTokens:   4096,
	}
}

// OpenAIModel streams chat completions from any OpenAI-compatible endpoint
// (the default deployment points it at NVIDIA's hosted models).
type OpenAIModel struct {
	client *openai.Client
	model  string
	params DecodingParams
}

// NewOpenAIModel creates a model client for baseURL. httpClient may be nil.
func NewOpenAIModel(baseURL, apiKey, model string, params DecodingParams, httpClient *http.Client) *OpenAIModel {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIModel{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		params: params,
	}
}

// Stream sends prompt as a single user turn and returns the response stream.
func (m *OpenAIModel) Stream(ctx context.Context, prompt string) (Stream, error) {
	req := openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: m.params.Temperature,
		TopP:        m.params.TopP,
		MaxTokens:   m.params.MaxTokens,
		Stream:      true,
	}

	stream, err := m.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}
	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *openAIStream) Close() error {
	s.stream.Close()
	return nil
}
