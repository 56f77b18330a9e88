package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const analystPrompt = "You are an OSINT analyst. Summarize reconnaissance findings for a client report. Be factual and concise; do not invent data."

// LLMClient abstracts LLM chat completion
type LLMClient interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient implements LLMClient for OpenAI API
type OpenAIClient struct {
	client *openai.Client
	model  string
	log    logrus.FieldLogger
}

func NewOpenAIClient(apiKey, model string, log logrus.FieldLogger) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
		log:    log,
	}
}

func (c *OpenAIClient) Chat(ctx context.Context, prompt string) (string, error) {
	c.log.WithField("model", c.model).Debug("sending summary prompt to OpenAI")

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analystPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
		MaxTokens:   700,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// OllamaClient implements LLMClient for a local Ollama server
type OllamaClient struct {
	Endpoint string
	Model    string
	HTTP     *http.Client
	log      logrus.FieldLogger
}

func NewOllamaClient(endpoint, model string, log logrus.FieldLogger) *OllamaClient {
	if model == "" {
		model = "llama3"
	}
	return &OllamaClient{
		Endpoint: strings.TrimSuffix(endpoint, "/"),
		Model:    model,
		HTTP:     &http.Client{Timeout: 120 * time.Second},
		log:      log,
	}
}

func (c *OllamaClient) Chat(ctx context.Context, prompt string) (string, error) {
	type generateRequest struct {
		Model       string  `json:"model"`
		Prompt      string  `json:"prompt"`
		System      string  `json:"system"`
		Stream      bool    `json:"stream"`
		Temperature float32 `json:"temperature"`
	}

	data, err := json.Marshal(generateRequest{
		Model:       c.Model,
		Prompt:      prompt,
		System:      analystPrompt,
		Stream:      false,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	c.log.WithField("endpoint", c.Endpoint+"/api/generate").Debug("sending summary prompt to Ollama")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("Ollama API error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	// A non-streaming request yields a single JSON object.
	var res struct {
		Response string `json:"response"`
		Error    string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if res.Error != "" {
		return "", fmt.Errorf("Ollama error: %s", res.Error)
	}
	return strings.TrimSpace(res.Response), nil
}

// NewLLMClient picks a client from the [Report] section: an Ollama endpoint
// wins over an OpenAI key. It returns nil when neither is configured.
func NewLLMClient(cfg *Config, log logrus.FieldLogger) LLMClient {
	if endpoint := cfg.Get("report", "ollama_endpoint"); endpoint != "" {
		return NewOllamaClient(endpoint, cfg.Get("report", "ollama_model"), log)
	}
	if key := cfg.APIKey("openai"); key != "" {
		return NewOpenAIClient(key, cfg.Get("report", "openai_model"), log)
	}
	return nil
}
