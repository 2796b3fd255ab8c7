package summarizer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/genai"
)

// Model streams a text completion. emit returns false to stop reading early.
type Model interface {
	Name() string
	Stream(ctx context.Context, system, prompt string, emit func(chunk string) bool) error
}

const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"

	defaultMaxTokens = 4096
)

// AnthropicModel streams from the Anthropic Messages API.
type AnthropicModel struct {
	client anthropic.Client
	model  string
}

func NewAnthropicModel(apiKey, model string, opts ...option.RequestOption) *AnthropicModel {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicModel{client: anthropic.NewClient(opts...), model: model}
}

func (m *AnthropicModel) Name() string { return ProviderAnthropic }

func (m *AnthropicModel) Stream(ctx context.Context, system, prompt string, emit func(string) bool) error {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(0),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	stream := m.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()
	for stream.Next() {
		event := stream.Current()
		delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok {
			if !emit(text.Text) {
				return nil
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic: stream: %w", err)
	}
	return nil
}

// GeminiModel streams from the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiModel{client: client, model: model}, nil
}

func (m *GeminiModel) Name() string { return ProviderGemini }

func (m *GeminiModel) Stream(ctx context.Context, system, prompt string, emit func(string) bool) error {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	for resp, err := range m.client.Models.GenerateContentStream(ctx, m.model, genai.Text(prompt), cfg) {
		if err != nil {
			return fmt.Errorf("gemini: stream: %w", err)
		}
		if !emit(resp.Text()) {
			return nil
		}
	}
	return nil
}

// OpenAIModel streams chat completions from any OpenAI-compatible endpoint
// (OpenAI, DeepSeek and self-hosted gateways) over server-sent events.
type OpenAIModel struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

const DefaultOpenAIEndpoint = "https://api.openai.com/v1"

func NewOpenAIModel(endpoint, apiKey, model string, timeout time.Duration) *OpenAIModel {
	if endpoint == "" {
		endpoint = DefaultOpenAIEndpoint
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIModel{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (m *OpenAIModel) Name() string { return ProviderOpenAI }

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (m *OpenAIModel) Stream(ctx context.Context, system, prompt string, emit func(string) bool) error {
	messages := []map[string]string{{"role": "user", "content": prompt}}
	if system != "" {
		messages = append([]map[string]string{{"role": "system", "content": system}}, messages...)
	}
	body, err := json.Marshal(map[string]any{
		"model":       m.model,
		"messages":    messages,
		"stream":      true,
		"temperature": 0,
	})
	if err != nil {
		return fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("openai: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("openai: error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	// some gateways ignore stream=true and answer with a single document
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var whole chatChunk
		if err := json.NewDecoder(io.LimitReader(resp.Body, defaultMaxStreamBytes)).Decode(&whole); err != nil {
			return fmt.Errorf("openai: decode: %w", err)
		}
		for _, c := range whole.Choices {
			if !emit(c.Message.Content) {
				return nil
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), defaultMaxStreamBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			return nil
		}
		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("openai: decode chunk: %w", err)
		}
		for _, c := range chunk.Choices {
			if c.Delta.Content == "" {
				continue
			}
			if !emit(c.Delta.Content) {
				return nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("openai: read stream: %w", err)
	}
	return nil
}
