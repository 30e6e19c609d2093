package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/graphrag-cypher/internal/observability"
	"github.com/yungbote/graphrag-cypher/internal/platform/envutil"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
	"github.com/yungbote/graphrag-cypher/internal/platform/promptstyle"
)

const (
	defaultBaseURL = "https://openrouter.ai/api"
	defaultModel   = "google/gemini-2.0-flash-001"
	defaultPath    = "/v1/chat/completions"

	// JSON schema request modes.
	ModeJSONSchema = "json_schema"
	ModeGuidedJSON = "guided_json"
	ModePrompt     = "prompt"
)

type Config struct {
	BaseURL             string
	APIKey              string
	Model               string
	ChatCompletionsPath string
	Timeout             time.Duration
	Temperature         *float64

	// JSONSchemaMode controls how structured output is requested upstream:
	// - "json_schema": OpenAI-style response_format with a strict json_schema
	// - "guided_json": vLLM-style guided decoding field
	// - "prompt": schema text appended as a system instruction
	JSONSchemaMode string
	MaxPromptBytes int
}

// ConfigFromEnv reads the model backend settings. The API key is optional: when
// it is missing the request goes out unauthenticated and the backend decides.
func ConfigFromEnv() Config {
	cfg := Config{
		BaseURL:             envutil.String("LLM_BASE_URL", defaultBaseURL),
		APIKey:              envutil.First("LLM_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY"),
		Model:               envutil.String("LLM_MODEL", defaultModel),
		ChatCompletionsPath: envutil.String("LLM_CHAT_COMPLETIONS_PATH", defaultPath),
		Timeout:             envutil.Seconds("LLM_TIMEOUT_SECONDS", 120*time.Second),
		JSONSchemaMode:      envutil.String("LLM_JSON_SCHEMA_MODE", ModeJSONSchema),
		MaxPromptBytes:      envutil.Int("LLM_JSON_SCHEMA_MAX_PROMPT_BYTES", 64<<10),
	}
	if v := strings.ToLower(envutil.String("LLM_TEMPERATURE", "")); v != "" && v != "off" && v != "none" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Temperature = &f
		}
	}
	return cfg
}

type JSONSchema struct {
	Name   string
	Schema any
	Strict bool
}

// Client is the structured-prompt capability used by the GraphRAG pipeline.
type Client interface {
	// GenerateJSON returns the raw JSON text of a response constrained by schema.
	GenerateJSON(ctx context.Context, system string, user string, schema JSONSchema) ([]byte, error)
	Model() string
}

type client struct {
	log *logger.Logger

	baseURL     string
	apiKey      string
	model       string
	chatPath    string
	timeout     time.Duration
	temperature *float64

	jsonSchemaMode           string
	jsonSchemaMaxPromptBytes int

	httpClient *http.Client
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, errors.New("llm: logger required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	chatPath := strings.TrimSpace(cfg.ChatCompletionsPath)
	if chatPath == "" {
		chatPath = defaultPath
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.JSONSchemaMode))
	switch mode {
	case "":
		mode = ModeJSONSchema
	case ModeJSONSchema, ModeGuidedJSON, ModePrompt:
	default:
		return nil, fmt.Errorf("llm: invalid json schema mode %q", cfg.JSONSchemaMode)
	}

	maxPromptBytes := cfg.MaxPromptBytes
	if maxPromptBytes <= 0 {
		maxPromptBytes = 64 << 10
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Warn("LLM API key not set; requests will be sent unauthenticated", "base_url", baseURL)
	}

	return &client{
		log:                      log.With("client", "LLM"),
		baseURL:                  baseURL,
		apiKey:                   strings.TrimSpace(cfg.APIKey),
		model:                    model,
		chatPath:                 chatPath,
		timeout:                  timeout,
		temperature:              cfg.Temperature,
		jsonSchemaMode:           mode,
		jsonSchemaMaxPromptBytes: maxPromptBytes,
		httpClient:               &http.Client{Transport: tr},
	}, nil
}

// NewWithHTTPClient is intended for tests; it avoids network access by using a custom RoundTripper.
func NewWithHTTPClient(log *logger.Logger, cfg Config, httpClient *http.Client) (Client, error) {
	c, err := New(log, cfg)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		c.(*client).httpClient = httpClient
	}
	return c, nil
}

func (c *client) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`

	ResponseFormat map[string]any `json:"response_format,omitempty"`
	GuidedJSON     any            `json:"guided_json,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message,omitempty"`
		Text string `json:"text,omitempty"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
}

func (c *client) GenerateJSON(ctx context.Context, system string, user string, schema JSONSchema) ([]byte, error) {
	if strings.TrimSpace(schema.Name) == "" {
		return nil, errors.New("llm: schema name required")
	}
	if schema.Schema == nil {
		return nil, errors.New("llm: schema required")
	}
	req := c.buildChatRequest(promptstyle.ApplySystem(system, "json"), user, &schema)

	text, err := c.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	clean := sanitizeJSONText(text)
	if !json.Valid([]byte(clean)) {
		return nil, fmt.Errorf("%w: schema=%s text=%s", ErrInvalidJSON, schema.Name, truncate(clean, 512))
	}
	return []byte(clean), nil
}

func (c *client) buildChatRequest(system, user string, schema *JSONSchema) chatCompletionRequest {
	req := chatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
	}
	if s := strings.TrimSpace(system); s != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: s})
	}
	if u := strings.TrimSpace(user); u != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "user", Content: u})
	}
	switch c.jsonSchemaMode {
	case ModeGuidedJSON:
		req.ResponseFormat = map[string]any{"type": "json_object"}
		req.GuidedJSON = schema.Schema
	case ModePrompt:
		req.ResponseFormat = map[string]any{"type": "json_object"}
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: c.jsonSchemaPrompt(schema)})
	default:
		req.ResponseFormat = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   schema.Name,
				"schema": schema.Schema,
				"strict": schema.Strict,
			},
		}
	}
	return req
}

func (c *client) jsonSchemaPrompt(s *JSONSchema) string {
	var schemaText string
	if b, err := json.Marshal(s.Schema); err == nil && len(b) <= c.jsonSchemaMaxPromptBytes {
		schemaText = string(b)
	}

	var b strings.Builder
	b.WriteString("Return ONLY a valid JSON value that conforms to the provided JSON Schema. Do not include markdown or commentary.\n")
	if name := strings.TrimSpace(s.Name); name != "" {
		b.WriteString("Schema name: ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	if schemaText != "" {
		b.WriteString("Schema:\n")
		b.WriteString(schemaText)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// complete sends exactly one request; failures are returned to the caller as-is.
func (c *client) complete(ctx context.Context, reqBody chatCompletionRequest) (string, error) {
	if len(reqBody.Messages) == 0 {
		return "", errors.New("llm: no messages")
	}
	start := time.Now()

	var resp chatCompletionResponse
	status, err := c.doJSON(ctx, http.MethodPost, c.chatPath, reqBody, &resp)
	if metrics := observability.Current(); metrics != nil {
		metrics.ObserveLLMRequest(c.model, c.chatPath, status, time.Since(start), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	if err != nil {
		c.log.Warn("LLM request failed", "path", c.chatPath, "status", status, "error", err.Error())
		return "", err
	}

	for _, ch := range resp.Choices {
		if r := strings.TrimSpace(ch.Message.Refusal); r != "" {
			return "", fmt.Errorf("llm: model refused: %s", r)
		}
	}
	text := extractChatText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	c.log.Debug("LLM request done",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
	)
	return text, nil
}

func (c *client) doJSON(ctx context.Context, method string, path string, body any, out any) (string, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return "error", err
		}
	}

	ctx2, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx2, method, c.baseURL+path, &buf)
	if err != nil {
		return "error", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return statusFromErr(err), err
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return status, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return status, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return status, fmt.Errorf("llm: decode response: %w", err)
	}
	return status, nil
}

func extractChatText(resp chatCompletionResponse) string {
	for _, c := range resp.Choices {
		if strings.TrimSpace(c.Message.Content) != "" {
			return c.Message.Content
		}
		if strings.TrimSpace(c.Text) != "" {
			return c.Text
		}
	}
	return ""
}

func sanitizeJSONText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	// Strip leading ```lang and trailing ```
	firstNL := strings.IndexByte(s, '\n')
	if firstNL == -1 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	s = s[firstNL+1:]

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func statusFromErr(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
