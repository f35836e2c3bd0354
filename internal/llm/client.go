package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CompletionRequest es lo que se envia al servicio de completions por cada turno.
type CompletionRequest struct {
	System          string
	Prompt          string
	MaxOutputTokens int
	Temperature     float64
}

// CompletionClient define la interfaz para generar respuestas con un LLM.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Stream devuelve recien cuando el proveedor acepto el request,
	// asi los errores previos al primer fragmento traen su status.
	Stream(ctx context.Context, req CompletionRequest) (Stream, error)
}

// Stream es una secuencia perezosa de fragmentos de texto que se recorre una sola vez.
// Cortar el range o cancelar el contexto aborta la llamada al proveedor.
type Stream interface {
	Fragments() iter.Seq2[string, error]
	Close() error
}

var (
	ErrEmptyResponse  = errors.New("llm empty response")
	ErrStreamConsumed = errors.New("llm stream already consumed")
)

// APIError es un error reportado por el proveedor; StatusCode es 0 si llego dentro del stream.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("llm api error: %s", e.Message)
	}
	return fmt.Sprintf("llm http error: status=%d: %s", e.StatusCode, e.Message)
}

// StatusCode devuelve el status HTTP del proveedor si err lo trae, o 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// HTTPClient implementa CompletionClient contra una API de chat completions compatible con OpenAI.
type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	// client tiene timeout total; streamClient depende solo del contexto
	// porque un timeout de cliente cortaria streams largos a mitad de lectura.
	client       *http.Client
	streamClient *http.Client
	logger       *zap.Logger
}

// NewHTTPClient construye un cliente HTTP apuntando a la API de chat completions.
func NewHTTPClient(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		model:        model,
		client:       &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
		logger:       logger,
	}
}

func (c *HTTPClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	httpReq, err := c.newRequest(ctx, req, false)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("llm error status", zap.Int("status", resp.StatusCode), zap.String("body", truncate(string(respBody), 400)))
		return "", &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if cr.Error != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: cr.Error.Message}
	}

	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	return cr.Choices[0].Message.Content, nil
}

func (c *HTTPClient) Stream(ctx context.Context, req CompletionRequest) (Stream, error) {
	httpReq, err := c.newRequest(ctx, req, true)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		c.logger.Warn("llm stream error status", zap.Int("status", resp.StatusCode), zap.String("body", truncate(string(respBody), 400)))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	return newSSEStream(resp.Body), nil
}

func (c *HTTPClient) newRequest(ctx context.Context, req CompletionRequest, stream bool) (*http.Request, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	temperature := req.Temperature
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxOutputTokens,
		Temperature: &temperature,
		Stream:      stream,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiErrorBody struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiErrorBody `json:"error,omitempty"`
}

func errorMessage(body []byte) string {
	var parsed struct {
		Error *apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	if msg := strings.TrimSpace(truncate(string(body), 200)); msg != "" {
		return msg
	}
	return "empty error body"
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
