package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"aetherscribe/internal/models"
)

// ProgressEvent reports model download/load progress to the caller.
type ProgressEvent struct {
	Model    string `json:"model"`
	Status   string `json:"status"` // "progress"
	Progress int    `json:"progress"` // 0-100
}

// ProgressFunc receives progress events during EnsureModel. It is a typed
// callback passed into the call rather than an ambient event bus.
type ProgressFunc func(ProgressEvent)

// Client talks to a local OpenAI-compatible inference engine. Requests are
// never retried; the engine can be slow (seconds) and the caller decides
// whether to try again.
type Client struct {
	baseURL    string // e.g. http://localhost:11434/v1
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates an engine client. baseURL should include the /v1 prefix
// of the chat completions API.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// ChatCompletion sends the message list to the engine and returns the
// content of the first choice.
func (c *Client) ChatCompletion(ctx context.Context, messages []models.EngineMessage, temperature float64, maxTokens int) (string, error) {
	requestBody := map[string]interface{}{
		"model":       c.model,
		"messages":    messages,
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}

	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("engine request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse engine response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("engine returned no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// EnsureModel asks the engine to download the configured model, streaming
// Ollama-style pull progress and mapping it onto ProgressEvent callbacks.
// The final event always reports 100.
func (c *Client) EnsureModel(ctx context.Context, onProgress ProgressFunc) error {
	requestBody := map[string]interface{}{
		"name":   c.model,
		"stream": true,
	}
	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return fmt.Errorf("failed to marshal pull request: %w", err)
	}

	// The pull API lives beside the /v1 chat surface.
	endpoint := strings.TrimSuffix(c.baseURL, "/v1") + "/api/pull"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// No overall timeout here: model downloads can take minutes. The caller
	// cancels via ctx.
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("model pull failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("model pull failed with status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lastReported := -1

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var chunk struct {
			Status    string `json:"status"`
			Completed int64  `json:"completed"`
			Total     int64  `json:"total"`
			Error     string `json:"error"`
		}
		if err := json.Unmarshal(line, &chunk); err != nil {
			log.Printf("⚠️  [ENGINE] Skipping malformed pull chunk: %v", err)
			continue
		}
		if chunk.Error != "" {
			return fmt.Errorf("model pull error: %s", chunk.Error)
		}

		if chunk.Total > 0 && onProgress != nil {
			percent := int(chunk.Completed * 100 / chunk.Total)
			if percent != lastReported {
				lastReported = percent
				onProgress(ProgressEvent{Model: c.model, Status: "progress", Progress: percent})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("model pull stream error: %w", err)
	}

	if onProgress != nil && lastReported != 100 {
		onProgress(ProgressEvent{Model: c.model, Status: "progress", Progress: 100})
	}
	return nil
}
