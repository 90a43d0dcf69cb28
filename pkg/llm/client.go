// Package llm provides a client for the local completion service.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/config"
)

// Client defines the interface for a completion client.
type Client interface {
	// Complete 发送一次文本补全请求并返回生成的文本。
	// 超时与传输失败原样返回，调用方不做重试。
	Complete(ctx context.Context, prompt string) (string, error)
}

type completionClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient creates a new completion client for the supervised backend.
func NewClient(cfg config.LLMConfig) Client {
	return &completionClient{
		cfg: cfg,
		client: &http.Client{
			// 推理是分钟级的，超时必须足够宽
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
	}
}

type completionRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Text         string `json:"text"`
		Index        int    `json:"index"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete calls the completion service and returns the trimmed completion text.
func (c *completionClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := completionRequest{
		Prompt:      prompt,
		MaxTokens:   c.cfg.Generation.MaxTokens,
		Temperature: c.cfg.Generation.Temperature,
	}
	if reqBody.MaxTokens == 0 {
		reqBody.MaxTokens = 512
	}
	if reqBody.Temperature == 0 {
		reqBody.Temperature = 0.7
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL()+"/v1/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call completion api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("completion api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var completionResp completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completionResp); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(completionResp.Choices) == 0 {
		return "", fmt.Errorf("completion api returned no choices")
	}
	return strings.TrimSpace(completionResp.Choices[0].Text), nil
}
