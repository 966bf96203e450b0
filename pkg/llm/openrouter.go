package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider calls the OpenRouter chat-completions API.
type OpenRouterProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewOpenRouterProvider(apiKey, model string, timeout time.Duration) *OpenRouterProvider {
	if timeout <= 0 {
		timeout = 300 * time.Second // free-tier models are slow
	}
	return &OpenRouterProvider{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultOpenRouterBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *OpenRouterProvider) Complete(ctx context.Context, prompt string) (string, error) {
	url := c.baseURL + "/chat/completions"

	reqBody := map[string]interface{}{
		"messages": []map[string]interface{}{
			{"role": "user", "content": prompt},
		},
	}
	// Empty model means the OpenRouter account default.
	if c.model != "" {
		reqBody["model"] = c.model
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", newError("openrouter", KindMalformedResponse, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", newError("openrouter", KindMalformedResponse, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError("openrouter", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransportError("openrouter", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus("openrouter", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", newError("openrouter", KindMalformedResponse, fmt.Errorf("failed to parse response: %w", err))
	}

	if len(apiResp.Choices) == 0 {
		return "", newError("openrouter", KindMalformedResponse, fmt.Errorf("no choices returned"))
	}

	return apiResp.Choices[0].Message.Content, nil
}
