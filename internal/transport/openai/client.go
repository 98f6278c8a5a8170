// Package openai talks to OpenAI-compatible endpoints (OpenAI, Ollama /v1,
// vLLM, Nebius) for embeddings and chat completions.
package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfrag/internal/domain"
)

// Config holds the provider settings shared by Embedder and Generator.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // embeddings only; 0 = provider default
	User       string
	Provider   string // metrics label
	Logger     *zap.Logger
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// parseAPIError extracts a readable message and classifies the failure.
// Rejections that a retry cannot fix (bad key, unknown model, malformed
// request) wrap domain.ErrConfiguration; everything else, including
// connection errors, 429 and 5xx, wraps domain.ErrAdapterUnavailable.
func parseAPIError(kind string, err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("%s API error %d: %s: %w",
			kind, reqErr.HTTPStatusCode, detail, classifyStatus(reqErr.HTTPStatusCode))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w",
			kind, apiErr.HTTPStatusCode, apiErr.Message, classifyStatus(apiErr.HTTPStatusCode))
	}

	return fmt.Errorf("%s request failed: %w: %w", kind, domain.ErrAdapterUnavailable, err)
}

func classifyStatus(status int) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusUnprocessableEntity:
		return domain.ErrConfiguration
	default:
		return domain.ErrAdapterUnavailable
	}
}

// extractDetail reads the "detail" field of a JSON error body (Nebius, vLLM)
// or the "error" string Ollama returns.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  any    `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	if s, ok := parsed.Error.(string); ok {
		return s
	}
	return ""
}
