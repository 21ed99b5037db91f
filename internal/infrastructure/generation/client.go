// Package generation 提供站点生成服务客户端
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-sitegen-api/internal/config"
	apperrors "ai-sitegen-api/pkg/errors"
	"ai-sitegen-api/pkg/metrics"
)

var tracer = otel.Tracer("generation")

// Client 站点生成服务客户端
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// GeneratedFile 生成的站点文件
type GeneratedFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

// TurnMessage 生成 API 返回的会话消息
type TurnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result 生成结果
type Result struct {
	ConversationID string          `json:"conversation_id"`
	PreviewURL     string          `json:"preview_url"`
	Messages       []TurnMessage   `json:"messages"`
	Files          []GeneratedFile `json:"files"`
}

type generateRequest struct {
	Prompt         string `json:"prompt"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// NewClient 创建生成服务客户端
func NewClient(cfg *config.GenerationConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Submit 提交初始生成请求，开启一次新会话
func (c *Client) Submit(ctx context.Context, prompt string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "generation.Submit")
	defer span.End()

	start := time.Now()
	result, err := c.doGenerate(ctx, "/v1/generate", &generateRequest{Prompt: prompt})
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.GenerationTotal.WithLabelValues("submit", status).Inc()
	metrics.GenerationDuration.WithLabelValues("submit").Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("generation.conversation_id", result.ConversationID))
	return result, nil
}

// Continue 在既有会话上继续生成
func (c *Client) Continue(ctx context.Context, conversationID, message string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "generation.Continue",
		trace.WithAttributes(attribute.String("generation.conversation_id", conversationID)))
	defer span.End()

	start := time.Now()
	result, err := c.doGenerate(ctx, "/v1/generate/continue", &generateRequest{
		Prompt:         message,
		ConversationID: conversationID,
	})
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.GenerationTotal.WithLabelValues("continue", status).Inc()
	metrics.GenerationDuration.WithLabelValues("continue").Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

func (c *Client) doGenerate(ctx context.Context, path string, req *generateRequest) (*Result, error) {
	if c.baseURL == "" {
		return nil, apperrors.New(apperrors.CodeGenerationAPIError, "generation base url is empty")
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationAPIError, "generation request failed")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, apperrors.New(apperrors.CodeGenerationAPIError,
			fmt.Sprintf("generation request failed: status=%d", httpResp.StatusCode))
	}

	var result Result
	if err := json.NewDecoder(httpResp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode generate response: %w", err)
	}
	return &result, nil
}
