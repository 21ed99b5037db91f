// Package deployment 提供站点部署服务客户端
package deployment

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
)

var tracer = otel.Tracer("deployment")

// Client 部署服务客户端
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// FilePayload 部署文件载荷
type FilePayload struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Info 部署信息
type Info struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// LogEntry 部署日志条目
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

type createRequest struct {
	ProjectID string        `json:"project_id"`
	Files     []FilePayload `json:"files"`
}

// NewClient 创建部署服务客户端
func NewClient(cfg *config.DeploymentConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateDeployment 创建部署
func (c *Client) CreateDeployment(ctx context.Context, projectID string, files []FilePayload) (*Info, error) {
	ctx, span := tracer.Start(ctx, "deployment.CreateDeployment",
		trace.WithAttributes(
			attribute.String("project_id", projectID),
			attribute.Int("file_count", len(files)),
		))
	defer span.End()

	reqBody, err := json.Marshal(&createRequest{ProjectID: projectID, Files: files})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deployment request: %w", err)
	}

	var info Info
	if err := c.do(ctx, http.MethodPost, "/v1/deployments", reqBody, &info); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("deployment.id", info.ID))
	return &info, nil
}

// GetStatus 查询部署状态
func (c *Client) GetStatus(ctx context.Context, deploymentID string) (*Info, error) {
	ctx, span := tracer.Start(ctx, "deployment.GetStatus",
		trace.WithAttributes(attribute.String("deployment.id", deploymentID)))
	defer span.End()

	var info Info
	if err := c.do(ctx, http.MethodGet, "/v1/deployments/"+deploymentID, nil, &info); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("deployment.status", info.Status))
	return &info, nil
}

// GetLogs 获取部署日志
func (c *Client) GetLogs(ctx context.Context, deploymentID string) ([]LogEntry, error) {
	ctx, span := tracer.Start(ctx, "deployment.GetLogs",
		trace.WithAttributes(attribute.String("deployment.id", deploymentID)))
	defer span.End()

	var resp struct {
		Logs []LogEntry `json:"logs"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/deployments/"+deploymentID+"/logs", nil, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return resp.Logs, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	if c.baseURL == "" {
		return apperrors.New(apperrors.CodeDeploymentAPIError, "deployment base url is empty")
	}

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create deployment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDeploymentAPIError, "deployment request failed")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return apperrors.New(apperrors.CodeDeploymentAPIError,
			fmt.Sprintf("deployment request failed: status=%d", httpResp.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode deployment response: %w", err)
		}
	}
	return nil
}
