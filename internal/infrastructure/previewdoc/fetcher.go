// Package previewdoc 提供预览文档抓取实现，供错误标记巡检使用
package previewdoc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("previewdoc")

// maxDocumentSize 巡检只需要文档前部的文本标记
const maxDocumentSize = 512 * 1024

// Fetcher 基于 HTTP 的预览文档抓取器
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher 创建文档抓取器
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch 抓取预览文档内容
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	ctx, span := tracer.Start(ctx, "previewdoc.Fetch",
		trace.WithAttributes(attribute.String("preview.url", url)))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create fetch request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to fetch preview document: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to read preview document: %w", err)
	}

	// 5xx 响应体本身就是巡检对象，连同状态行一起交给分类器
	if resp.StatusCode >= 500 {
		return fmt.Sprintf("%d %s\n%s", resp.StatusCode, http.StatusText(resp.StatusCode), body), nil
	}

	return string(body), nil
}
