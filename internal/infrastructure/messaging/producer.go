// Package messaging 提供消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishDeployCheck 发布部署状态检查任务
func (p *Producer) PublishDeployCheck(ctx context.Context, check *DeployCheckMessage) (string, error) {
	msg, err := NewMessage(check.DeploymentID, "deploy_check", check.ProjectID, check)
	if err != nil {
		return "", err
	}

	msg.SetMetadata("attempt", fmt.Sprintf("%d", check.Attempt))
	return p.Publish(ctx, StreamDeployStatus, msg)
}

// PublishPreviewEvent 发布预览事件归档消息
func (p *Producer) PublishPreviewEvent(ctx context.Context, event *PreviewEventMessage) (string, error) {
	msg, err := NewMessage(event.EventID, "preview_event", event.ProjectID, event)
	if err != nil {
		return "", err
	}

	return p.Publish(ctx, StreamPreviewEvents, msg)
}

// DeployCheckMessage 部署状态检查消息
type DeployCheckMessage struct {
	ProjectID    string    `json:"project_id"`
	DeploymentID string    `json:"deployment_id"`
	Attempt      int       `json:"attempt"`
	NotBefore    time.Time `json:"not_before"`
	Deadline     time.Time `json:"deadline"`
}

// PreviewEventMessage 预览事件归档消息
type PreviewEventMessage struct {
	EventID    string    `json:"event_id"`
	ProjectID  string    `json:"project_id"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message,omitempty"`
	SourceURL  string    `json:"source_url,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
