package dto

import (
	"time"

	"ai-sitegen-api/internal/infrastructure/deployment"
)

// DeploymentLogResponse 部署日志条目响应
type DeploymentLogResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level,omitempty"`
	Message   string    `json:"message"`
}

// ToDeploymentLogsResponse 转换部署日志为响应
func ToDeploymentLogsResponse(logs []deployment.LogEntry) []DeploymentLogResponse {
	out := make([]DeploymentLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, DeploymentLogResponse{
			Timestamp: l.Timestamp,
			Level:     l.Level,
			Message:   l.Message,
		})
	}
	return out
}
