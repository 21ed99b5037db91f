package dto

import (
	"time"

	"ai-sitegen-api/internal/domain/entity"
)

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// ProjectResponse 项目响应
type ProjectResponse struct {
	ID               string                `json:"id"`
	Prompt           string                `json:"prompt"`
	PreviewURL       string                `json:"preview_url,omitempty"`
	ConversationID   string                `json:"conversation_id,omitempty"`
	Status           string                `json:"status"`
	DeploymentStatus string                `json:"deployment_status"`
	DeploymentID     string                `json:"deployment_id,omitempty"`
	DeploymentURL    string                `json:"deployment_url,omitempty"`
	ErrorHistory     []ErrorRecordResponse `json:"error_history,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// ErrorRecordResponse 错误历史条目响应
type ErrorRecordResponse struct {
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	SourceURL  string    `json:"source_url,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
	Resolved   bool      `json:"resolved"`
}

// ToProjectResponse 转换项目实体为响应
func ToProjectResponse(p *entity.Project) *ProjectResponse {
	resp := &ProjectResponse{
		ID:               p.ID,
		Prompt:           p.Prompt,
		PreviewURL:       p.PreviewURL,
		ConversationID:   p.ConversationID,
		Status:           string(p.Status),
		DeploymentStatus: string(p.DeploymentStatus),
		DeploymentID:     p.DeploymentID,
		DeploymentURL:    p.DeploymentURL,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	for _, rec := range p.ErrorHistory {
		resp.ErrorHistory = append(resp.ErrorHistory, ErrorRecordResponse{
			Kind:       string(rec.Kind),
			Message:    rec.Message,
			SourceURL:  rec.SourceURL,
			DetectedAt: rec.DetectedAt,
			Resolved:   rec.Resolved,
		})
	}
	return resp
}

// ToProjectListResponse 转换项目列表为响应
func ToProjectListResponse(projects []*entity.Project) []*ProjectResponse {
	out := make([]*ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, ToProjectResponse(p))
	}
	return out
}
