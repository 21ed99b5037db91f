// Package entity 定义领域实体
package entity

import (
	"time"
)

// ProjectStatus 项目生命周期状态
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusError     ProjectStatus = "error"
	ProjectStatusCompleted ProjectStatus = "completed"
)

// DeploymentStatus 部署子状态
type DeploymentStatus string

const (
	DeploymentStatusNone     DeploymentStatus = "none"
	DeploymentStatusPending  DeploymentStatus = "pending"
	DeploymentStatusBuilding DeploymentStatus = "building"
	DeploymentStatusReady    DeploymentStatus = "ready"
	DeploymentStatusError    DeploymentStatus = "error"
)

// ErrorRecord 项目错误历史条目
type ErrorRecord struct {
	Kind       PreviewErrorKind `json:"kind"`
	Message    string           `json:"message"`
	SourceURL  string           `json:"source_url,omitempty"`
	DetectedAt time.Time        `json:"detected_at"`
	Resolved   bool             `json:"resolved"`
}

// Project 站点生成项目实体
type Project struct {
	ID               string           `json:"id"`
	Prompt           string           `json:"prompt"`
	PreviewURL       string           `json:"preview_url,omitempty"`
	ConversationID   string           `json:"conversation_id,omitempty"`
	Status           ProjectStatus    `json:"status"`
	DeploymentStatus DeploymentStatus `json:"deployment_status"`
	DeploymentID     string           `json:"deployment_id,omitempty"`
	DeploymentURL    string           `json:"deployment_url,omitempty"`
	ErrorHistory     []ErrorRecord    `json:"error_history,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewProject 创建新项目
func NewProject(prompt string) *Project {
	now := time.Now()
	return &Project{
		Prompt:           prompt,
		Status:           ProjectStatusActive,
		DeploymentStatus: DeploymentStatusNone,
		ErrorHistory:     []ErrorRecord{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// RecordError 追加一条错误历史
func (p *Project) RecordError(e *PreviewError) {
	p.ErrorHistory = append(p.ErrorHistory, ErrorRecord{
		Kind:       e.Kind,
		Message:    e.Message,
		SourceURL:  e.SourceURL,
		DetectedAt: e.DetectedAt,
	})
	p.Status = ProjectStatusError
	p.UpdatedAt = time.Now()
}

// ResolveErrors 将所有未解决的错误标记为已解决
func (p *Project) ResolveErrors() {
	for i := range p.ErrorHistory {
		p.ErrorHistory[i].Resolved = true
	}
	if p.Status == ProjectStatusError {
		p.Status = ProjectStatusActive
	}
	p.UpdatedAt = time.Now()
}

// IsDeployed 检查项目是否已成功部署
func (p *Project) IsDeployed() bool {
	return p.DeploymentStatus == DeploymentStatusReady
}
