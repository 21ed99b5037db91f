// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"ai-sitegen-api/internal/domain/entity"
)

// ProjectFilter 项目过滤条件
type ProjectFilter struct {
	Status           entity.ProjectStatus
	DeploymentStatus entity.DeploymentStatus
}

// ProjectRepository 项目仓储接口
type ProjectRepository interface {
	// Create 创建项目
	Create(ctx context.Context, project *entity.Project) error

	// GetByID 根据 ID 获取项目
	GetByID(ctx context.Context, id string) (*entity.Project, error)

	// List 获取项目列表
	List(ctx context.Context, filter *ProjectFilter, pagination Pagination) (*PagedResult[*entity.Project], error)

	// Update 更新项目
	Update(ctx context.Context, project *entity.Project) error

	// UpdatePreview 更新预览 URL 与会话 ID
	UpdatePreview(ctx context.Context, id, previewURL, conversationID string) error

	// UpdateStatus 更新项目状态
	UpdateStatus(ctx context.Context, id string, status entity.ProjectStatus) error

	// UpdateDeployment 更新部署子状态字段
	UpdateDeployment(ctx context.Context, id string, status entity.DeploymentStatus, deploymentID, deploymentURL string) error

	// Delete 删除项目
	Delete(ctx context.Context, id string) error
}
