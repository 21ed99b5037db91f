// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"ai-sitegen-api/internal/domain/entity"
	"ai-sitegen-api/internal/domain/repository"
)

// ProjectRepository 项目仓储实现
type ProjectRepository struct {
	client *Client
}

// NewProjectRepository 创建项目仓储
func NewProjectRepository(client *Client) *ProjectRepository {
	return &ProjectRepository{client: client}
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Create")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	historyJSON, _ := json.Marshal(project.ErrorHistory)

	query := `
		INSERT INTO projects (id, prompt, preview_url, conversation_id, status,
			deployment_status, deployment_id, deployment_url, error_history, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRowContext(ctx, query,
		project.Prompt, project.PreviewURL, project.ConversationID, project.Status,
		project.DeploymentStatus, project.DeploymentID, project.DeploymentURL, historyJSON,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// GetByID 根据 ID 获取项目
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.GetByID")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `
		SELECT id, prompt, preview_url, conversation_id, status,
			deployment_status, deployment_id, deployment_url, error_history, created_at, updated_at
		FROM projects
		WHERE id = $1
	`

	project, err := scanProject(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// List 获取项目列表
func (r *ProjectRepository) List(ctx context.Context, filter *repository.ProjectFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.List")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	// 构建查询条件
	whereClause := "1=1"
	args := []interface{}{}
	argIdx := 1

	if filter != nil {
		if filter.Status != "" {
			whereClause += fmt.Sprintf(" AND status = $%d", argIdx)
			args = append(args, filter.Status)
			argIdx++
		}
		if filter.DeploymentStatus != "" {
			whereClause += fmt.Sprintf(" AND deployment_status = $%d", argIdx)
			args = append(args, filter.DeploymentStatus)
			argIdx++
		}
	}

	// 获取总数
	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM projects WHERE %s`, whereClause)
	if err := q.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	// 获取列表
	query := fmt.Sprintf(`
		SELECT id, prompt, preview_url, conversation_id, status,
			deployment_status, deployment_id, deployment_url, error_history, created_at, updated_at
		FROM projects
		WHERE %s
		ORDER BY updated_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIdx, argIdx+1)

	args = append(args, pagination.Limit(), pagination.Offset())

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*entity.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	return repository.NewPagedResult(projects, total, pagination), nil
}

// Update 更新项目
func (r *ProjectRepository) Update(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Update")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	historyJSON, _ := json.Marshal(project.ErrorHistory)

	query := `
		UPDATE projects
		SET prompt = $1, preview_url = $2, conversation_id = $3, status = $4,
			deployment_status = $5, deployment_id = $6, deployment_url = $7,
			error_history = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at
	`

	err := q.QueryRowContext(ctx, query,
		project.Prompt, project.PreviewURL, project.ConversationID, project.Status,
		project.DeploymentStatus, project.DeploymentID, project.DeploymentURL,
		historyJSON, project.ID,
	).Scan(&project.UpdatedAt)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update project: %w", err)
	}

	return nil
}

// UpdatePreview 更新预览 URL 与会话 ID
func (r *ProjectRepository) UpdatePreview(ctx context.Context, id, previewURL, conversationID string) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.UpdatePreview")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `UPDATE projects SET preview_url = $1, conversation_id = $2, updated_at = NOW() WHERE id = $3`
	if _, err := q.ExecContext(ctx, query, previewURL, conversationID, id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update preview: %w", err)
	}

	return nil
}

// UpdateStatus 更新项目状态
func (r *ProjectRepository) UpdateStatus(ctx context.Context, id string, status entity.ProjectStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.UpdateStatus")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `UPDATE projects SET status = $1, updated_at = NOW() WHERE id = $2`
	if _, err := q.ExecContext(ctx, query, status, id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update project status: %w", err)
	}

	return nil
}

// UpdateDeployment 更新部署子状态字段
func (r *ProjectRepository) UpdateDeployment(ctx context.Context, id string, status entity.DeploymentStatus, deploymentID, deploymentURL string) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.UpdateDeployment")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `
		UPDATE projects
		SET deployment_status = $1, deployment_id = $2, deployment_url = $3, updated_at = NOW()
		WHERE id = $4
	`
	if _, err := q.ExecContext(ctx, query, status, deploymentID, deploymentURL, id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update deployment: %w", err)
	}

	return nil
}

// Delete 删除项目
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Delete")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `DELETE FROM projects WHERE id = $1`
	if _, err := q.ExecContext(ctx, query, id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}

// rowScanner 兼容 *sql.Row 和 *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanProject 扫描单行项目记录
func scanProject(row rowScanner) (*entity.Project, error) {
	var project entity.Project
	var previewURL, conversationID, deploymentID, deploymentURL sql.NullString
	var historyJSON []byte

	err := row.Scan(
		&project.ID, &project.Prompt, &previewURL, &conversationID, &project.Status,
		&project.DeploymentStatus, &deploymentID, &deploymentURL, &historyJSON,
		&project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	project.PreviewURL = previewURL.String
	project.ConversationID = conversationID.String
	project.DeploymentID = deploymentID.String
	project.DeploymentURL = deploymentURL.String
	if len(historyJSON) > 0 {
		json.Unmarshal(historyJSON, &project.ErrorHistory)
	}

	return &project, nil
}
