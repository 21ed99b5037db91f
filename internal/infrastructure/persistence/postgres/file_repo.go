// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"ai-sitegen-api/internal/domain/entity"
)

// FileRepository 站点文件仓储实现
type FileRepository struct {
	client *Client
	txMgr  *TxManager
}

// NewFileRepository 创建站点文件仓储
func NewFileRepository(client *Client, txMgr *TxManager) *FileRepository {
	return &FileRepository{client: client, txMgr: txMgr}
}

// ReplaceBatch 写入新版本批次并返回新版本号。
// 旧批次在同一事务内整体置为非 current，保证任意时刻只有一个 current 批次。
func (r *FileRepository) ReplaceBatch(ctx context.Context, projectID string, files []*entity.SiteFile) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.FileRepository.ReplaceBatch")
	defer span.End()

	var versionNo int

	err := r.txMgr.WithTransaction(ctx, func(txCtx context.Context) error {
		q := getQuerier(txCtx, r.client.db)

		latest, err := r.latestVersionNo(txCtx, projectID)
		if err != nil {
			return err
		}
		versionNo = latest + 1

		clearQuery := `UPDATE site_files SET is_current = FALSE WHERE project_id = $1 AND is_current = TRUE`
		if _, err := q.ExecContext(txCtx, clearQuery, projectID); err != nil {
			return fmt.Errorf("failed to clear current batch: %w", err)
		}

		insertQuery := `
			INSERT INTO site_files (id, project_id, version_no, filename, content, language, is_current, created_at)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, TRUE, NOW())
			RETURNING id, created_at
		`
		for _, file := range files {
			file.ProjectID = projectID
			file.VersionNo = versionNo
			file.IsCurrent = true
			err := q.QueryRowContext(txCtx, insertQuery,
				projectID, versionNo, file.Filename, file.Content, file.Language,
			).Scan(&file.ID, &file.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert file %s: %w", file.Filename, err)
			}
		}

		return nil
	})

	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	return versionNo, nil
}

// ListCurrent 获取当前版本批次
func (r *FileRepository) ListCurrent(ctx context.Context, projectID string) ([]*entity.SiteFile, error) {
	ctx, span := tracer.Start(ctx, "postgres.FileRepository.ListCurrent")
	defer span.End()

	query := `
		SELECT id, project_id, version_no, filename, content, language, is_current, created_at
		FROM site_files
		WHERE project_id = $1 AND is_current = TRUE
		ORDER BY filename ASC
	`

	return r.queryFiles(ctx, query, projectID)
}

// ListByVersion 获取指定版本批次
func (r *FileRepository) ListByVersion(ctx context.Context, projectID string, versionNo int) ([]*entity.SiteFile, error) {
	ctx, span := tracer.Start(ctx, "postgres.FileRepository.ListByVersion")
	defer span.End()

	query := `
		SELECT id, project_id, version_no, filename, content, language, is_current, created_at
		FROM site_files
		WHERE project_id = $1 AND version_no = $2
		ORDER BY filename ASC
	`

	return r.queryFiles(ctx, query, projectID, versionNo)
}

// LatestVersionNo 获取最新版本号，无批次时返回 0
func (r *FileRepository) LatestVersionNo(ctx context.Context, projectID string) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.FileRepository.LatestVersionNo")
	defer span.End()

	return r.latestVersionNo(ctx, projectID)
}

func (r *FileRepository) latestVersionNo(ctx context.Context, projectID string) (int, error) {
	q := getQuerier(ctx, r.client.db)

	var versionNo sql.NullInt64
	query := `SELECT MAX(version_no) FROM site_files WHERE project_id = $1`
	if err := q.QueryRowContext(ctx, query, projectID).Scan(&versionNo); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get latest version: %w", err)
	}

	return int(versionNo.Int64), nil
}

func (r *FileRepository) queryFiles(ctx context.Context, query string, args ...interface{}) ([]*entity.SiteFile, error) {
	q := getQuerier(ctx, r.client.db)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []*entity.SiteFile
	for rows.Next() {
		var file entity.SiteFile
		err := rows.Scan(
			&file.ID, &file.ProjectID, &file.VersionNo, &file.Filename,
			&file.Content, &file.Language, &file.IsCurrent, &file.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, &file)
	}

	return files, nil
}
