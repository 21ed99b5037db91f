package repository

import (
	"context"

	"ai-sitegen-api/internal/domain/entity"
)

// FileRepository 站点文件仓储接口。
// 写入以版本批次为单位：新批次整体落库并成为 current，旧批次保留但置为非 current。
type FileRepository interface {
	// ReplaceBatch 写入新版本批次并返回新版本号
	ReplaceBatch(ctx context.Context, projectID string, files []*entity.SiteFile) (int, error)

	// ListCurrent 获取当前版本批次
	ListCurrent(ctx context.Context, projectID string) ([]*entity.SiteFile, error)

	// ListByVersion 获取指定版本批次
	ListByVersion(ctx context.Context, projectID string, versionNo int) ([]*entity.SiteFile, error)

	// LatestVersionNo 获取最新版本号，无批次时返回 0
	LatestVersionNo(ctx context.Context, projectID string) (int, error)
}
