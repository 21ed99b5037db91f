package dto

import (
	"time"

	"ai-sitegen-api/internal/domain/entity"
)

// FileResponse 站点文件响应
type FileResponse struct {
	ID        string    `json:"id"`
	VersionNo int       `json:"version_no"`
	Filename  string    `json:"filename"`
	Content   string    `json:"content"`
	Language  string    `json:"language"`
	IsCurrent bool      `json:"is_current"`
	CreatedAt time.Time `json:"created_at"`
}

// ToFileListResponse 转换站点文件批次为响应
func ToFileListResponse(files []*entity.SiteFile) []*FileResponse {
	out := make([]*FileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, &FileResponse{
			ID:        f.ID,
			VersionNo: f.VersionNo,
			Filename:  f.Filename,
			Content:   f.Content,
			Language:  f.Language,
			IsCurrent: f.IsCurrent,
			CreatedAt: f.CreatedAt,
		})
	}
	return out
}
