package entity

import (
	"time"
)

// SiteFile 生成的站点源文件，一次生成轮次写入一个完整的新版本批次。
// 版本批次写入后不可变；后续轮次递增 version_no 并翻转 is_current，历史版本保留。
type SiteFile struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	VersionNo int       `json:"version_no"`
	Filename  string    `json:"filename"`
	Content   string    `json:"content"`
	Language  string    `json:"language"`
	IsCurrent bool      `json:"is_current"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSiteFile 创建站点文件
func NewSiteFile(projectID string, versionNo int, filename, content, language string) *SiteFile {
	return &SiteFile{
		ProjectID: projectID,
		VersionNo: versionNo,
		Filename:  filename,
		Content:   content,
		Language:  language,
		IsCurrent: true,
		CreatedAt: time.Now(),
	}
}
