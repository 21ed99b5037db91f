// Package preview 实现预览健康监控、错误分类与自动恢复决策
package preview

import (
	"strings"

	"ai-sitegen-api/internal/domain/entity"
)

// signature 已知故障特征
type signature struct {
	pattern         string
	kind            entity.PreviewErrorKind
	autoRecoverable bool
}

// catalogue 故障特征目录。
// 顺序即匹配优先级：更具体的特征排在前面。
var catalogue = []signature{
	// 模块/分块加载失败（致命，可自动恢复）
	{"ChunkLoadError", entity.PreviewErrorRuntime, true},
	{"Loading chunk", entity.PreviewErrorRuntime, true},
	{"Failed to fetch dynamically imported module", entity.PreviewErrorRuntime, true},
	{"Importing a module script failed", entity.PreviewErrorRuntime, true},

	// MIME / 内容类型错误（资源被当成错误类型返回，可自动恢复）
	{"Expected a JavaScript module script", entity.PreviewErrorLoad, true},
	{"disallowed MIME type", entity.PreviewErrorLoad, true},
	{"MIME type", entity.PreviewErrorLoad, true},

	// 渲染器致命错误（可自动恢复）
	{"Minified React error", entity.PreviewErrorRuntime, true},
	{"Application error: a client-side exception", entity.PreviewErrorRuntime, true},
	{"Application error", entity.PreviewErrorRuntime, true},

	// CORS / 字体加载失败
	{"Access-Control-Allow-Origin", entity.PreviewErrorNetwork, false},
	{"has been blocked by CORS policy", entity.PreviewErrorNetwork, false},
	{"Failed to decode downloaded font", entity.PreviewErrorLoad, false},

	// 网络错误码（瞬态，不自动恢复）
	{"net::ERR_", entity.PreviewErrorNetwork, false},
	{"Failed to fetch", entity.PreviewErrorNetwork, false},
	{"NetworkError when attempting", entity.PreviewErrorNetwork, false},

	// 通用脚本错误（可能是表面问题，不自动恢复）
	{"SyntaxError", entity.PreviewErrorRuntime, false},
	{"ReferenceError", entity.PreviewErrorRuntime, false},
	{"TypeError", entity.PreviewErrorRuntime, false},
	{"Uncaught Error", entity.PreviewErrorRuntime, false},
}

// documentMarkers 文档巡检用的文本标记，命中即判定为 runtime_error
var documentMarkers = []string{
	"Application error",
	"Internal Server Error",
	"500 Internal Server Error",
	"502 Bad Gateway",
	"503 Service Unavailable",
	"504 Gateway Timeout",
	"data-error",
}

// Classifier 错误分类器。
// 基于固定特征目录做子串匹配，纯函数，无副作用。
type Classifier struct{}

// NewClassifier 创建错误分类器
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify 将原始信号映射为归一化错误，无匹配时返回 nil
func (c *Classifier) Classify(raw string) *entity.PreviewError {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	lower := strings.ToLower(raw)
	for _, sig := range catalogue {
		if strings.Contains(lower, strings.ToLower(sig.pattern)) {
			return entity.NewPreviewError(sig.kind, raw, "")
		}
	}
	return nil
}

// IsAutoRecoverable 判断错误是否允许自动触发恢复。
// 仅目录中标记为可恢复的严格子集允许；CORS 阻断字体加载的组合视为致命样式失效，一并允许。
func (c *Classifier) IsAutoRecoverable(e *entity.PreviewError) bool {
	if e == nil {
		return false
	}

	lower := strings.ToLower(e.Message)
	for _, sig := range catalogue {
		if strings.Contains(lower, strings.ToLower(sig.pattern)) {
			if sig.autoRecoverable {
				return true
			}
			break
		}
	}

	if (strings.Contains(lower, "cors") || strings.Contains(lower, "access-control-allow-origin")) &&
		(strings.Contains(lower, ".woff") || strings.Contains(lower, "font")) {
		return true
	}

	return false
}

// InspectDocument 巡检已加载文档的文本内容，发现错误标记时返回 runtime_error。
// 仅尽力而为：调用方应在文档不可访问时跳过本路径。
func (c *Classifier) InspectDocument(doc string) *entity.PreviewError {
	if doc == "" {
		return nil
	}

	for _, marker := range documentMarkers {
		if strings.Contains(doc, marker) {
			return entity.NewPreviewError(entity.PreviewErrorRuntime,
				"document contains error marker: "+marker, "")
		}
	}

	if title := extractTitle(doc); title != "" && strings.Contains(strings.ToLower(title), "error") {
		return entity.NewPreviewError(entity.PreviewErrorRuntime,
			"document title indicates error: "+title, "")
	}

	return nil
}

// extractTitle 提取 HTML 文档标题
func extractTitle(doc string) string {
	lower := strings.ToLower(doc)
	start := strings.Index(lower, "<title")
	if start < 0 {
		return ""
	}
	open := strings.Index(lower[start:], ">")
	if open < 0 {
		return ""
	}
	rest := doc[start+open+1:]
	end := strings.Index(strings.ToLower(rest), "</title>")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}
