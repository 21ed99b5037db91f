package handler

import (
	"github.com/gin-gonic/gin"

	"ai-sitegen-api/internal/application/session"
	"ai-sitegen-api/internal/interfaces/http/dto"
)

// PreviewHandler 预览健康处理器
type PreviewHandler struct {
	svc *session.Service
}

// NewPreviewHandler 创建预览健康处理器
func NewPreviewHandler(svc *session.Service) *PreviewHandler {
	return &PreviewHandler{svc: svc}
}

// ReportEvent 接收浏览器上报的预览生命周期事件
// @Summary 上报预览事件
// @Description 浏览器端把 iframe 的 loaded / console / error / rejection 信号转发到这里
// @Tags Preview
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.PreviewEventRequest true "事件内容"
// @Success 202 {object} dto.Response[dto.PreviewEventRequest]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/preview/events [post]
func (h *PreviewHandler) ReportEvent(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	var req dto.PreviewEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	event := &session.PreviewEvent{
		Kind:      req.Kind,
		Message:   req.Message,
		SourceURL: req.SourceURL,
	}
	if err := h.svc.HandlePreviewEvent(ctx, projectID, event); err != nil {
		respondError(ctx, c, err, "failed to handle preview event")
		return
	}

	dto.Accepted(c, req)
}

// Retry 手动重试预览加载
// @Summary 重试预览
// @Description 受重试预算约束，允许时返回带防缓存参数的重试 URL
// @Tags Preview
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.RetryResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/preview/retry [post]
func (h *PreviewHandler) Retry(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	outcome, err := h.svc.RetryPreview(ctx, projectID)
	if err != nil {
		respondError(ctx, c, err, "failed to retry preview")
		return
	}

	dto.Success(c, dto.RetryResponse{
		Allowed:    outcome.Allowed,
		RetryCount: outcome.RetryCount,
		MaxRetries: outcome.MaxRetries,
		RetryURL:   outcome.RetryURL,
	})
}

// ForceShow 无条件展示预览
// @Summary 强制展示预览
// @Description 把预览标记为已加载，底层故障记录保留
// @Tags Preview
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 204 "No Content"
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/preview/force-show [post]
func (h *PreviewHandler) ForceShow(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	if err := h.svc.ForceShowPreview(ctx, projectID); err != nil {
		respondError(ctx, c, err, "failed to force show preview")
		return
	}

	dto.NoContent(c)
}
