package handler

import (
	"github.com/gin-gonic/gin"

	"ai-sitegen-api/internal/application/session"
	"ai-sitegen-api/internal/interfaces/http/dto"
)

// SessionHandler 会话处理器
type SessionHandler struct {
	svc *session.Service
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(svc *session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// SubmitFollowUp 提交后续对话轮次
// @Summary 提交后续对话轮次
// @Description 用户消息立即进入会话记录，生成调用在后台串行执行
// @Tags Session
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.FollowUpRequest true "消息内容"
// @Success 202 {object} dto.Response[dto.MessageResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/messages [post]
func (h *SessionHandler) SubmitFollowUp(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	var req dto.FollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	userMsg, err := h.svc.SubmitFollowUp(ctx, projectID, req.Message)
	if err != nil {
		respondError(ctx, c, err, "failed to submit follow-up")
		return
	}

	dto.Accepted(c, dto.ToMessageResponse(userMsg))
}

// GetSession 获取会话可观测状态
// @Summary 获取会话状态
// @Description 返回预览健康状态、会话记录、待处理错误与执行中的动作
// @Tags Session
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.SessionViewResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/session [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	view, err := h.svc.SessionView(ctx, projectID)
	if err != nil {
		respondError(ctx, c, err, "failed to get session")
		return
	}

	dto.Success(c, dto.ToSessionViewResponse(view))
}

// SetViewMode 切换视图模式
// @Summary 切换视图模式
// @Description preview 展示站点预览，code 展示生成文件兜底视图
// @Tags Session
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.ViewModeRequest true "视图模式"
// @Success 204 "No Content"
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/session/view-mode [put]
func (h *SessionHandler) SetViewMode(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	var req dto.ViewModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.svc.SetViewMode(ctx, projectID, session.ViewMode(req.Mode)); err != nil {
		respondError(ctx, c, err, "failed to set view mode")
		return
	}

	dto.NoContent(c)
}
