package handler

import (
	"github.com/gin-gonic/gin"

	"ai-sitegen-api/internal/application/session"
	"ai-sitegen-api/internal/interfaces/http/dto"
)

// DeploymentHandler 部署处理器
type DeploymentHandler struct {
	svc *session.Service
}

// NewDeploymentHandler 创建部署处理器
func NewDeploymentHandler(svc *session.Service) *DeploymentHandler {
	return &DeploymentHandler{svc: svc}
}

// Publish 发布当前文件批次
// @Summary 发布站点
// @Description 把当前版本的生成文件提交到部署服务，后台轮询器跟踪构建进度
// @Tags Deployments
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 201 {object} dto.Response[dto.ProjectResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/deployments [post]
func (h *DeploymentHandler) Publish(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	project, err := h.svc.Publish(ctx, projectID)
	if err != nil {
		respondError(ctx, c, err, "failed to publish project")
		return
	}

	dto.Created(c, dto.ToProjectResponse(project))
}

// RefreshStatus 主动刷新部署状态
// @Summary 刷新部署状态
// @Tags Deployments
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.ProjectResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/deployments/refresh [post]
func (h *DeploymentHandler) RefreshStatus(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	project, err := h.svc.RefreshDeploymentStatus(ctx, projectID)
	if err != nil {
		respondError(ctx, c, err, "failed to refresh deployment status")
		return
	}

	dto.Success(c, dto.ToProjectResponse(project))
}

// GetLogs 获取部署日志
// @Summary 获取部署日志
// @Tags Deployments
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[[]dto.DeploymentLogResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/deployments/logs [get]
func (h *DeploymentHandler) GetLogs(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	logs, err := h.svc.GetDeploymentLogs(ctx, projectID)
	if err != nil {
		respondError(ctx, c, err, "failed to get deployment logs")
		return
	}

	dto.Success(c, dto.ToDeploymentLogsResponse(logs))
}
