// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"ai-sitegen-api/internal/application/session"
	"ai-sitegen-api/internal/domain/repository"
	"ai-sitegen-api/internal/interfaces/http/dto"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	svc *session.Service
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(svc *session.Service) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// CreateProject 创建项目并提交初始生成请求
// @Summary 创建项目
// @Description 基于设计提示词创建项目，同步等待首轮站点生成完成
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body dto.CreateProjectRequest true "设计提示词"
// @Success 201 {object} dto.Response[dto.ProjectResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	project, err := h.svc.SubmitPrompt(ctx, req.Prompt)
	if err != nil {
		respondError(ctx, c, err, "failed to create project")
		return
	}

	dto.Created(c, dto.ToProjectResponse(project))
}

// ListProjects 获取项目列表
// @Summary 获取项目列表
// @Tags Projects
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[[]dto.ProjectResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	ctx := c.Request.Context()
	pageReq := dto.BindPage(c)

	result, err := h.svc.ListProjects(ctx, nil, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		respondError(ctx, c, err, "failed to list projects")
		return
	}

	resp := dto.ToProjectListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// GetProject 获取项目详情
// @Summary 获取项目详情
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.ProjectResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	project, err := h.svc.GetProject(ctx, projectID)
	if err != nil {
		respondError(ctx, c, err, "failed to get project")
		return
	}

	dto.Success(c, dto.ToProjectResponse(project))
}

// ListMessages 获取项目会话消息
// @Summary 获取项目会话消息
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[[]dto.MessageResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/messages [get]
func (h *ProjectHandler) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	msgs, err := h.svc.ListMessages(ctx, projectID)
	if err != nil {
		respondError(ctx, c, err, "failed to list messages")
		return
	}

	dto.Success(c, dto.ToMessageListResponse(msgs))
}

// ListFiles 获取项目站点文件
// @Summary 获取项目站点文件
// @Description 返回指定版本的文件批次，不带 version 参数时返回当前批次
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Param version query int false "版本号"
// @Success 200 {object} dto.Response[[]dto.FileResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/files [get]
func (h *ProjectHandler) ListFiles(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)
	versionNo := dto.BindVersionNo(c)

	files, err := h.svc.ListFiles(ctx, projectID, versionNo)
	if err != nil {
		respondError(ctx, c, err, "failed to list files")
		return
	}

	dto.Success(c, dto.ToFileListResponse(files))
}
