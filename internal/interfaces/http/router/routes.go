// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *Handlers) {
	// 项目管理
	projects := v1.Group("/projects")
	{
		projects.GET("", h.Project.ListProjects)
		projects.POST("", h.Project.CreateProject)
		projects.GET("/:pid", h.Project.GetProject)

		// 会话
		projects.GET("/:pid/session", h.Session.GetSession)
		projects.PUT("/:pid/session/view-mode", h.Session.SetViewMode)
		projects.GET("/:pid/messages", h.Project.ListMessages)
		projects.POST("/:pid/messages", h.Session.SubmitFollowUp)

		// 生成文件
		projects.GET("/:pid/files", h.Project.ListFiles)

		// 预览健康
		projects.POST("/:pid/preview/events", h.Preview.ReportEvent)
		projects.POST("/:pid/preview/retry", h.Preview.Retry)
		projects.POST("/:pid/preview/force-show", h.Preview.ForceShow)

		// 部署
		projects.POST("/:pid/deployments", h.Deployment.Publish)
		projects.POST("/:pid/deployments/refresh", h.Deployment.RefreshStatus)
		projects.GET("/:pid/deployments/logs", h.Deployment.GetLogs)
	}
}
