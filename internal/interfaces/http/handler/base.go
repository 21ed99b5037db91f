package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"ai-sitegen-api/internal/interfaces/http/dto"
	"ai-sitegen-api/pkg/errors"
	"ai-sitegen-api/pkg/logger"
)

// respondError 将应用错误映射为 HTTP 响应。
// AppError 按其错误码对应的状态码返回，其余错误统一 500。
func respondError(ctx context.Context, c *gin.Context, err error, fallback string) {
	if errors.IsAppError(err) {
		appErr := errors.AsAppError(err)
		detail := &dto.ErrorDetail{
			ErrorCode: string(appErr.Code),
			Details:   appErr.Detail,
		}
		dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, detail)
		return
	}
	logger.Error(ctx, fallback, err)
	dto.InternalError(c, fallback)
}
