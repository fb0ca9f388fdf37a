package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 业务错误码，前三位与 HTTP 状态码一致
const (
	CodeSuccess        = 0
	CodeInvalidRequest = 40001
	CodeNotFound       = 40401
	CodeConflict       = 40901
	CodePanic          = 50000
	CodeInternal       = 50001
	CodeUnavailable    = 50301
)

// ErrorResponse 错误响应（所有API共用）
type ErrorResponse struct {
	Code    int    `json:"code"`             // 错误码（非0表示错误）
	Message string `json:"message"`          // 错误消息
	Detail  string `json:"detail,omitempty"` // 错误详情（可选）
}

// SuccessResponse 成功响应（所有API共用）
type SuccessResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Success 写出 200 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Code: CodeSuccess, Message: "success", Data: data})
}

// Accepted 写出 202 响应，用于后台任务已受理
func Accepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Code: CodeSuccess, Message: message, Data: data})
}

// Abort 写出错误响应并终止后续中间件
func Abort(c *gin.Context, status, code int, message string, detail ...string) {
	resp := ErrorResponse{Code: code, Message: message}
	if len(detail) > 0 {
		resp.Detail = detail[0]
	}
	c.AbortWithStatusJSON(status, resp)
}
