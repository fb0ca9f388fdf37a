package environment

import (
	httputil "ambience/internal/pkg/http"
	"ambience/internal/service/environment"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// Handler 环境音生成处理器
type Handler struct {
	environmentService environment.Service
	maxConcurrent      int
}

// NewHandler 创建环境音生成处理器
func NewHandler(environmentService environment.Service, maxConcurrent int) *Handler {
	if maxConcurrent <= 0 {
		maxConcurrent = environment.DefaultMaxConcurrent
	}
	return &Handler{
		environmentService: environmentService,
		maxConcurrent:      maxConcurrent,
	}
}
