package timeline

import (
	httputil "ambience/internal/pkg/http"
	"ambience/internal/pkg/scenetools"
	"ambience/internal/pkg/timeline"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// Handler 时间轴与场景分析处理器
type Handler struct {
	generator *timeline.Generator
	analyzer  *scenetools.SceneAnalyzer
	prompts   *scenetools.PromptBuilder
}

// NewHandler 创建时间轴处理器
func NewHandler(generator *timeline.Generator, analyzer *scenetools.SceneAnalyzer, prompts *scenetools.PromptBuilder) *Handler {
	return &Handler{
		generator: generator,
		analyzer:  analyzer,
		prompts:   prompts,
	}
}
