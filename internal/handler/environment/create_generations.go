package environment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httputil "ambience/internal/pkg/http"
	"ambience/internal/service/environment"
)

// GenerationItem 单个生成请求
type GenerationItem struct {
	Keyword     string  `json:"keyword" binding:"required"`
	Description string  `json:"description"`
	Prompt      string  `json:"prompt"`
	Duration    float64 `json:"duration"`
	Intensity   string  `json:"intensity" binding:"omitempty,oneof=low medium high"`
}

// CreateGenerationsRequest 批量生成请求
type CreateGenerationsRequest struct {
	Requests      []GenerationItem `json:"requests" binding:"required,min=1,dive"`
	MaxConcurrent int              `json:"max_concurrent"`
}

// CreateGenerations 提交环境音生成任务
// @Summary      批量提交环境音生成
// @Tags         环境音
// @Accept       json
// @Produce      json
// @Param        request  body      CreateGenerationsRequest  true  "生成请求"
// @Success      202      {object}  map[string]interface{}
// @Failure      400      {object}  ErrorResponse
// @Router       /api/v1/environment/generations [post]
func (h *Handler) CreateGenerations(c *gin.Context) {
	var req CreateGenerationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request",
			Detail:  err.Error(),
		})
		return
	}

	maxConcurrent := req.MaxConcurrent
	if maxConcurrent <= 0 || maxConcurrent > h.maxConcurrent {
		maxConcurrent = h.maxConcurrent
	}

	reqs := make([]environment.Request, len(req.Requests))
	for i, item := range req.Requests {
		reqs[i] = environment.Request{
			Keyword:     item.Keyword,
			Description: item.Description,
			Prompt:      item.Prompt,
			Duration:    item.Duration,
			Intensity:   item.Intensity,
		}
	}

	tasks := h.environmentService.Submit(c.Request.Context(), reqs, maxConcurrent)

	httputil.Accepted(c, "generation submitted", gin.H{
		"tasks":          tasks,
		"max_concurrent": maxConcurrent,
	})
}
