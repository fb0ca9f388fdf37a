package timeline

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AnalyzeSceneRequest 场景分析请求
type AnalyzeSceneRequest struct {
	Text string `json:"text" binding:"required"`
}

// AnalyzeScene 分析文本场景并给出生成提示词
// @Summary      文本场景分析
// @Tags         时间轴
// @Accept       json
// @Produce      json
// @Param        request  body      AnalyzeSceneRequest  true  "文本"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  ErrorResponse
// @Router       /api/v1/scenes/analyze [post]
func (h *Handler) AnalyzeScene(c *gin.Context) {
	var req AnalyzeSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 40001, Message: "Invalid request", Detail: err.Error()})
		return
	}

	scene := h.analyzer.Analyze(req.Text)

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"scene":        scene,
			"scene_prompt": scene.Prompt(),
			"tango_prompt": h.prompts.BuildTangoPromptWithElements(scene, req.Text),
		},
	})
}
