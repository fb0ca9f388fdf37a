package project

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ambience/internal/service/synthesis"
)

// ParagraphInfo 合成计划段落
type ParagraphInfo struct {
	Text       string  `json:"text" binding:"required"`
	Speaker    string  `json:"speaker"`
	VoiceType  string  `json:"voice_type"`
	SpeedRatio float64 `json:"speed_ratio"`
}

// StartSynthesisRequest 启动合成请求
type StartSynthesisRequest struct {
	Paragraphs        []ParagraphInfo `json:"paragraphs" binding:"required,min=1,dive"`
	EnableEnvironment *bool           `json:"enable_environment"` // 默认 true
	EnvironmentVolume *float64        `json:"environment_volume"` // [0,1]，默认取配置
	ParallelTasks     int             `json:"parallel_tasks"`
}

// StartSynthesis 启动对白+环境音合成
// @Summary      启动项目合成（后台执行，进度通过 WebSocket 推送）
// @Tags         项目
// @Accept       json
// @Produce      json
// @Param        project_id  path      string                 true  "项目ID"
// @Param        request     body      StartSynthesisRequest  true  "合成计划"
// @Success      202         {object}  map[string]interface{}
// @Failure      400         {object}  ErrorResponse
// @Failure      404         {object}  ErrorResponse
// @Failure      409         {object}  ErrorResponse  "项目正在合成"
// @Router       /api/v1/projects/{project_id}/synthesis [post]
func (h *Handler) StartSynthesis(c *gin.Context) {
	var uri ProjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 40001, Message: "Invalid project_id", Detail: err.Error()})
		return
	}

	var req StartSynthesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 40001, Message: "Invalid request", Detail: err.Error()})
		return
	}

	opts := synthesis.SynthesisOptions{
		EnableEnvironment: true,
		EnvironmentVolume: h.synthesisService.DefaultEnvironmentVolume(),
		ParallelTasks:     req.ParallelTasks,
	}
	if req.EnableEnvironment != nil {
		opts.EnableEnvironment = *req.EnableEnvironment
	}
	if req.EnvironmentVolume != nil {
		v := *req.EnvironmentVolume
		if v < 0 || v > 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 40001, Message: "environment_volume must be within [0, 1]"})
			return
		}
		opts.EnvironmentVolume = v
	}
	for _, p := range req.Paragraphs {
		if strings.TrimSpace(p.Text) == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 40001, Message: "paragraph text is required"})
			return
		}
		opts.SynthesisData.Paragraphs = append(opts.SynthesisData.Paragraphs, synthesis.Paragraph{
			Text:       p.Text,
			Speaker:    p.Speaker,
			VoiceType:  p.VoiceType,
			SpeedRatio: p.SpeedRatio,
		})
	}

	if err := h.synthesisService.StartSynthesis(c.Request.Context(), uri.ProjectID, opts); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"code":    0,
		"message": "synthesis started",
		"data": gin.H{
			"project_id":         uri.ProjectID,
			"enable_environment": opts.EnableEnvironment,
			"environment_volume": opts.EnvironmentVolume,
			"paragraphs":         len(opts.SynthesisData.Paragraphs),
			"progress_ws":        "/api/v1/projects/" + uri.ProjectID + "/progress/ws",
		},
	})
}
