package timeline

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ambience/internal/pkg/timeline"
)

// AudioFileItem 时间轴输入音频
type AudioFileItem struct {
	FilePath    string `json:"file_path"`
	TextContent string `json:"text_content"`
	Speaker     string `json:"speaker"`
}

// GenerateTimelineRequest 生成时间轴请求
type GenerateTimelineRequest struct {
	ProjectName string          `json:"project_name"`
	AudioFiles  []AudioFileItem `json:"audio_files"`
}

// GenerateTimeline 由对白音频生成环境音时间轴
// @Summary      生成环境音时间轴
// @Description  format 非空时额外返回剪辑软件导出结构
// @Tags         时间轴
// @Accept       json
// @Produce      json
// @Param        format   query     string                   false  "generic | premiere_pro | davinci_resolve"
// @Param        request  body      GenerateTimelineRequest  true   "对白音频列表"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  ErrorResponse
// @Router       /api/v1/timelines [post]
func (h *Handler) GenerateTimeline(c *gin.Context) {
	var req GenerateTimelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 40001, Message: "Invalid request", Detail: err.Error()})
		return
	}

	formatParam := c.Query("format")
	format, err := timeline.ParseExportFormat(formatParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 40001, Message: "Invalid format", Detail: err.Error()})
		return
	}

	files := make([]timeline.AudioFile, len(req.AudioFiles))
	for i, f := range req.AudioFiles {
		files[i] = timeline.AudioFile{
			FilePath:    f.FilePath,
			TextContent: f.TextContent,
			Speaker:     f.Speaker,
		}
	}

	tl := h.generator.GenerateTimeline(c.Request.Context(), files)
	data := gin.H{
		"timeline":   tl,
		"validation": timeline.Validate(tl),
	}

	if formatParam != "" {
		name := req.ProjectName
		if name == "" {
			name = "ambience"
		}
		exported, err := timeline.Export(tl, name, format)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 50001, Message: "export failed", Detail: err.Error()})
			return
		}
		data["export"] = exported
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    data,
	})
}
