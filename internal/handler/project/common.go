package project

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	synthesisModel "ambience/internal/model/synthesis"
	httputil "ambience/internal/pkg/http"
	"ambience/internal/service/synthesis"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// ProjectURI 路径参数
type ProjectURI struct {
	ProjectID string `uri:"project_id" binding:"required"`
}

// ProjectInfo 项目信息 DTO
type ProjectInfo struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	UserID         string  `json:"user_id,omitempty"`
	Status         string  `json:"status"`
	ErrorMessage   string  `json:"error_message,omitempty"`
	FinalAudioPath string  `json:"final_audio_path,omitempty"`
	FinalAudioURL  string  `json:"final_audio_url,omitempty"`
	TimelinePath   string  `json:"timeline_path,omitempty"`
	TotalDuration  float64 `json:"total_duration"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

func toProjectInfo(p *synthesisModel.Project) ProjectInfo {
	return ProjectInfo{
		ID:             p.ID,
		Name:           p.Name,
		UserID:         p.UserID,
		Status:         p.Status.String(),
		ErrorMessage:   p.ErrorMessage,
		FinalAudioPath: p.FinalAudioPath,
		FinalAudioURL:  p.FinalAudioURL,
		TimelinePath:   p.TimelinePath,
		TotalDuration:  p.TotalDuration,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.Format(time.RFC3339),
	}
}

// writeServiceError 将服务错误映射为 HTTP 响应
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, synthesis.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Code: httputil.CodeNotFound, Message: "项目不存在"})
	case errors.Is(err, synthesis.ErrProjectBusy):
		c.JSON(http.StatusConflict, ErrorResponse{Code: httputil.CodeConflict, Message: "项目正在合成", Detail: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: httputil.CodeInternal, Message: "服务器内部错误", Detail: err.Error()})
	}
}
