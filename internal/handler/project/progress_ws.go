package project

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ProgressWS 订阅合成进度
// 连接建立后先收到最近一次进度，之后每个阶段推送一条 JSON
// @Summary      合成进度 WebSocket
// @Tags         项目
// @Param        project_id  path  string  true  "项目ID"
// @Router       /api/v1/projects/{project_id}/progress/ws [get]
func (h *Handler) ProgressWS(c *gin.Context) {
	var uri ProjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 40001, Message: "Invalid project_id", Detail: err.Error()})
		return
	}
	if _, err := h.synthesisService.GetProject(c.Request.Context(), uri.ProjectID); err != nil {
		writeServiceError(c, err)
		return
	}
	h.progress.ServeWS(c.Writer, c.Request, uri.ProjectID)
}
