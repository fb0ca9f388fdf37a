package project

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetProject 获取项目
// @Summary      获取项目详情（含合成状态与最终音频）
// @Tags         项目
// @Produce      json
// @Param        project_id  path      string  true  "项目ID"
// @Success      200         {object}  map[string]interface{}
// @Failure      404         {object}  ErrorResponse
// @Router       /api/v1/projects/{project_id} [get]
func (h *Handler) GetProject(c *gin.Context) {
	var uri ProjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 40001, Message: "Invalid project_id", Detail: err.Error()})
		return
	}

	p, err := h.synthesisService.GetProject(c.Request.Context(), uri.ProjectID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    toProjectInfo(p),
	})
}
