package project

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DeleteProject 删除项目（软删除）
// @Summary      删除项目
// @Tags         项目
// @Param        project_id  path      string  true  "项目ID"
// @Success      200         {object}  map[string]interface{}
// @Failure      404         {object}  ErrorResponse
// @Router       /api/v1/projects/{project_id} [delete]
func (h *Handler) DeleteProject(c *gin.Context) {
	var uri ProjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 40001, Message: "Invalid project_id", Detail: err.Error()})
		return
	}

	if err := h.synthesisService.DeleteProject(c.Request.Context(), uri.ProjectID); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
	})
}
