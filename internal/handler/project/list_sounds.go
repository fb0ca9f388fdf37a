package project

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListEnvironmentSounds 列出项目生成的环境音素材
// @Summary      列出项目环境音素材
// @Tags         项目
// @Produce      json
// @Param        project_id  path      string  true  "项目ID"
// @Success      200         {object}  map[string]interface{}
// @Failure      404         {object}  ErrorResponse
// @Router       /api/v1/projects/{project_id}/environment-sounds [get]
func (h *Handler) ListEnvironmentSounds(c *gin.Context) {
	var uri ProjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 40001, Message: "Invalid project_id", Detail: err.Error()})
		return
	}

	sounds, err := h.synthesisService.ListEnvironmentSounds(c.Request.Context(), uri.ProjectID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"sounds": sounds,
			"total":  len(sounds),
		},
	})
}
