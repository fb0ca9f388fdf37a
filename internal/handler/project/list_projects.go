package project

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListProjects 按用户列出项目
// @Summary      列出用户的项目
// @Tags         项目
// @Produce      json
// @Param        user_id  query     string  false  "用户ID"
// @Success      200      {object}  map[string]interface{}
// @Router       /api/v1/projects [get]
func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.synthesisService.ListProjects(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	items := make([]ProjectInfo, 0, len(projects))
	for _, p := range projects {
		items = append(items, toProjectInfo(p))
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"projects": items,
			"total":    len(items),
		},
	})
}
