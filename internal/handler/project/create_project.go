package project

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name   string `json:"name" binding:"required"`
	UserID string `json:"user_id"`
}

// CreateProject 创建项目
// @Summary      创建合成项目
// @Tags         项目
// @Accept       json
// @Produce      json
// @Param        request  body      CreateProjectRequest  true  "项目信息"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  ErrorResponse
// @Router       /api/v1/projects [post]
func (h *Handler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request",
			Detail:  err.Error(),
		})
		return
	}

	p, err := h.synthesisService.CreateProject(c.Request.Context(), req.Name, req.UserID)
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
