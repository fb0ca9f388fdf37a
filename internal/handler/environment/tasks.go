package environment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ambience/internal/service/environment"
)

// GetTask 查询生成任务
// @Summary      查询环境音生成任务
// @Tags         环境音
// @Produce      json
// @Param        task_id  path      string  true  "任务ID"
// @Success      200      {object}  map[string]interface{}
// @Failure      404      {object}  ErrorResponse
// @Router       /api/v1/environment/tasks/{task_id} [get]
func (h *Handler) GetTask(c *gin.Context) {
	task, ok := h.environmentService.GetTask(c.Request.Context(), c.Param("task_id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Code: 40401, Message: "任务不存在"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    task,
	})
}

// ListTasks 列出生成任务
// @Summary      列出环境音生成任务
// @Tags         环境音
// @Produce      json
// @Param        status  query     string  false  "按状态过滤"
// @Success      200     {object}  map[string]interface{}
// @Router       /api/v1/environment/tasks [get]
func (h *Handler) ListTasks(c *gin.Context) {
	status := c.Query("status")
	all := h.environmentService.ListTasks(c.Request.Context())

	tasks := make([]*environment.GenerationTask, 0, len(all))
	for _, t := range all {
		if status == "" || string(t.Status) == status {
			tasks = append(tasks, t)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"tasks": tasks,
			"total": len(tasks),
		},
	})
}
