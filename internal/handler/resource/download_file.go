package resource

import (
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// DownloadFile 下载文件
// @Summary      下载存储中的文件
// @Description  按对象 key 返回文件流，本地存储的访问 URL 指向该接口
// @Tags         文件
// @Produce      application/octet-stream
// @Param        key  path      string  true  "对象 key"
// @Success      200  {file}    binary  "文件流"
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /files/{key} [get]
func (h *Handler) DownloadFile(c *gin.Context) {
	key, ok := cleanKey(c.Param("key"))
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 40001, Message: "Invalid key"})
		return
	}

	ctx := c.Request.Context()

	info, err := h.storage.GetFileInfo(ctx, key)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Code: 40401, Message: "文件不存在", Detail: err.Error()})
		return
	}

	data, err := h.storage.Download(ctx, key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 50001, Message: "Failed to open file", Detail: err.Error()})
		return
	}
	defer data.Close()

	// 设置响应头
	c.Header("Content-Type", info.ContentType)
	c.Header("Content-Disposition", `attachment; filename="`+path.Base(key)+`"`)
	c.Header("Content-Length", fmt.Sprintf("%d", info.Size))
	c.Status(http.StatusOK)

	// 流式传输文件，响应头已发出，失败只记录日志
	if _, err := io.Copy(c.Writer, data); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to stream file")
	}
}
