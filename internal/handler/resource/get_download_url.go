package resource

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	httputil "ambience/internal/pkg/http"
)

const defaultURLExpiry = time.Hour

// GetDownloadURLResponseData 获取下载URL响应数据
type GetDownloadURLResponseData struct {
	Key         string `json:"key"`
	DownloadURL string `json:"download_url"`
	ExpiresAt   string `json:"expires_at"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type"`
}

// GetDownloadURL 获取下载URL（预签名URL）
// @Summary      获取下载URL
// @Description  OSS / MinIO 返回预签名URL，本地存储返回 /files 下的地址
// @Tags         文件
// @Produce      json
// @Param        key         query     string  true   "对象 key"
// @Param        expires_in  query     int     false  "过期时间（秒，默认3600）"
// @Success      200         {object}  map[string]interface{}
// @Failure      400         {object}  ErrorResponse
// @Failure      404         {object}  ErrorResponse
// @Router       /api/v1/files/download-url [get]
func (h *Handler) GetDownloadURL(c *gin.Context) {
	key, ok := cleanKey(c.Query("key"))
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 40001, Message: "Invalid key"})
		return
	}

	expiresIn := defaultURLExpiry
	if s := c.Query("expires_in"); s != "" {
		if seconds, err := strconv.Atoi(s); err == nil && seconds > 0 {
			expiresIn = time.Duration(seconds) * time.Second
		}
	}

	ctx := c.Request.Context()

	info, err := h.storage.GetFileInfo(ctx, key)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Code: 40401, Message: "文件不存在", Detail: err.Error()})
		return
	}

	url, err := h.storage.GetPresignedDownloadURL(ctx, key, expiresIn)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 50001, Message: "Failed to sign url", Detail: err.Error()})
		return
	}

	httputil.Success(c, GetDownloadURLResponseData{
		Key:         key,
		DownloadURL: url,
		ExpiresAt:   time.Now().Add(expiresIn).Format(time.RFC3339),
		FileSize:    info.Size,
		ContentType: info.ContentType,
	})
}
