package resource

import (
	"strings"

	httputil "ambience/internal/pkg/http"
	"ambience/internal/pkg/storage"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// Handler 存储文件处理器，对外提供合成结果的下载
type Handler struct {
	storage storage.Storage
}

// NewHandler 创建存储文件处理器
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// cleanKey 规范化对象 key，拒绝空 key 与跳出根目录的路径
func cleanKey(key string) (string, bool) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return "", false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", false
		}
	}
	return key, true
}
