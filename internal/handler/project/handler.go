package project

import (
	"net/http"

	"ambience/internal/service/synthesis"
)

// ProgressStreamer 进度推送
type ProgressStreamer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, key string)
}

// Handler 项目模块处理器
type Handler struct {
	synthesisService synthesis.Service
	progress         ProgressStreamer
}

// NewHandler 创建项目模块处理器
func NewHandler(synthesisService synthesis.Service, progress ProgressStreamer) *Handler {
	return &Handler{
		synthesisService: synthesisService,
		progress:         progress,
	}
}
