package id

import (
	"strings"

	"github.com/google/uuid"
)

// New 生成新的UUID（string格式），用作项目、任务与记录的业务 ID
func New() string {
	return uuid.New().String()
}

// Short 生成8位短ID，用于临时文件名
func Short() string {
	return strings.ReplaceAll(New(), "-", "")[:8]
}
