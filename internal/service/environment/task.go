package environment

import (
	"time"
)

// TaskStatus 生成任务状态
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskGenerating TaskStatus = "generating"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Finished 是否为终止状态
func (s TaskStatus) Finished() bool {
	return s == TaskCompleted || s == TaskFailed
}

// 强度级别
const (
	IntensityLow    = "low"
	IntensityMedium = "medium"
	IntensityHigh   = "high"
)

// Request 环境音生成请求
type Request struct {
	Keyword     string  `json:"keyword"`
	Description string  `json:"description"`
	Prompt      string  `json:"prompt,omitempty"` // 非空时直接作为生成提示词
	Duration    float64 `json:"duration"`
	Intensity   string  `json:"intensity"`
	Subdir      string  `json:"subdir,omitempty"` // 相对输出目录的子目录
	TaskID      string  `json:"-"`                // 预分配的任务ID，为空时自动生成
}

// GenerationTask 环境音生成任务
type GenerationTask struct {
	TaskID       string     `json:"task_id"`
	Keyword      string     `json:"keyword"`
	Description  string     `json:"description"`
	Prompt       string     `json:"prompt"`
	Duration     float64    `json:"duration"`
	Intensity    string     `json:"intensity"`
	Status       TaskStatus `json:"status"`
	Progress     float64    `json:"progress"`
	ResultPath   string     `json:"result_path,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
}

// Clone 拷贝任务快照
func (t *GenerationTask) Clone() *GenerationTask {
	c := *t
	if t.StartTime != nil {
		st := *t.StartTime
		c.StartTime = &st
	}
	if t.EndTime != nil {
		et := *t.EndTime
		c.EndTime = &et
	}
	return &c
}

func newTask(taskID string, req Request) *GenerationTask {
	return &GenerationTask{
		TaskID:      taskID,
		Keyword:     req.Keyword,
		Description: req.Description,
		Duration:    req.Duration,
		Intensity:   req.Intensity,
		Status:      TaskPending,
	}
}
