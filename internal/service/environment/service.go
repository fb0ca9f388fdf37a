package environment

import "context"

// Service 环境音生成任务服务
type Service interface {
	Submit(ctx context.Context, reqs []Request, maxConcurrent int) []*GenerationTask
	GetTask(ctx context.Context, taskID string) (*GenerationTask, bool)
	ListTasks(ctx context.Context) []*GenerationTask
}

var _ Service = (*Generator)(nil)
