package environment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"ambience/internal/pkg/cache"
)

// TaskStore 生成任务存储
// Save 保存任务快照，调用方之后对任务的修改不会影响已保存的数据
type TaskStore interface {
	Save(ctx context.Context, task *GenerationTask) error
	Get(ctx context.Context, taskID string) (*GenerationTask, bool)
	List(ctx context.Context) []*GenerationTask
	// DeleteFinishedBefore 删除结束时间早于 cutoff 的任务，返回删除数量
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) int
}

// MemoryTaskStore 进程内任务存储
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*GenerationTask
}

// NewMemoryTaskStore 创建进程内任务存储
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[string]*GenerationTask)}
}

func (s *MemoryTaskStore) Save(_ context.Context, task *GenerationTask) error {
	s.mu.Lock()
	s.tasks[task.TaskID] = task.Clone()
	s.mu.Unlock()
	return nil
}

func (s *MemoryTaskStore) Get(_ context.Context, taskID string) (*GenerationTask, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// List 按开始时间排序返回全部任务
func (s *MemoryTaskStore) List(_ context.Context) []*GenerationTask {
	s.mu.RLock()
	out := make([]*GenerationTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].StartTime, out[j].StartTime
		switch {
		case a == nil && b == nil:
			return out[i].TaskID < out[j].TaskID
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})
	return out
}

func (s *MemoryTaskStore) DeleteFinishedBefore(_ context.Context, cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, t := range s.tasks {
		if t.EndTime != nil && t.EndTime.Before(cutoff) {
			delete(s.tasks, id)
			n++
		}
	}
	return n
}

// RedisTaskStore 本地存储 + Redis 镜像
// 其他进程可通过 Get 查询到本进程创建的任务
type RedisTaskStore struct {
	local *MemoryTaskStore
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewRedisTaskStore 创建带 Redis 镜像的任务存储
func NewRedisTaskStore(c *cache.RedisCache, ttl time.Duration) *RedisTaskStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisTaskStore{local: NewMemoryTaskStore(), cache: c, ttl: ttl}
}

func (s *RedisTaskStore) Save(ctx context.Context, task *GenerationTask) error {
	if err := s.local.Save(ctx, task); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, cache.EnvTaskKey(task.TaskID), task, s.ttl); err != nil {
		// 镜像失败不影响本地任务
		log.Warn().Err(err).Str("task_id", task.TaskID).Msg("同步任务到 Redis 失败")
	}
	return nil
}

func (s *RedisTaskStore) Get(ctx context.Context, taskID string) (*GenerationTask, bool) {
	if t, ok := s.local.Get(ctx, taskID); ok {
		return t, true
	}
	var t GenerationTask
	if err := s.cache.Get(ctx, cache.EnvTaskKey(taskID), &t); err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Warn().Err(err).Str("task_id", taskID).Msg("从 Redis 读取任务失败")
		}
		return nil, false
	}
	return &t, true
}

// List 只返回本进程的任务
func (s *RedisTaskStore) List(ctx context.Context) []*GenerationTask {
	return s.local.List(ctx)
}

// DeleteFinishedBefore 清理本地任务并删除对应的 Redis 副本
func (s *RedisTaskStore) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) int {
	var keys []string
	for _, t := range s.local.List(ctx) {
		if t.EndTime != nil && t.EndTime.Before(cutoff) {
			keys = append(keys, cache.EnvTaskKey(t.TaskID))
		}
	}
	n := s.local.DeleteFinishedBefore(ctx, cutoff)
	if len(keys) > 0 {
		if err := s.cache.Delete(ctx, keys...); err != nil {
			log.Warn().Err(err).Int("count", len(keys)).Msg("删除 Redis 任务副本失败")
		}
	}
	return n
}
