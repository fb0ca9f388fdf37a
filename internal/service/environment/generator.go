package environment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"ambience/internal/pkg/id"
	"ambience/internal/pkg/metrics"
	"ambience/internal/pkg/tangoflux"
)

// 生成参数默认值
const (
	DefaultOutputDir     = "data/environment_sounds"
	DefaultDuration      = 30.0
	MinDuration          = 1.0
	DefaultMaxDuration   = 60.0
	DefaultMaxConcurrent = 3
	DefaultRetention     = 24 * time.Hour
)

type intensityConfig struct {
	guidanceScale float64
	suffix        string
}

var intensityConfigs = map[string]intensityConfig{
	IntensityLow:    {guidanceScale: 3.0, suffix: "，声音轻柔、安静、舒缓"},
	IntensityMedium: {guidanceScale: 4.5, suffix: "，声音清晰、自然、平衡"},
	IntensityHigh:   {guidanceScale: 6.0, suffix: "，声音强烈、突出、有力"},
}

// 常见关键词的基础提示词，%s 为关键词本身
var baseTemplates = map[string]string{
	"雨声":  "Heavy rain falling on leaves and ground, natural rainfall sounds, %s",
	"雷声":  "Thunder rumbling in the distance, natural thunder sounds, %s",
	"风声":  "Wind blowing through trees and leaves, natural wind sounds, %s",
	"鸟鸣":  "Birds singing in a peaceful forest, natural bird sounds, %s",
	"海浪声": "Ocean waves gently crashing on shore, natural wave sounds, %s",
	"流水声": "Water flowing in a peaceful stream, natural water sounds, %s",
	"虫鸣":  "Insects chirping in a quiet night, natural insect sounds, %s",
	"脚步声": "Footsteps walking on different surfaces, human footstep sounds, %s",
	"火焰声": "Fire crackling in a fireplace, natural fire sounds, %s",
}

// Backend 环境音生成服务
type Backend interface {
	Health(ctx context.Context) error
	Generate(ctx context.Context, req tangoflux.GenerateRequest) ([]byte, error)
}

// Options 生成器选项
type Options struct {
	OutputDir   string
	MaxDuration float64
}

// Generator 环境音生成器，维护任务状态机 pending → generating → completed|failed
type Generator struct {
	backend     Backend
	store       TaskStore
	outputDir   string
	maxDuration float64
}

// NewGenerator 创建环境音生成器
func NewGenerator(backend Backend, store TaskStore, opts Options) *Generator {
	if store == nil {
		store = NewMemoryTaskStore()
	}
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	return &Generator{
		backend:     backend,
		store:       store,
		outputDir:   opts.OutputDir,
		maxDuration: opts.MaxDuration,
	}
}

// Healthy 检查生成服务是否可用
func (g *Generator) Healthy(ctx context.Context) bool {
	err := g.backend.Health(ctx)
	metrics.SetGeneratorReady(err == nil)
	if err != nil {
		log.Warn().Err(err).Msg("环境音生成服务健康检查失败")
		return false
	}
	return true
}

// BuildPrompt 构建生成提示词：基础模板 + 场景描述 + 强度描述
func BuildPrompt(keyword, description, intensity string) string {
	cfg := intensityFor(intensity)

	prompt := fmt.Sprintf("Natural ambient sound of %s, environmental audio", keyword)
	if tpl, ok := baseTemplates[keyword]; ok {
		prompt = fmt.Sprintf(tpl, keyword)
	}
	if d := strings.TrimSpace(description); d != "" {
		prompt += ", " + d
	}
	return prompt + cfg.suffix
}

func intensityFor(intensity string) intensityConfig {
	if cfg, ok := intensityConfigs[intensity]; ok {
		return cfg
	}
	return intensityConfigs[IntensityMedium]
}

// ClampDuration 将时长限制在 [1, max] 秒，非正值使用默认 30 秒
func ClampDuration(d, maxSeconds float64) float64 {
	if d <= 0 || math.IsNaN(d) {
		d = DefaultDuration
	}
	return math.Min(math.Max(d, MinDuration), maxSeconds)
}

// GenerateSingle 生成单个环境音
// 任何失败都记录在任务中，不返回错误
func (g *Generator) GenerateSingle(ctx context.Context, req Request) *GenerationTask {
	req = g.prepare(req)

	task := newTask(req.TaskID, req)
	g.save(ctx, task)

	logger := log.With().Str("task_id", task.TaskID).Str("keyword", req.Keyword).Logger()
	logger.Info().Float64("duration", req.Duration).Str("intensity", req.Intensity).Msg("开始生成环境音")

	start := time.Now()
	task.Status = TaskGenerating
	task.StartTime = &start
	task.Progress = 0.1
	g.save(ctx, task)

	cfg := intensityFor(req.Intensity)
	task.Prompt = req.Prompt
	if task.Prompt == "" {
		task.Prompt = BuildPrompt(req.Keyword, req.Description, req.Intensity)
	}
	task.Progress = 0.2
	g.save(ctx, task)

	task.Progress = 0.3
	g.save(ctx, task)

	data, err := g.backend.Generate(ctx, tangoflux.GenerateRequest{
		Prompt:        task.Prompt,
		Duration:      req.Duration,
		GuidanceScale: cfg.guidanceScale,
	})
	task.Progress = 0.7
	if err != nil {
		g.fail(ctx, task, start, fmt.Sprintf("API调用失败: %v", err))
		logger.Error().Err(err).Msg("环境音生成失败")
		return task
	}

	path, err := g.writeAudio(req, task.TaskID, data)
	if err != nil {
		g.fail(ctx, task, start, fmt.Sprintf("保存音频失败: %v", err))
		logger.Error().Err(err).Msg("环境音保存失败")
		return task
	}
	task.Progress = 0.9
	g.save(ctx, task)

	end := time.Now()
	task.Status = TaskCompleted
	task.ResultPath = path
	task.Progress = 1.0
	task.EndTime = &end
	g.save(ctx, task)
	metrics.RecordGeneration(true, end.Sub(start).Seconds())

	logger.Info().Str("result_path", path).Dur("elapsed", end.Sub(start)).Msg("环境音生成完成")
	return task
}

// prepare 补全默认值并分配任务ID
func (g *Generator) prepare(req Request) Request {
	if req.Intensity == "" {
		req.Intensity = IntensityMedium
	}
	req.Duration = ClampDuration(req.Duration, g.maxDuration)
	if req.TaskID == "" {
		req.TaskID = id.New()
	}
	return req
}

func (g *Generator) fail(ctx context.Context, task *GenerationTask, start time.Time, msg string) {
	end := time.Now()
	task.Status = TaskFailed
	task.ErrorMessage = msg
	task.EndTime = &end
	g.save(ctx, task)
	metrics.RecordGeneration(false, end.Sub(start).Seconds())
}

func (g *Generator) save(ctx context.Context, task *GenerationTask) {
	if err := g.store.Save(ctx, task); err != nil {
		log.Warn().Err(err).Str("task_id", task.TaskID).Msg("保存任务状态失败")
	}
}

func (g *Generator) writeAudio(req Request, taskID string, data []byte) (string, error) {
	dir := g.outputDir
	if req.Subdir != "" {
		dir = filepath.Join(dir, filepath.Clean("/" + req.Subdir)[1:])
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_%s.wav", sanitizeName(req.Keyword), taskID)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func sanitizeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ', '\t', '\n':
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	if s == "" {
		return "environment"
	}
	return s
}

// BatchGenerate 批量生成环境音
// 服务不可用时返回空列表；否则结果与请求按下标一一对应
func (g *Generator) BatchGenerate(ctx context.Context, reqs []Request, maxConcurrent int) []*GenerationTask {
	log.Info().Int("requests", len(reqs)).Int("max_concurrent", maxConcurrent).Msg("开始批量生成环境音")

	if !g.Healthy(ctx) {
		log.Error().Msg("环境音生成服务不可用，批量生成取消")
		return []*GenerationTask{}
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	results := make([]*GenerationTask, len(reqs))
	sem := semaphore.NewWeighted(int64(maxConcurrent))
	var wg sync.WaitGroup

	for i, req := range reqs {
		req = g.prepare(req)
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = g.abortedTask(ctx, req, err)
			continue
		}
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Int("index", i).Msg("环境音生成任务异常")
					results[i] = g.abortedTask(ctx, req, fmt.Errorf("panic: %v", r))
				}
			}()
			results[i] = g.GenerateSingle(ctx, req)
		}(i, req)
	}
	wg.Wait()

	completed, failed := 0, 0
	for _, t := range results {
		if t.Status == TaskCompleted {
			completed++
		} else {
			failed++
		}
	}
	log.Info().Int("completed", completed).Int("failed", failed).Msg("批量生成完成")

	return results
}

func (g *Generator) abortedTask(ctx context.Context, req Request, err error) *GenerationTask {
	now := time.Now()
	if req.TaskID == "" {
		req.TaskID = id.New()
	}
	task := newTask(req.TaskID, req)
	task.Status = TaskFailed
	task.ErrorMessage = err.Error()
	task.EndTime = &now
	g.save(ctx, task)
	metrics.RecordGeneration(false, 0)
	return task
}

// Submit 登记任务后在后台批量生成，立即返回待处理任务快照
// 服务不可用时后台将这些任务全部标记为失败
func (g *Generator) Submit(ctx context.Context, reqs []Request, maxConcurrent int) []*GenerationTask {
	prepared := make([]Request, len(reqs))
	pending := make([]*GenerationTask, len(reqs))
	for i, req := range reqs {
		prepared[i] = g.prepare(req)
		task := newTask(prepared[i].TaskID, prepared[i])
		g.save(ctx, task)
		pending[i] = task.Clone()
	}

	runCtx := context.WithoutCancel(ctx)
	go func() {
		if results := g.BatchGenerate(runCtx, prepared, maxConcurrent); len(results) == 0 {
			for _, req := range prepared {
				g.abortedTask(runCtx, req, errors.New("环境音生成服务不可用"))
			}
		}
	}()
	return pending
}

// GetTask 查询任务
func (g *Generator) GetTask(ctx context.Context, taskID string) (*GenerationTask, bool) {
	return g.store.Get(ctx, taskID)
}

// ListTasks 列出全部任务
func (g *Generator) ListTasks(ctx context.Context) []*GenerationTask {
	return g.store.List(ctx)
}

// CleanupCompleted 清理结束超过 maxAge 的任务
func (g *Generator) CleanupCompleted(ctx context.Context, maxAge time.Duration) int {
	n := g.store.DeleteFinishedBefore(ctx, time.Now().Add(-maxAge))
	if n > 0 {
		log.Info().Int("removed", n).Msg("清理过期生成任务")
	}
	return n
}

// RunJanitor 周期性清理过期任务，直到 ctx 结束
func (g *Generator) RunJanitor(ctx context.Context, interval, retention time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.CleanupCompleted(ctx, retention)
		}
	}
}
