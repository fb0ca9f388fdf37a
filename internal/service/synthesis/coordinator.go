package synthesis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"

	synthesisModel "ambience/internal/model/synthesis"
	"ambience/internal/pkg/cache"
	"ambience/internal/pkg/id"
	"ambience/internal/pkg/lock"
	"ambience/internal/pkg/metrics"
	"ambience/internal/pkg/mixer"
	"ambience/internal/pkg/storage"
	"ambience/internal/pkg/timeline"
	synthesisRepo "ambience/internal/repository/synthesis"
	"ambience/internal/service/environment"
)

// 协调器默认值
const (
	DefaultOutputDir         = "outputs/projects"
	DefaultOutputFormat      = "wav"
	DefaultEnvironmentVolume = 0.3
	DefaultParallelTasks     = 1
	TimelineFileName         = "timeline.json"
)

// DialogueSynthesizer 根据合成计划生成对白音频并落库
type DialogueSynthesizer interface {
	Synthesize(ctx context.Context, projectID string, data SynthesisData, parallelTasks int) error
}

// TimelineBuilder 时间轴生成
type TimelineBuilder interface {
	GenerateTimeline(ctx context.Context, files []timeline.AudioFile) *timeline.Timeline
}

// EnvironmentGenerator 环境音批量生成
type EnvironmentGenerator interface {
	BatchGenerate(ctx context.Context, reqs []environment.Request, maxConcurrent int) []*environment.GenerationTask
}

// AudioMixer 最终混音
type AudioMixer interface {
	MixToFile(ctx context.Context, dialogueFiles []string, placements []mixer.Placement, environmentVolume float64, outputPath, format string) error
}

// CoordinatorOptions 协调器选项
type CoordinatorOptions struct {
	OutputDir                string // 项目输出根目录，最终文件写入 {OutputDir}/{project_id}
	OutputFormat             string
	MaxConcurrent            int // 环境音批量生成并发
	ParallelTasks            int
	DefaultEnvironmentVolume float64
}

// Dependencies 协调器依赖，Sounds / Storage / Locker 可为空
type Dependencies struct {
	Projects    synthesisRepo.ProjectRepository
	AudioFiles  synthesisRepo.AudioFileRepository
	Sounds      synthesisRepo.EnvironmentSoundRepository
	Dialogue    DialogueSynthesizer
	Timelines   TimelineBuilder
	Environment EnvironmentGenerator
	Mixer       AudioMixer
	Storage     storage.Storage
	Locker      lock.Locker
}

// Coordinator 顺序执行 TTS → 时间轴 → 环境音 → 混音
type Coordinator struct {
	deps Dependencies
	opts CoordinatorOptions
}

// NewCoordinator 创建协调器
func NewCoordinator(deps Dependencies, opts CoordinatorOptions) *Coordinator {
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker()
	}
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	if opts.OutputFormat == "" {
		opts.OutputFormat = DefaultOutputFormat
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = environment.DefaultMaxConcurrent
	}
	if opts.ParallelTasks <= 0 {
		opts.ParallelTasks = DefaultParallelTasks
	}
	if opts.DefaultEnvironmentVolume <= 0 {
		opts.DefaultEnvironmentVolume = DefaultEnvironmentVolume
	}
	return &Coordinator{deps: deps, opts: opts}
}

// DefaultEnvironmentVolume 配置的默认环境音音量
func (c *Coordinator) DefaultEnvironmentVolume() float64 {
	return c.opts.DefaultEnvironmentVolume
}

// Lock 获取项目锁，同一项目同时只允许一次合成
func (c *Coordinator) Lock(ctx context.Context, projectID string) (func(), error) {
	release, err := c.deps.Locker.TryLock(ctx, cache.ProjectLockKey(projectID))
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, ErrProjectBusy
		}
		return nil, err
	}
	return release, nil
}

// SynthesizeWithEnvironment 加锁后执行完整合成流程
func (c *Coordinator) SynthesizeWithEnvironment(ctx context.Context, projectID string, opts SynthesisOptions, progress ProgressFunc) (*SynthesisResult, error) {
	release, err := c.Lock(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.Run(ctx, projectID, opts, progress)
}

// Run 执行合成流程，调用方负责持有项目锁
// 任一阶段失败时项目标记为 failed，进度回报 -1 并返回错误
func (c *Coordinator) Run(ctx context.Context, projectID string, opts SynthesisOptions, progress ProgressFunc) (result *SynthesisResult, err error) {
	if _, err := c.deps.Projects.FindByID(ctx, projectID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	opts = c.normalize(opts)

	logger := log.With().Str("project_id", projectID).Logger()
	rep := reporter{projectID: projectID, fn: progress}

	if err := c.deps.Projects.UpdateStatus(ctx, projectID, synthesisModel.ProjectStatusProcessing, ""); err != nil {
		return nil, fmt.Errorf("update project status: %w", err)
	}

	defer func() {
		metrics.RecordPipeline(err == nil)
		if err == nil {
			return
		}
		logger.Error().Err(err).Msg("合成失败")
		rep.report(ctx, StageFailed, -1, err.Error())
		// 调用方取消时仍需写回失败状态
		if uerr := c.deps.Projects.UpdateStatus(context.WithoutCancel(ctx), projectID, synthesisModel.ProjectStatusFailed, err.Error()); uerr != nil {
			logger.Error().Err(uerr).Msg("更新项目失败状态失败")
		}
		result = nil
	}()

	logger.Info().
		Bool("enable_environment", opts.EnableEnvironment).
		Int("paragraphs", len(opts.SynthesisData.Paragraphs)).
		Msg("开始环境音混合合成")

	result = &SynthesisResult{
		ProjectID:         projectID,
		EnableEnvironment: opts.EnableEnvironment,
		StagesCompleted:   []string{},
	}

	// 阶段1: TTS
	rep.report(ctx, StageTTS, 0.05, "开始TTS语音合成")
	files, err := c.stageTTS(ctx, projectID, opts)
	if err != nil {
		return nil, err
	}
	result.StagesCompleted = append(result.StagesCompleted, StageTTS)
	result.DialogueFilesCount = len(files)
	rep.report(ctx, StageTTS, 0.1, fmt.Sprintf("TTS语音合成完成，共 %d 段对白", len(files)))

	if !opts.EnableEnvironment {
		for _, f := range files {
			result.TotalDuration += f.Duration
		}
		if err := c.deps.Projects.UpdateStatus(ctx, projectID, synthesisModel.ProjectStatusCompleted, ""); err != nil {
			return nil, fmt.Errorf("update project status: %w", err)
		}
		rep.report(ctx, StageCompleted, 1.0, "TTS合成完成，已跳过环境音混合")
		logger.Info().Msg("TTS合成完成，跳过环境音混合")
		return result, nil
	}

	projectDir := filepath.Join(c.opts.OutputDir, projectID)
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	// 阶段2: 时间轴
	rep.report(ctx, StageTimeline, 0.25, "分析音频，生成时间轴")
	stageStart := time.Now()
	tl := c.deps.Timelines.GenerateTimeline(ctx, toTimelineInput(files))
	metrics.RecordStage(StageTimeline, time.Since(stageStart).Seconds())
	result.StagesCompleted = append(result.StagesCompleted, StageTimeline)
	result.TotalDuration = tl.TotalDuration
	result.EstimatedSegments = tl.EstimatedSegments
	result.EnvironmentTracks = len(tl.EnvironmentTracks)

	// 阶段3: 环境音
	rep.report(ctx, StageEnvironment, 0.5, fmt.Sprintf("生成环境音效，共 %d 条轨道", len(tl.EnvironmentTracks)))
	stageStart = time.Now()
	result.EnvironmentFiles, result.EnvironmentFailed = c.stageEnvironment(ctx, logger, projectID, tl)
	metrics.RecordStage(StageEnvironment, time.Since(stageStart).Seconds())
	result.StagesCompleted = append(result.StagesCompleted, StageEnvironment)

	timelinePath := filepath.Join(projectDir, TimelineFileName)
	if err := timeline.WriteJSON(timelinePath, tl); err != nil {
		return nil, fmt.Errorf("write timeline: %w", err)
	}
	result.TimelinePath = timelinePath

	// 阶段4: 混音
	rep.report(ctx, StageMixing, 0.75, "混合音频，生成最终文件")
	stageStart = time.Now()
	finalName := fmt.Sprintf("final_mixed_audio_%s_%d.%s", projectID, time.Now().Unix(), c.opts.OutputFormat)
	finalPath := filepath.Join(projectDir, finalName)
	dialoguePaths := make([]string, len(files))
	for i, f := range files {
		dialoguePaths[i] = f.FilePath
	}
	if err := c.deps.Mixer.MixToFile(ctx, dialoguePaths, mixer.PlacementsFromTracks(tl.EnvironmentTracks), opts.EnvironmentVolume, finalPath, c.opts.OutputFormat); err != nil {
		return nil, fmt.Errorf("mix audio: %w", err)
	}
	metrics.RecordStage(StageMixing, time.Since(stageStart).Seconds())
	result.StagesCompleted = append(result.StagesCompleted, StageMixing)
	result.FinalAudioPath = finalPath
	result.FinalAudioURL = c.upload(ctx, logger, projectID, finalPath)

	if err := c.deps.Projects.UpdateResult(ctx, projectID, synthesisRepo.ProjectResult{
		FinalAudioPath: result.FinalAudioPath,
		FinalAudioURL:  result.FinalAudioURL,
		TimelinePath:   result.TimelinePath,
		TotalDuration:  result.TotalDuration,
	}); err != nil {
		return nil, fmt.Errorf("update project result: %w", err)
	}

	rep.report(ctx, StageCompleted, 1.0, "环境音混合完成")
	logger.Info().
		Float64("total_duration", result.TotalDuration).
		Int("environment_files", result.EnvironmentFiles).
		Str("final_audio_path", finalPath).
		Msg("环境音混合合成完成")

	return result, nil
}

func (c *Coordinator) normalize(opts SynthesisOptions) SynthesisOptions {
	if opts.ParallelTasks <= 0 {
		opts.ParallelTasks = c.opts.ParallelTasks
	}
	if opts.EnvironmentVolume < 0 {
		opts.EnvironmentVolume = c.opts.DefaultEnvironmentVolume
	}
	if opts.EnvironmentVolume > 1 {
		opts.EnvironmentVolume = 1
	}
	return opts
}

func (c *Coordinator) stageTTS(ctx context.Context, projectID string, opts SynthesisOptions) ([]*synthesisModel.AudioFile, error) {
	start := time.Now()
	if err := c.deps.Dialogue.Synthesize(ctx, projectID, opts.SynthesisData, opts.ParallelTasks); err != nil {
		return nil, fmt.Errorf("tts synthesis: %w", err)
	}
	files, err := c.deps.AudioFiles.FindSegmentsByProjectID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load dialogue files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoDialogue
	}
	metrics.RecordStage(StageTTS, time.Since(start).Seconds())
	return files, nil
}

// stageEnvironment 每条轨道生成一段环境音，成功的写回轨道文件路径
// 单条失败只记录日志；服务不可用时全部轨道保持占位
func (c *Coordinator) stageEnvironment(ctx context.Context, logger zerolog.Logger, projectID string, tl *timeline.Timeline) (generated, failed int) {
	if len(tl.EnvironmentTracks) == 0 {
		return 0, 0
	}

	reqs := make([]environment.Request, len(tl.EnvironmentTracks))
	for i, track := range tl.EnvironmentTracks {
		reqs[i] = environment.Request{
			Keyword:     fmt.Sprintf("environment_%03d_%s", i+1, strings.ReplaceAll(track.ScenePrompt, " ", "_")),
			Description: track.ScenePrompt,
			Prompt:      track.TangoPrompt,
			Duration:    track.Duration,
			Intensity:   track.Intensity,
			Subdir:      projectID,
		}
	}

	tasks := c.deps.Environment.BatchGenerate(ctx, reqs, c.opts.MaxConcurrent)
	if len(tasks) == 0 {
		logger.Warn().Int("tracks", len(reqs)).Msg("环境音生成服务不可用，仅混合对白")
		return 0, len(reqs)
	}

	for i, task := range tasks {
		if i >= len(tl.EnvironmentTracks) {
			break
		}
		track := &tl.EnvironmentTracks[i]
		if task == nil || task.Status != environment.TaskCompleted {
			failed++
			msg := ""
			if task != nil {
				msg = task.ErrorMessage
			}
			logger.Warn().Int("track", i).Str("scene", track.ScenePrompt).Str("error", msg).Msg("环境音轨道生成失败，已跳过")
			continue
		}
		track.AudioFilePath = task.ResultPath
		generated++
		c.saveSound(ctx, logger, projectID, *track, task)
	}
	return generated, failed
}

// saveSound 将生成结果保存为可复用素材，失败不影响流程
func (c *Coordinator) saveSound(ctx context.Context, logger zerolog.Logger, projectID string, track timeline.EnvironmentTrack, task *environment.GenerationTask) {
	if c.deps.Sounds == nil {
		return
	}
	sound := &synthesisModel.EnvironmentSound{
		ID:              id.New(),
		ProjectID:       projectID,
		Name:            track.ScenePrompt,
		Description:     track.TangoPrompt,
		FilePath:        task.ResultPath,
		Duration:        task.Duration,
		Tags:            strings.Fields(track.ScenePrompt),
		VolumeLevel:     synthesisModel.DefaultSoundVolume,
		FadeInDuration:  synthesisModel.DefaultSoundFade,
		FadeOutDuration: synthesisModel.DefaultSoundFade,
		LoopEnabled:     true,
		Metadata: synthesisModel.SoundMetadata{
			GenerationTaskID: task.TaskID,
			Prompt:           task.Prompt,
			Intensity:        task.Intensity,
		},
	}
	if err := c.deps.Sounds.Create(ctx, sound); err != nil {
		logger.Warn().Err(err).Str("task_id", task.TaskID).Msg("保存环境音素材失败")
	}
}

// upload 上传最终文件，失败返回空 URL
func (c *Coordinator) upload(ctx context.Context, logger zerolog.Logger, projectID, path string) string {
	if c.deps.Storage == nil {
		return ""
	}
	f, err := os.Open(path)
	if err != nil {
		logger.Warn().Err(err).Msg("打开最终音频失败，跳过上传")
		return ""
	}
	defer f.Close()

	key := fmt.Sprintf("projects/%s/%s", projectID, filepath.Base(path))
	url, err := c.deps.Storage.Upload(ctx, key, f, storage.ContentType(key))
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("上传最终音频失败")
		return ""
	}
	return url
}

func toTimelineInput(files []*synthesisModel.AudioFile) []timeline.AudioFile {
	out := make([]timeline.AudioFile, len(files))
	for i, f := range files {
		out[i] = timeline.AudioFile{
			FilePath:    f.FilePath,
			TextContent: f.TextContent,
			Speaker:     f.Speaker,
		}
	}
	return out
}

type reporter struct {
	projectID string
	fn        ProgressFunc
}

// report 回调异常只记录日志
func (r reporter) report(ctx context.Context, stage string, percent float64, message string) {
	if r.fn == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("stage", stage).Msg("进度回调异常")
		}
	}()
	r.fn(ctx, Progress{
		ProjectID: r.projectID,
		Stage:     stage,
		StageName: StageNames[stage],
		Percent:   percent,
		Message:   message,
		Timestamp: time.Now(),
	})
}
