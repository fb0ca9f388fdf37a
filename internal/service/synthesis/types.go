package synthesis

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrProjectNotFound 项目不存在
	ErrProjectNotFound = errors.New("project not found")
	// ErrProjectBusy 项目正在合成
	ErrProjectBusy = errors.New("project synthesis already running")
	// ErrNoDialogue TTS 阶段没有产出任何对白
	ErrNoDialogue = errors.New("no dialogue audio produced")
)

// 流水线阶段
const (
	StageTTS         = "tts_synthesis"
	StageTimeline    = "timeline_generation"
	StageEnvironment = "environment_generation"
	StageMixing      = "audio_mixing"
	StageCompleted   = "completed"
	StageFailed      = "failed"
)

// StageNames 阶段显示名称
var StageNames = map[string]string{
	StageTTS:         "TTS语音合成",
	StageTimeline:    "时间轴生成",
	StageEnvironment: "环境音生成",
	StageMixing:      "音频混合",
	StageCompleted:   "合成完成",
	StageFailed:      "合成失败",
}

// Paragraph 合成计划中的一段对白
type Paragraph struct {
	Text       string  `json:"text"`
	Speaker    string  `json:"speaker,omitempty"`
	VoiceType  string  `json:"voice_type,omitempty"`
	SpeedRatio float64 `json:"speed_ratio,omitempty"`
}

// SynthesisData 合成计划
type SynthesisData struct {
	Paragraphs []Paragraph `json:"paragraphs"`
}

// SynthesisOptions 合成参数
type SynthesisOptions struct {
	SynthesisData     SynthesisData
	EnableEnvironment bool
	EnvironmentVolume float64 // 环境音总音量 [0,1]
	ParallelTasks     int     // TTS 并发数
}

// Progress 进度事件，Percent 为 -1 表示失败
type Progress struct {
	ProjectID string    `json:"project_id"`
	Stage     string    `json:"stage"`
	StageName string    `json:"stage_name"`
	Percent   float64   `json:"percent"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressFunc 进度回调
type ProgressFunc func(ctx context.Context, p Progress)

// SynthesisResult 合成结果
type SynthesisResult struct {
	ProjectID          string   `json:"project_id"`
	EnableEnvironment  bool     `json:"enable_environment"`
	StagesCompleted    []string `json:"stages_completed"`
	TotalDuration      float64  `json:"total_duration"`
	DialogueFilesCount int      `json:"dialogue_files_count"`
	EstimatedSegments  int      `json:"estimated_segments"`
	EnvironmentTracks  int      `json:"environment_tracks"`
	EnvironmentFiles   int      `json:"environment_files_count"`
	EnvironmentFailed  int      `json:"environment_failed_count"`
	TimelinePath       string   `json:"timeline_path,omitempty"`
	FinalAudioPath     string   `json:"final_audio_path,omitempty"`
	FinalAudioURL      string   `json:"final_audio_url,omitempty"`
}
