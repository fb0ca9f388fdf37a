package timeline

import (
	"ambience/internal/pkg/scenetools"
)

// DurationSource 段落时长来源
type DurationSource string

const (
	DurationMeasured  DurationSource = "measured"  // 从音频文件读取
	DurationEstimated DurationSource = "estimated" // 按文本长度估算
)

// 轨道默认值
const (
	DefaultVolume  = 0.3
	DefaultFade    = 0.5
	DefaultSpeaker = "旁白"

	PriorityMain       = 1 // 主环境音
	PrioritySFX        = 2 // 音效
	PriorityAtmosphere = 3 // 氛围
)

// AudioFile 时间轴输入：一段已合成的对白
type AudioFile struct {
	FilePath    string `json:"file_path"`
	TextContent string `json:"text_content"`
	Speaker     string `json:"speaker,omitempty"`
}

// DialogueSegment 对白段落
type DialogueSegment struct {
	Index          int            `json:"index"`
	StartTime      float64        `json:"start_time"`
	EndTime        float64        `json:"end_time"`
	Duration       float64        `json:"duration"`
	DurationSource DurationSource `json:"duration_source"`
	FilePath       string         `json:"file_path"`
	TextContent    string         `json:"text_content"`
	Speaker        string         `json:"speaker"`
	SceneKeywords  []string       `json:"scene_keywords"`
}

// EnvironmentTrack 环境音轨道
type EnvironmentTrack struct {
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Duration    float64 `json:"duration"`
	ScenePrompt string  `json:"scene_prompt"`
	TangoPrompt string  `json:"tango_prompt"`
	VolumeLevel float64 `json:"volume_level"`
	FadeIn      float64 `json:"fade_in"`
	FadeOut     float64 `json:"fade_out"`
	Priority    int     `json:"priority"`
	Intensity   string  `json:"intensity"`

	// AudioFilePath 生成完成后的环境音文件，为空表示仍是占位轨道
	AudioFilePath string `json:"audio_file_path,omitempty"`
}

// SceneChange 场景切换点
type SceneChange struct {
	Time         float64               `json:"time"`
	SegmentIndex int                   `json:"segment_index"`
	FromScene    *scenetools.SceneInfo `json:"from_scene"`
	ToScene      scenetools.SceneInfo  `json:"to_scene"`
	Confidence   float64               `json:"confidence"`
}

// Timeline 完整时间轴
type Timeline struct {
	TotalDuration     float64            `json:"total_duration"`
	DialogueSegments  []DialogueSegment  `json:"dialogue_segments"`
	EnvironmentTracks []EnvironmentTrack `json:"environment_tracks"`
	SceneChanges      []SceneChange      `json:"scene_changes"`

	// EstimatedSegments 时长为估算值的段落数，大于 0 表示时间轴精度下降
	EstimatedSegments int `json:"estimated_segments"`
}
