package timeline

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// ExportFormat 剪辑软件导出格式
type ExportFormat string

const (
	FormatGeneric        ExportFormat = "generic"
	FormatPremierePro    ExportFormat = "premiere_pro"
	FormatDaVinciResolve ExportFormat = "davinci_resolve"
)

// 导出参数
const (
	exportVersion    = "2.0"
	exportFrameRate  = 30
	exportSampleRate = 44100
	exportCreator    = "ambience environment generator"
)

// ParseExportFormat 解析导出格式，空字符串视为 generic
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case "", FormatGeneric:
		return FormatGeneric, nil
	case FormatPremierePro, FormatDaVinciResolve:
		return ExportFormat(s), nil
	}
	return "", fmt.Errorf("unsupported export format: %s", s)
}

// Export 将时间轴转换为剪辑软件可读取的结构
func Export(t *Timeline, projectName string, format ExportFormat) (any, error) {
	meta := map[string]string{
		"created_at": time.Now().Format(time.RFC3339),
		"creator":    exportCreator,
		"format":     "video_editing_compatible",
	}

	switch format {
	case FormatGeneric, "":
		return toGeneric(t, projectName, meta), nil
	case FormatPremierePro:
		return toPremiere(t, projectName, meta), nil
	case FormatDaVinciResolve:
		return toResolve(t, projectName, meta), nil
	}
	return nil, fmt.Errorf("unsupported export format: %s", format)
}

// WriteJSON 以缩进 JSON 写出任意导出结构
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func trackID(i int) string {
	return fmt.Sprintf("env_track_%03d", i+1)
}

// GenericExport 通用 JSON 格式
type GenericExport struct {
	Timeline GenericTimeline `json:"timeline"`
}

// GenericTimeline 通用时间轴
type GenericTimeline struct {
	ProjectName   string            `json:"project_name"`
	Version       string            `json:"version"`
	TotalDuration float64           `json:"total_duration"`
	FrameRate     int               `json:"frame_rate"`
	SampleRate    int               `json:"sample_rate"`
	Tracks        []GenericTrack    `json:"tracks"`
	Metadata      map[string]string `json:"metadata"`
}

// GenericTrack 通用轨道
type GenericTrack struct {
	TrackID       string  `json:"track_id"`
	SoundName     string  `json:"sound_name"`
	StartTime     float64 `json:"start_time"`
	Duration      float64 `json:"duration"`
	EndTime       float64 `json:"end_time"`
	Volume        float64 `json:"volume"`
	FadeIn        float64 `json:"fade_in"`
	FadeOut       float64 `json:"fade_out"`
	LoopEnabled   bool    `json:"loop_enabled"`
	AudioFilePath string  `json:"audio_file_path"`
	Prompt        string  `json:"prompt"`
	IsPlaceholder bool    `json:"is_placeholder"`
}

func toGeneric(t *Timeline, name string, meta map[string]string) GenericExport {
	tracks := make([]GenericTrack, len(t.EnvironmentTracks))
	for i, tr := range t.EnvironmentTracks {
		tracks[i] = GenericTrack{
			TrackID:       trackID(i),
			SoundName:     tr.ScenePrompt,
			StartTime:     tr.StartTime,
			Duration:      tr.Duration,
			EndTime:       tr.EndTime,
			Volume:        tr.VolumeLevel,
			FadeIn:        tr.FadeIn,
			FadeOut:       tr.FadeOut,
			LoopEnabled:   true,
			AudioFilePath: tr.AudioFilePath,
			Prompt:        tr.TangoPrompt,
			IsPlaceholder: tr.AudioFilePath == "",
		}
	}
	return GenericExport{Timeline: GenericTimeline{
		ProjectName:   name,
		Version:       exportVersion,
		TotalDuration: t.TotalDuration,
		FrameRate:     exportFrameRate,
		SampleRate:    exportSampleRate,
		Tracks:        tracks,
		Metadata:      meta,
	}}
}

// PremiereExport Adobe Premiere Pro 兼容格式
type PremiereExport struct {
	Project struct {
		Name     string `json:"name"`
		Format   string `json:"format"`
		Version  string `json:"version"`
		Settings struct {
			FrameRate     int     `json:"frame_rate"`
			SampleRate    int     `json:"sample_rate"`
			TotalDuration float64 `json:"total_duration"`
		} `json:"settings"`
	} `json:"project"`
	Sequences []PremiereSequence `json:"sequences"`
	Metadata  map[string]string  `json:"metadata"`
}

// PremiereSequence 序列
type PremiereSequence struct {
	Name        string               `json:"name"`
	Duration    float64              `json:"duration"`
	AudioTracks []PremiereAudioTrack `json:"audio_tracks"`
}

// PremiereAudioTrack 音轨
type PremiereAudioTrack struct {
	TrackNumber int            `json:"track_number"`
	TrackName   string         `json:"track_name"`
	Clips       []PremiereClip `json:"clips"`
}

// PremiereClip 片段，音量为百分比
type PremiereClip struct {
	ClipID          string  `json:"clip_id"`
	Name            string  `json:"name"`
	MediaSource     string  `json:"media_source"`
	InPoint         float64 `json:"in_point"`
	OutPoint        float64 `json:"out_point"`
	TimelineIn      float64 `json:"timeline_in"`
	TimelineOut     float64 `json:"timeline_out"`
	Volume          float64 `json:"volume"`
	FadeInDuration  float64 `json:"fade_in_duration"`
	FadeOutDuration float64 `json:"fade_out_duration"`
	LoopEnabled     bool    `json:"loop_enabled"`
}

func toPremiere(t *Timeline, name string, meta map[string]string) PremiereExport {
	var out PremiereExport
	out.Project.Name = name
	out.Project.Format = "adobe_premiere_pro"
	out.Project.Version = exportVersion
	out.Project.Settings.FrameRate = exportFrameRate
	out.Project.Settings.SampleRate = exportSampleRate
	out.Project.Settings.TotalDuration = t.TotalDuration
	out.Metadata = meta

	seq := PremiereSequence{
		Name:        name + "_环境音轨道",
		Duration:    t.TotalDuration,
		AudioTracks: make([]PremiereAudioTrack, len(t.EnvironmentTracks)),
	}
	for i, tr := range t.EnvironmentTracks {
		seq.AudioTracks[i] = PremiereAudioTrack{
			TrackNumber: i + 1,
			TrackName:   fmt.Sprintf("环境音轨道_%d", i+1),
			Clips: []PremiereClip{{
				ClipID:          trackID(i),
				Name:            tr.ScenePrompt,
				MediaSource:     tr.AudioFilePath,
				InPoint:         0,
				OutPoint:        tr.Duration,
				TimelineIn:      tr.StartTime,
				TimelineOut:     tr.EndTime,
				Volume:          tr.VolumeLevel * 100,
				FadeInDuration:  tr.FadeIn,
				FadeOutDuration: tr.FadeOut,
				LoopEnabled:     true,
			}},
		}
	}
	out.Sequences = []PremiereSequence{seq}
	return out
}

// ResolveExport DaVinci Resolve 兼容格式，时间以帧为单位
type ResolveExport struct {
	ResolveProject struct {
		Name             string `json:"name"`
		Format           string `json:"format"`
		Version          string `json:"version"`
		TimelineSettings struct {
			FrameRate       string `json:"frame_rate"`
			Resolution      string `json:"resolution"`
			AudioSampleRate int    `json:"audio_sample_rate"`
		} `json:"timeline_settings"`
	} `json:"resolve_project"`
	Timeline struct {
		Name           string              `json:"name"`
		DurationFrames int                 `json:"duration_frames"`
		AudioTracks    []ResolveAudioTrack `json:"audio_tracks"`
	} `json:"timeline"`
	Metadata map[string]string `json:"metadata"`
}

// ResolveAudioTrack 音轨
type ResolveAudioTrack struct {
	TrackIndex int           `json:"track_index"`
	TrackType  string        `json:"track_type"`
	Clips      []ResolveClip `json:"clips"`
}

// ResolveClip 片段
type ResolveClip struct {
	ClipName       string  `json:"clip_name"`
	MediaPoolItem  string  `json:"media_pool_item"`
	StartFrame     int     `json:"start_frame"`
	EndFrame       int     `json:"end_frame"`
	DurationFrames int     `json:"duration_frames"`
	VolumeDB       float64 `json:"volume_db"`
	FadeInFrames   int     `json:"fade_in_frames"`
	FadeOutFrames  int     `json:"fade_out_frames"`
	LoopEnabled    bool    `json:"loop_enabled"`
}

func toFrames(seconds float64) int {
	return int(math.Floor(seconds * exportFrameRate))
}

func toResolve(t *Timeline, name string, meta map[string]string) ResolveExport {
	var out ResolveExport
	out.ResolveProject.Name = name
	out.ResolveProject.Format = "davinci_resolve"
	out.ResolveProject.Version = exportVersion
	out.ResolveProject.TimelineSettings.FrameRate = fmt.Sprintf("%dfps", exportFrameRate)
	out.ResolveProject.TimelineSettings.Resolution = "1920x1080"
	out.ResolveProject.TimelineSettings.AudioSampleRate = exportSampleRate
	out.Timeline.Name = name + "_Timeline"
	out.Timeline.DurationFrames = toFrames(t.TotalDuration)
	out.Metadata = meta

	out.Timeline.AudioTracks = make([]ResolveAudioTrack, len(t.EnvironmentTracks))
	for i, tr := range t.EnvironmentTracks {
		out.Timeline.AudioTracks[i] = ResolveAudioTrack{
			TrackIndex: i + 1,
			TrackType:  "audio",
			Clips: []ResolveClip{{
				ClipName:       tr.ScenePrompt,
				MediaPoolItem:  tr.AudioFilePath,
				StartFrame:     toFrames(tr.StartTime),
				EndFrame:       toFrames(tr.EndTime),
				DurationFrames: toFrames(tr.Duration),
				// 与剪辑工程约定：音量 1.0 对应 0 dB
				VolumeDB:      20 * (tr.VolumeLevel - 1),
				FadeInFrames:  toFrames(tr.FadeIn),
				FadeOutFrames: toFrames(tr.FadeOut),
				LoopEnabled:   true,
			}},
		}
	}
	return out
}
