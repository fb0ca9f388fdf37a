package timeline

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"ambience/internal/pkg/scenetools"
)

// DurationProbe 读取音频文件时长
type DurationProbe interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// 文本估算参数：约 4.5 字/秒，结果限制在 [1, 30] 秒
const (
	charsPerSecond       = 4.5
	minEstimatedDuration = 1.0
	maxEstimatedDuration = 30.0
)

var atmosphereVolumes = map[string]float64{
	"calm":     0.25,
	"tense":    0.4,
	"action":   0.5,
	"romantic": 0.2,
	"scary":    0.45,
}

// Generator 时间轴生成器
type Generator struct {
	probe    DurationProbe
	analyzer *scenetools.SceneAnalyzer
	prompts  *scenetools.PromptBuilder
}

// NewGenerator 创建时间轴生成器
// analyzer / prompts 为 nil 时使用内置词表
func NewGenerator(probe DurationProbe, analyzer *scenetools.SceneAnalyzer, prompts *scenetools.PromptBuilder) *Generator {
	if analyzer == nil {
		analyzer = scenetools.NewSceneAnalyzer(nil)
	}
	if prompts == nil {
		prompts = scenetools.NewPromptBuilder(analyzer.Lexicon(), nil)
	}
	return &Generator{probe: probe, analyzer: analyzer, prompts: prompts}
}

// GenerateTimeline 生成完整时间轴
func (g *Generator) GenerateTimeline(ctx context.Context, files []AudioFile) *Timeline {
	log.Info().Int("audio_files", len(files)).Msg("开始生成时间轴")

	segments := g.AnalyzeAudioFiles(ctx, files)
	changes := g.DetectSceneChanges(segments)
	tracks := g.GenerateEnvironmentTracks(segments, changes)

	t := &Timeline{
		TotalDuration:     totalDuration(segments),
		DialogueSegments:  segments,
		EnvironmentTracks: tracks,
		SceneChanges:      changes,
	}
	for _, seg := range segments {
		if seg.DurationSource == DurationEstimated {
			t.EstimatedSegments++
		}
	}

	log.Info().
		Float64("total_duration", t.TotalDuration).
		Int("segments", len(segments)).
		Int("tracks", len(tracks)).
		Int("scene_changes", len(changes)).
		Int("estimated_segments", t.EstimatedSegments).
		Msg("时间轴生成完成")

	return t
}

// AnalyzeAudioFiles 生成连续的对白段落
// 无法读取时长的文件按文本长度估算，并标记为 estimated
func (g *Generator) AnalyzeAudioFiles(ctx context.Context, files []AudioFile) []DialogueSegment {
	segments := make([]DialogueSegment, 0, len(files))
	current := 0.0

	for i, f := range files {
		duration, source := g.segmentDuration(ctx, f)

		speaker := f.Speaker
		if speaker == "" {
			speaker = DefaultSpeaker
		}

		segments = append(segments, DialogueSegment{
			Index:          i,
			StartTime:      current,
			EndTime:        current + duration,
			Duration:       duration,
			DurationSource: source,
			FilePath:       f.FilePath,
			TextContent:    f.TextContent,
			Speaker:        speaker,
			SceneKeywords:  g.analyzer.ExtractKeywords(f.TextContent),
		})
		current += duration

		log.Debug().
			Int("index", i).
			Float64("duration", duration).
			Str("source", string(source)).
			Float64("cumulative", current).
			Msg("段落时长")
	}

	return segments
}

func (g *Generator) segmentDuration(ctx context.Context, f AudioFile) (float64, DurationSource) {
	if g.probe != nil && f.FilePath != "" {
		d, err := g.probe.Duration(ctx, f.FilePath)
		if err == nil && d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d) {
			return d, DurationMeasured
		}
		log.Warn().Err(err).Str("file_path", f.FilePath).Msg("无法获取音频时长，按文本估算")
	}
	return EstimateDurationFromText(f.TextContent), DurationEstimated
}

// DetectSceneChanges 检测场景切换点
// 第一个段落总是产生一次切换（from_scene 为空）
func (g *Generator) DetectSceneChanges(segments []DialogueSegment) []SceneChange {
	changes := []SceneChange{}
	var current *scenetools.SceneInfo

	for _, seg := range segments {
		scene := g.analyzer.Analyze(seg.TextContent)
		if current != nil && current.SameAs(scene) {
			continue
		}

		changes = append(changes, SceneChange{
			Time:         seg.StartTime,
			SegmentIndex: seg.Index,
			FromScene:    current,
			ToScene:      scene,
			Confidence:   scene.Confidence,
		})

		log.Debug().
			Float64("time", seg.StartTime).
			Str("location", scene.Location).
			Str("atmosphere", scene.Atmosphere).
			Msg("检测到场景切换")

		next := scene
		current = &next
	}

	return changes
}

// GenerateEnvironmentTracks 按场景切换点生成首尾相接的环境音轨道
func (g *Generator) GenerateEnvironmentTracks(segments []DialogueSegment, changes []SceneChange) []EnvironmentTrack {
	tracks := []EnvironmentTrack{}
	total := totalDuration(segments)

	if len(changes) == 0 {
		if total > 0 {
			tracks = append(tracks, g.newTrack(0, total, scenetools.DefaultScene(), ""))
		}
		return tracks
	}

	for i, change := range changes {
		end := total
		if i+1 < len(changes) {
			end = changes[i+1].Time
		}
		text := ""
		if change.SegmentIndex >= 0 && change.SegmentIndex < len(segments) {
			text = segments[change.SegmentIndex].TextContent
		}
		tracks = append(tracks, g.newTrack(change.Time, end, change.ToScene, text))
	}

	return tracks
}

func (g *Generator) newTrack(start, end float64, scene scenetools.SceneInfo, text string) EnvironmentTrack {
	return EnvironmentTrack{
		StartTime:   start,
		EndTime:     end,
		Duration:    end - start,
		ScenePrompt: scene.Prompt(),
		TangoPrompt: g.prompts.BuildTangoPromptWithElements(scene, text),
		VolumeLevel: VolumeForScene(scene),
		FadeIn:      DefaultFade,
		FadeOut:     DefaultFade,
		Priority:    PriorityMain,
		Intensity:   IntensityForScene(scene),
	}
}

// EstimateDurationFromText 按文本长度估算时长（秒）
func EstimateDurationFromText(text string) float64 {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	d := math.Max(minEstimatedDuration, float64(n)/charsPerSecond)
	return math.Min(d, maxEstimatedDuration)
}

// VolumeForScene 按氛围确定环境音音量
func VolumeForScene(scene scenetools.SceneInfo) float64 {
	if v, ok := atmosphereVolumes[scene.Atmosphere]; ok {
		return v
	}
	return DefaultVolume
}

// IntensityForScene 按氛围确定生成强度
func IntensityForScene(scene scenetools.SceneInfo) string {
	switch scene.Atmosphere {
	case "action", "scary", "tense":
		return "high"
	case "calm", "romantic":
		return "low"
	default:
		return "medium"
	}
}

func totalDuration(segments []DialogueSegment) float64 {
	if len(segments) == 0 {
		return 0
	}
	return segments[len(segments)-1].EndTime
}
