// Package mixer 将对白与环境音轨道混合为最终音频
package mixer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"ambience/internal/config"
	"ambience/internal/pkg/audio"
	"ambience/internal/pkg/metrics"
	"ambience/internal/pkg/timeline"
)

// 混音参数
const (
	// MissingDialogueSeconds 对白文件加载失败时补入的静音时长
	MissingDialogueSeconds = 3.0

	// UnityEnvironmentVolume 环境音总音量为该值时不做额外增益
	UnityEnvironmentVolume = 0.3
)

// Loader 音频读写
type Loader interface {
	Load(ctx context.Context, path string) (*audio.Segment, error)
	Export(ctx context.Context, seg *audio.Segment, path, format string) error
}

// Placement 环境音在时间轴上的位置
type Placement struct {
	FilePath  string  `json:"file_path"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Volume    float64 `json:"volume"`
	FadeIn    float64 `json:"fade_in"`
	FadeOut   float64 `json:"fade_out"`
}

// PlacementsFromTracks 从时间轴轨道生成混音位置，占位轨道被忽略
func PlacementsFromTracks(tracks []timeline.EnvironmentTrack) []Placement {
	out := make([]Placement, 0, len(tracks))
	for _, tr := range tracks {
		if tr.AudioFilePath == "" {
			continue
		}
		out = append(out, Placement{
			FilePath:  tr.AudioFilePath,
			StartTime: tr.StartTime,
			EndTime:   tr.EndTime,
			Volume:    tr.VolumeLevel,
			FadeIn:    tr.FadeIn,
			FadeOut:   tr.FadeOut,
		})
	}
	return out
}

// Options 混音选项
type Options struct {
	SampleRate     int
	Channels       int
	Limiter        audio.Limiter
	LoopShortClips bool
}

// DefaultOptions 默认选项：44.1kHz 立体声，软限幅
func DefaultOptions() Options {
	return Options{
		SampleRate: audio.DefaultSampleRate,
		Channels:   audio.DefaultChannels,
		Limiter:    audio.LimiterSoft,
	}
}

// OptionsFromConfig 以默认选项为基础，覆盖配置中已设置的项
func OptionsFromConfig(cfg config.MixerConfig) Options {
	opts := DefaultOptions()
	if cfg.SampleRate > 0 {
		opts.SampleRate = cfg.SampleRate
	}
	if cfg.Channels > 0 {
		opts.Channels = cfg.Channels
	}
	if cfg.Limiter != "" {
		opts.Limiter = audio.Limiter(cfg.Limiter)
	}
	opts.LoopShortClips = cfg.LoopShortClips
	return opts
}

// Mixer 音频混合器
type Mixer struct {
	loader Loader
	opts   Options
}

// New 创建混合器
func New(loader Loader, opts Options) *Mixer {
	if opts.SampleRate <= 0 {
		opts.SampleRate = audio.DefaultSampleRate
	}
	if opts.Channels <= 0 {
		opts.Channels = audio.DefaultChannels
	}
	if opts.Limiter == "" {
		opts.Limiter = audio.LimiterSoft
	}
	return &Mixer{loader: loader, opts: opts}
}

// Mix 拼接对白并叠加环境音
// 最终长度等于对白总长度，环境音不会延长输出
func (m *Mixer) Mix(ctx context.Context, dialogueFiles []string, placements []Placement, environmentVolume float64) (*audio.Segment, error) {
	if len(dialogueFiles) == 0 {
		return nil, fmt.Errorf("mix: no dialogue files")
	}

	dialogue, err := m.concatDialogue(ctx, dialogueFiles)
	if err != nil {
		return nil, err
	}

	bus := audio.Silent(dialogue.Duration(), m.opts.SampleRate, m.opts.Channels)
	master := MasterGain(environmentVolume)

	placed := 0
	for i, p := range placements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.placeTrack(ctx, bus, p, master) {
			placed++
		} else {
			log.Warn().Int("index", i).Str("file_path", p.FilePath).Msg("环境音未能混入")
		}
	}

	dialogue.Overlay(bus, 0)
	dialogue.Limit(m.opts.Limiter)

	log.Info().
		Float64("duration", dialogue.Duration()).
		Int("dialogue_files", len(dialogueFiles)).
		Int("environment_tracks", placed).
		Float64("environment_volume", environmentVolume).
		Float64("peak", dialogue.Peak()).
		Msg("混音完成")

	return dialogue, nil
}

// MixToFile 混音并导出到文件
func (m *Mixer) MixToFile(ctx context.Context, dialogueFiles []string, placements []Placement, environmentVolume float64, outputPath, format string) error {
	start := time.Now()
	mixed, err := m.Mix(ctx, dialogueFiles, placements, environmentVolume)
	if err != nil {
		return err
	}
	if err := m.loader.Export(ctx, mixed, outputPath, format); err != nil {
		return fmt.Errorf("export mixed audio: %w", err)
	}
	log.Info().
		Str("output", outputPath).
		Str("format", format).
		Dur("elapsed", time.Since(start)).
		Msg("最终音频已导出")
	return nil
}

func (m *Mixer) concatDialogue(ctx context.Context, files []string) (*audio.Segment, error) {
	parts := make([]*audio.Segment, 0, len(files))
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seg, err := m.loader.Load(ctx, path)
		if err != nil {
			// 用静音占位，保持后续段落的绝对时间
			log.Warn().Err(err).Int("index", i).Str("file_path", path).Msg("对白加载失败，使用静音替代")
			metrics.RecordLoadFailure("dialogue")
			seg = audio.Silent(MissingDialogueSeconds, m.opts.SampleRate, m.opts.Channels)
		}
		parts = append(parts, seg)
	}
	return audio.Concat(m.opts.SampleRate, m.opts.Channels, parts...), nil
}

func (m *Mixer) placeTrack(ctx context.Context, bus *audio.Segment, p Placement, master float64) bool {
	busLen := bus.Duration()
	start := math.Max(0, p.StartTime)
	end := math.Min(p.EndTime, busLen)
	if end <= start {
		return false
	}

	clip, err := m.loader.Load(ctx, p.FilePath)
	if err != nil {
		log.Warn().Err(err).Str("file_path", p.FilePath).Msg("环境音加载失败，跳过")
		metrics.RecordLoadFailure("environment")
		return false
	}
	clip = clip.ConvertTo(m.opts.SampleRate, m.opts.Channels)

	window := end - start
	if clip.Duration() > window {
		clip = clip.Slice(0, window)
	} else if m.opts.LoopShortClips && clip.Duration() < window {
		clip = clip.Loop(window)
	}

	clip = clip.ApplyGain(audio.VolumeToDB(p.Volume) + audio.VolumeToDB(master))
	clip.FadeIn(p.FadeIn)
	clip.FadeOut(p.FadeOut)

	bus.Overlay(clip, start)
	return true
}

// MasterGain 环境音总音量对应的线性增益，0.3 为原始电平
// 高于 0.3 时放大环境音，满幅由限幅器兜底
func MasterGain(environmentVolume float64) float64 {
	return math.Max(0, environmentVolume/UnityEnvironmentVolume)
}
