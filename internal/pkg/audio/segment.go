// Package audio 提供内存中的 PCM 音频片段及其基本操作
//
// 采样以 float64 交错存储，取值范围 [-1, 1]。
// 所有变换返回新片段，Overlay 与 Fade 系列为原地修改。
package audio

import (
	"math"
)

// 默认输出参数
const (
	DefaultSampleRate = 44100
	DefaultChannels   = 2

	// SilenceFloorDB 音量为 0 时使用的增益下限
	SilenceFloorDB = -60.0
)

// Segment PCM 音频片段
type Segment struct {
	SampleRate int
	Channels   int
	Samples    []float64 // 交错采样
}

// Silent 创建指定时长的静音片段
func Silent(seconds float64, sampleRate, channels int) *Segment {
	frames := secondsToFrames(seconds, sampleRate)
	return &Segment{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    make([]float64, frames*channels),
	}
}

// Frames 帧数
func (s *Segment) Frames() int {
	if s.Channels == 0 {
		return 0
	}
	return len(s.Samples) / s.Channels
}

// Duration 时长（秒）
func (s *Segment) Duration() float64 {
	if s.SampleRate == 0 {
		return 0
	}
	return float64(s.Frames()) / float64(s.SampleRate)
}

// Clone 深拷贝
func (s *Segment) Clone() *Segment {
	return &Segment{
		SampleRate: s.SampleRate,
		Channels:   s.Channels,
		Samples:    append([]float64(nil), s.Samples...),
	}
}

// ConvertTo 转换采样率与声道数
// 采样率使用线性插值重采样；声道按平均下混或复制上混
func (s *Segment) ConvertTo(sampleRate, channels int) *Segment {
	out := s
	if s.Channels != channels {
		out = out.remapChannels(channels)
	}
	if s.SampleRate != sampleRate {
		out = out.resample(sampleRate)
	}
	if out == s {
		return s.Clone()
	}
	return out
}

func (s *Segment) remapChannels(channels int) *Segment {
	frames := s.Frames()
	out := &Segment{
		SampleRate: s.SampleRate,
		Channels:   channels,
		Samples:    make([]float64, frames*channels),
	}

	for f := 0; f < frames; f++ {
		src := s.Samples[f*s.Channels : (f+1)*s.Channels]
		dst := out.Samples[f*channels : (f+1)*channels]

		switch {
		case channels == 1:
			var sum float64
			for _, v := range src {
				sum += v
			}
			dst[0] = sum / float64(len(src))
		case s.Channels == 1:
			for c := range dst {
				dst[c] = src[0]
			}
		default:
			for c := range dst {
				dst[c] = src[c%s.Channels]
			}
		}
	}
	return out
}

func (s *Segment) resample(sampleRate int) *Segment {
	inFrames := s.Frames()
	outFrames := int(math.Round(float64(inFrames) * float64(sampleRate) / float64(s.SampleRate)))
	out := &Segment{
		SampleRate: sampleRate,
		Channels:   s.Channels,
		Samples:    make([]float64, outFrames*s.Channels),
	}
	if inFrames == 0 {
		return out
	}

	ratio := float64(s.SampleRate) / float64(sampleRate)
	for f := 0; f < outFrames; f++ {
		pos := float64(f) * ratio
		i0 := int(pos)
		if i0 >= inFrames-1 {
			i0 = inFrames - 1
		}
		i1 := i0 + 1
		if i1 >= inFrames {
			i1 = inFrames - 1
		}
		frac := pos - float64(i0)
		for c := 0; c < s.Channels; c++ {
			a := s.Samples[i0*s.Channels+c]
			b := s.Samples[i1*s.Channels+c]
			out.Samples[f*s.Channels+c] = a + (b-a)*frac
		}
	}
	return out
}

// Slice 截取 [start, end) 秒，越界部分被裁掉
func (s *Segment) Slice(start, end float64) *Segment {
	frames := s.Frames()
	from := clampInt(secondsToFrames(start, s.SampleRate), 0, frames)
	to := clampInt(secondsToFrames(end, s.SampleRate), from, frames)
	return &Segment{
		SampleRate: s.SampleRate,
		Channels:   s.Channels,
		Samples:    append([]float64(nil), s.Samples[from*s.Channels:to*s.Channels]...),
	}
}

// Loop 循环拼接直到达到指定时长（超出部分截断）
func (s *Segment) Loop(seconds float64) *Segment {
	target := secondsToFrames(seconds, s.SampleRate) * s.Channels
	out := &Segment{
		SampleRate: s.SampleRate,
		Channels:   s.Channels,
		Samples:    make([]float64, target),
	}
	if len(s.Samples) == 0 {
		return out
	}
	for i := 0; i < target; i += len(s.Samples) {
		copy(out.Samples[i:], s.Samples)
	}
	return out
}

// ApplyGain 按分贝调整增益，返回新片段
func (s *Segment) ApplyGain(db float64) *Segment {
	out := s.Clone()
	g := DBToLinear(db)
	for i := range out.Samples {
		out.Samples[i] *= g
	}
	return out
}

// FadeIn 线性淡入（原地）
func (s *Segment) FadeIn(seconds float64) {
	n := clampInt(secondsToFrames(seconds, s.SampleRate), 0, s.Frames())
	for f := 0; f < n; f++ {
		g := float64(f) / float64(n)
		for c := 0; c < s.Channels; c++ {
			s.Samples[f*s.Channels+c] *= g
		}
	}
}

// FadeOut 线性淡出（原地）
func (s *Segment) FadeOut(seconds float64) {
	frames := s.Frames()
	n := clampInt(secondsToFrames(seconds, s.SampleRate), 0, frames)
	for i := 0; i < n; i++ {
		f := frames - n + i
		g := float64(n-1-i) / float64(n)
		for c := 0; c < s.Channels; c++ {
			s.Samples[f*s.Channels+c] *= g
		}
	}
}

// Overlay 将 other 叠加到 position 秒处（原地）
// other 会先转换为当前片段的格式，超出当前片段长度的部分被丢弃
func (s *Segment) Overlay(other *Segment, position float64) {
	if other.SampleRate != s.SampleRate || other.Channels != s.Channels {
		other = other.ConvertTo(s.SampleRate, s.Channels)
	}

	offset := secondsToFrames(position, s.SampleRate) * s.Channels
	if offset < 0 {
		offset = 0
	}
	for i, v := range other.Samples {
		j := offset + i
		if j >= len(s.Samples) {
			break
		}
		s.Samples[j] += v
	}
}

// Peak 最大绝对采样值
func (s *Segment) Peak() float64 {
	var peak float64
	for _, v := range s.Samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

// RMS 均方根
func (s *Segment) RMS() float64 {
	if len(s.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.Samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(s.Samples)))
}

// Concat 按顺序拼接片段，输出格式为 sampleRate / channels
func Concat(sampleRate, channels int, segments ...*Segment) *Segment {
	total := 0
	converted := make([]*Segment, len(segments))
	for i, seg := range segments {
		if seg.SampleRate != sampleRate || seg.Channels != channels {
			seg = seg.ConvertTo(sampleRate, channels)
		}
		converted[i] = seg
		total += len(seg.Samples)
	}

	out := &Segment{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    make([]float64, 0, total),
	}
	for _, seg := range converted {
		out.Samples = append(out.Samples, seg.Samples...)
	}
	return out
}

// VolumeToDB 线性音量转分贝，v <= 0 时返回 -60 dB
func VolumeToDB(v float64) float64 {
	if v <= 0 {
		return SilenceFloorDB
	}
	return 20 * math.Log10(v)
}

// DBToLinear 分贝转线性增益
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

func secondsToFrames(seconds float64, sampleRate int) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Round(seconds * float64(sampleRate)))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
