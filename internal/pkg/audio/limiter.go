package audio

import "math"

// Limiter 限幅模式
type Limiter string

const (
	LimiterSoft Limiter = "soft"
	LimiterNone Limiter = "none"
)

// SoftKnee 软限幅拐点，低于该幅度的采样保持不变
const SoftKnee = 0.9

// Limit 按模式处理片段（原地）
func (s *Segment) Limit(mode Limiter) {
	if mode == LimiterSoft {
		s.SoftLimit(SoftKnee)
	}
}

// SoftLimit 软限幅（原地）
// |x| <= knee 不变；超过部分用 tanh 压缩，输出严格小于满幅
func (s *Segment) SoftLimit(knee float64) {
	headroom := 1 - knee
	for i, v := range s.Samples {
		a := math.Abs(v)
		if a <= knee {
			continue
		}
		limited := knee + headroom*math.Tanh((a-knee)/headroom)
		if limited >= 1 {
			limited = math.Nextafter(1, 0)
		}
		s.Samples[i] = math.Copysign(limited, v)
	}
}
