package timeline

import (
	"fmt"
	"math"
)

const timeEpsilon = 1e-6

// ValidationResult 时间轴校验结果
// IsValid 只反映结构问题；占位轨道计入统计与警告
type ValidationResult struct {
	IsValid    bool                 `json:"is_valid"`
	Complete   bool                 `json:"complete"`
	Warnings   []string             `json:"warnings"`
	Errors     []string             `json:"errors"`
	Statistics ValidationStatistics `json:"statistics"`
}

// ValidationStatistics 统计信息
type ValidationStatistics struct {
	TotalTracks       int     `json:"total_tracks"`
	PlaceholderTracks int     `json:"placeholder_tracks"`
	CompletedTracks   int     `json:"completed_tracks"`
	EstimatedSegments int     `json:"estimated_segments"`
	TotalDuration     float64 `json:"total_duration"`
}

// Validate 校验时间轴
func Validate(t *Timeline) ValidationResult {
	res := ValidationResult{
		Warnings: []string{},
		Errors:   []string{},
		Statistics: ValidationStatistics{
			TotalTracks:       len(t.EnvironmentTracks),
			EstimatedSegments: t.EstimatedSegments,
			TotalDuration:     t.TotalDuration,
		},
	}

	// 对白段落必须首尾相接
	prevEnd := 0.0
	for i, seg := range t.DialogueSegments {
		if !almostEqual(seg.StartTime, prevEnd) {
			res.Errors = append(res.Errors, fmt.Sprintf("段落 %d 起始时间 %.3f 与上一段结束时间 %.3f 不连续", i, seg.StartTime, prevEnd))
		}
		if seg.Duration <= 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("段落 %d 时长非正", i))
		}
		prevEnd = seg.EndTime
	}
	if len(t.DialogueSegments) > 0 && !almostEqual(prevEnd, t.TotalDuration) {
		res.Errors = append(res.Errors, fmt.Sprintf("总时长 %.3f 与最后段落结束时间 %.3f 不一致", t.TotalDuration, prevEnd))
	}

	for i, tr := range t.EnvironmentTracks {
		id := trackID(i)
		if tr.AudioFilePath == "" {
			res.Statistics.PlaceholderTracks++
			res.Warnings = append(res.Warnings, fmt.Sprintf("轨道 %s 仍为占位状态，需要生成环境音", id))
		} else {
			res.Statistics.CompletedTracks++
		}

		if tr.StartTime < -timeEpsilon || tr.EndTime > t.TotalDuration+timeEpsilon {
			res.Errors = append(res.Errors, fmt.Sprintf("轨道 %s 超出时间轴范围", id))
		}
		if tr.EndTime < tr.StartTime {
			res.Errors = append(res.Errors, fmt.Sprintf("轨道 %s 结束时间早于开始时间", id))
		}

		for j := i + 1; j < len(t.EnvironmentTracks); j++ {
			other := t.EnvironmentTracks[j]
			if tr.StartTime < other.EndTime-timeEpsilon && tr.EndTime > other.StartTime+timeEpsilon {
				res.Warnings = append(res.Warnings, fmt.Sprintf("轨道 %s 与 %s 存在时间重叠", id, trackID(j)))
			}
		}

		if i > 0 {
			prev := t.EnvironmentTracks[i-1]
			if tr.StartTime > prev.EndTime+timeEpsilon {
				res.Warnings = append(res.Warnings, fmt.Sprintf("轨道 %s 与前一轨道之间存在空隙", id))
			}
		}
	}

	if t.EstimatedSegments > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d 个段落的时长为估算值", t.EstimatedSegments))
	}

	res.IsValid = len(res.Errors) == 0
	res.Complete = res.IsValid && res.Statistics.PlaceholderTracks == 0
	return res
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= timeEpsilon
}
