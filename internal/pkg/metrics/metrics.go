package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageDuration 流水线阶段耗时直方图（秒）
	// Labels: stage (tts_synthesis/timeline_generation/environment_generation/audio_mixing)
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ambience_stage_duration_seconds",
			Help:    "Synthesis pipeline stage duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	// PipelinesTotal 合成流水线执行总数
	// Labels: status (completed/failed)
	PipelinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ambience_pipelines_total",
			Help: "Total number of synthesis pipelines by final status",
		},
		[]string{"status"},
	)

	// GenerationsTotal 环境音生成请求总数
	// Labels: status (completed/failed)
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ambience_environment_generations_total",
			Help: "Total number of environment sound generations by status",
		},
		[]string{"status"},
	)

	// GenerationDuration 单次环境音生成耗时（秒）
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ambience_environment_generation_duration_seconds",
			Help:    "Environment sound generation duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	// MixLoadFailures 混音时音频加载失败次数
	// Labels: kind (dialogue/environment)
	MixLoadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ambience_mix_load_failures_total",
			Help: "Audio files that failed to load during mixing",
		},
		[]string{"kind"},
	)

	// GeneratorReady 生成服务健康状态（0=不可用，1=可用）
	GeneratorReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ambience_generator_ready",
			Help: "Environment generation service health (0=down, 1=up)",
		},
	)
)

// RecordStage 记录阶段耗时
func RecordStage(stage string, seconds float64) {
	StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordPipeline 记录流水线结果
func RecordPipeline(success bool) {
	PipelinesTotal.WithLabelValues(status(success)).Inc()
}

// RecordGeneration 记录一次环境音生成
func RecordGeneration(success bool, seconds float64) {
	GenerationsTotal.WithLabelValues(status(success)).Inc()
	GenerationDuration.Observe(seconds)
}

// RecordLoadFailure 记录混音加载失败
func RecordLoadFailure(kind string) {
	MixLoadFailures.WithLabelValues(kind).Inc()
}

// SetGeneratorReady 设置生成服务健康状态
func SetGeneratorReady(ready bool) {
	if ready {
		GeneratorReady.Set(1)
	} else {
		GeneratorReady.Set(0)
	}
}

func status(success bool) string {
	if success {
		return "completed"
	}
	return "failed"
}
