package config

import (
	"errors"
	"fmt"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Mongo       MongoConfig       `mapstructure:"mongo"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Storage     StorageConfig     `mapstructure:"storage"`
	TangoFlux   TangoFluxConfig   `mapstructure:"tangoflux"`
	TTS         TTSConfig         `mapstructure:"tts"`
	Synthesis   SynthesisConfig   `mapstructure:"synthesis"`
	Environment EnvironmentConfig `mapstructure:"environment"`
	Mixer       MixerConfig       `mapstructure:"mixer"`
	Scene       SceneConfig       `mapstructure:"scene"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`  // 单个日志文件最大大小（MB）
	MaxBackups int    `mapstructure:"max_backups"`  // 保留的旧日志文件数量
	MaxAgeDays int    `mapstructure:"max_age_days"` // 旧日志保留天数
	Compress   bool   `mapstructure:"compress"`     // 是否压缩旧日志
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss, minio
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
	MinIO *MinIOConfig `mapstructure:"minio,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath      string `mapstructure:"base_path"`      // 基础路径
	BaseURL       string `mapstructure:"base_url"`       // 基础URL（用于生成访问URL）
	PresignExpiry int    `mapstructure:"presign_expiry"` // 预签名URL过期时间（秒）
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // OSS端点
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
	PresignExpiry   int    `mapstructure:"presign_expiry"`    // 预签名URL过期时间（秒）
}

// MinIOConfig MinIO 配置
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Region          string `mapstructure:"region"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	PresignExpiry   int    `mapstructure:"presign_expiry"` // 预签名URL过期时间（秒）
}

// TangoFluxConfig 环境音生成服务配置
type TangoFluxConfig struct {
	BaseURL           string        `mapstructure:"base_url"`            // 服务地址，默认 http://localhost:7930
	Timeout           time.Duration `mapstructure:"timeout"`             // 单次生成请求超时
	HealthTimeout     time.Duration `mapstructure:"health_timeout"`      // 健康检查超时
	NumInferenceSteps int           `mapstructure:"num_inference_steps"` // 推理步数
}

// TTSConfig 对白合成配置（火山引擎 TTS）
type TTSConfig struct {
	APIURL      string  `mapstructure:"api_url"`
	AccessToken string  `mapstructure:"access_token"`
	AppID       string  `mapstructure:"app_id"`
	Cluster     string  `mapstructure:"cluster"`
	VoiceType   string  `mapstructure:"voice_type"`
	SampleRate  int     `mapstructure:"sample_rate"`
	Encoding    string  `mapstructure:"encoding"` // wav, mp3
	SpeedRatio  float64 `mapstructure:"speed_ratio"`
}

// SynthesisConfig 合成流水线配置
type SynthesisConfig struct {
	OutputDir                string        `mapstructure:"output_dir"`                 // 项目输出根目录
	ParallelTasks            int           `mapstructure:"parallel_tasks"`             // 对白合成并发数
	DefaultEnvironmentVolume float64       `mapstructure:"default_environment_volume"` // 默认环境音总音量
	LockTTL                  time.Duration `mapstructure:"lock_ttl"`                   // 项目锁单次续期有效期（Redis）
}

// EnvironmentConfig 环境音生成任务配置
type EnvironmentConfig struct {
	OutputDir       string        `mapstructure:"output_dir"`       // 生成文件目录
	MaxConcurrent   int           `mapstructure:"max_concurrent"`   // 批量生成最大并发
	MaxDuration     float64       `mapstructure:"max_duration"`     // 单段最长时长（秒）
	TaskRetention   time.Duration `mapstructure:"task_retention"`   // 已结束任务保留时长
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"` // 清理周期
}

// MixerConfig 混音配置
type MixerConfig struct {
	SampleRate     int    `mapstructure:"sample_rate"`
	Channels       int    `mapstructure:"channels"`
	Limiter        string `mapstructure:"limiter"`          // soft, none
	OutputFormat   string `mapstructure:"output_format"`    // wav, mp3, flac, ogg
	LoopShortClips bool   `mapstructure:"loop_short_clips"` // 环境音短于轨道时循环填充
}

// SceneConfig 场景分析配置
type SceneConfig struct {
	LexiconFile     string `mapstructure:"lexicon_file"`     // 关键词词表覆盖文件（YAML）
	DynamicElements bool   `mapstructure:"dynamic_elements"` // 是否向提示词注入前景元素
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	if err := c.Mixer.Validate(); err != nil {
		return err
	}

	if c.Environment.MaxConcurrent <= 0 {
		return errors.New("environment.max_concurrent must be positive")
	}
	if c.Synthesis.ParallelTasks <= 0 {
		return errors.New("synthesis.parallel_tasks must be positive")
	}
	if c.Synthesis.DefaultEnvironmentVolume < 0 || c.Synthesis.DefaultEnvironmentVolume > 1 {
		return errors.New("synthesis.default_environment_volume must be within [0, 1]")
	}

	return nil
}

// Validate 验证混音配置
func (m *MixerConfig) Validate() error {
	switch m.Limiter {
	case "soft", "none":
	default:
		return fmt.Errorf("invalid mixer.limiter %q, must be soft/none", m.Limiter)
	}

	switch m.OutputFormat {
	case "wav", "mp3", "flac", "ogg":
	default:
		return fmt.Errorf("invalid mixer.output_format %q", m.OutputFormat)
	}

	if m.SampleRate <= 0 {
		return errors.New("mixer.sample_rate must be positive")
	}
	if m.Channels != 1 && m.Channels != 2 {
		return errors.New("mixer.channels must be 1 or 2")
	}
	return nil
}
