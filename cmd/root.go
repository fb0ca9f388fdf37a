package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ambience/internal/config"
	"ambience/internal/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ambience",
	Short: "Ambience - environment sound generation for audio dramas",
	Long: `Ambience analyzes dialogue text, lays out environment sound tracks on a
timeline, generates the sounds through TangoFlux and mixes them with the
synthesized dialogue into a finished audio track.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./configs/config.yaml)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// .env 可选
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.ambience")
	}

	// 环境变量设置
	viper.SetEnvPrefix("AMBIENCE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 设置默认值
	setDefaults()

	// 读取配置文件
	fileLoaded := true
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fileLoaded = false
			fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment variables")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	// 反序列化到结构体
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	// 配置文件变更时只热更新日志级别，其余配置需重启生效
	if fileLoaded {
		viper.OnConfigChange(func(e fsnotify.Event) {
			level := viper.GetString("log.level")
			logger.SetLevel(level)
			log.Info().Str("file", e.Name).Str("level", level).Msg("configuration changed")
		})
		viper.WatchConfig()
	}

	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

func setDefaults() {
	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	// Log
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.time_format", "RFC3339")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)

	// MongoDB
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "ambience")
	viper.SetDefault("mongo.max_pool_size", 100)
	viper.SetDefault("mongo.min_pool_size", 10)

	// Redis
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	// Storage
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local.base_path", "data/storage")
	viper.SetDefault("storage.local.base_url", "http://localhost:8080/files")

	// TangoFlux
	viper.SetDefault("tangoflux.base_url", "http://localhost:7930")
	viper.SetDefault("tangoflux.timeout", "300s")
	viper.SetDefault("tangoflux.health_timeout", "10s")
	viper.SetDefault("tangoflux.num_inference_steps", 100)

	// TTS
	viper.SetDefault("tts.cluster", "volcano_tts")
	viper.SetDefault("tts.voice_type", "BV115_streaming")
	viper.SetDefault("tts.sample_rate", 44100)
	viper.SetDefault("tts.encoding", "wav")
	viper.SetDefault("tts.speed_ratio", 1.0)

	// Synthesis
	viper.SetDefault("synthesis.output_dir", "outputs/projects")
	viper.SetDefault("synthesis.parallel_tasks", 1)
	viper.SetDefault("synthesis.default_environment_volume", 0.3)
	viper.SetDefault("synthesis.lock_ttl", "2h")

	// Environment
	viper.SetDefault("environment.output_dir", "data/environment_sounds")
	viper.SetDefault("environment.max_concurrent", 3)
	viper.SetDefault("environment.max_duration", 60.0)
	viper.SetDefault("environment.task_retention", "24h")
	viper.SetDefault("environment.cleanup_interval", "1h")

	// Mixer
	viper.SetDefault("mixer.sample_rate", 44100)
	viper.SetDefault("mixer.channels", 2)
	viper.SetDefault("mixer.limiter", "soft")
	viper.SetDefault("mixer.output_format", "wav")
	viper.SetDefault("mixer.loop_short_clips", false)

	// Scene
	viper.SetDefault("scene.dynamic_elements", true)
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}
