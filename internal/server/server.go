package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "ambience/docs"

	"ambience/internal/config"
	"ambience/internal/handler"
	environmentHandler "ambience/internal/handler/environment"
	projectHandler "ambience/internal/handler/project"
	resourceHandler "ambience/internal/handler/resource"
	timelineHandler "ambience/internal/handler/timeline"
	"ambience/internal/pkg/audio"
	"ambience/internal/pkg/cache"
	"ambience/internal/pkg/ffmpeg"
	"ambience/internal/pkg/lock"
	"ambience/internal/pkg/mixer"
	"ambience/internal/pkg/mongodb"
	"ambience/internal/pkg/progress"
	"ambience/internal/pkg/scenetools"
	"ambience/internal/pkg/storage"
	"ambience/internal/pkg/storagefactory"
	"ambience/internal/pkg/tangoflux"
	"ambience/internal/pkg/timeline"
	"ambience/internal/pkg/tts"
	synthesisRepo "ambience/internal/repository/synthesis"
	"ambience/internal/server/middleware"
	"ambience/internal/service/environment"
	"ambience/internal/service/synthesis"
)

// shutdownTimeout 关闭时等待请求与后台合成的最长时间
const shutdownTimeout = 30 * time.Second

// Server HTTP 服务器
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	mongo  *mongodb.Client
	redis  *cache.RedisCache

	generator *environment.Generator
	timelines *timeline.Generator
	analyzer  *scenetools.SceneAnalyzer
	prompts   *scenetools.PromptBuilder
	hub       *progress.Hub
	storage   storage.Storage
	synthesis synthesis.Service
}

// New 创建服务器实例
func New(cfg *config.Config) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &Server{
		cfg:    cfg,
		engine: gin.New(),
		hub:    progress.NewHub(),
	}

	// 初始化 MongoDB (可选)
	if cfg.Mongo.URI != "" {
		client, err := mongodb.New(&cfg.Mongo)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to MongoDB, continuing without it")
		} else {
			srv.mongo = client
			log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

			// 创建索引
			if err := mongodb.EnsureIndexes(client.Database()); err != nil {
				log.Warn().Err(err).Msg("failed to ensure indexes")
			}
		}
	}

	// 初始化 Redis (可选)
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without it")
		} else {
			srv.redis = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	// 场景分析与时间轴
	lexicon, err := scenetools.LoadLexicon(cfg.Scene.LexiconFile)
	if err != nil {
		return nil, err
	}
	var elements *scenetools.ElementDetector
	if cfg.Scene.DynamicElements {
		elements = scenetools.NewElementDetector()
	}
	ff := ffmpeg.NewClient()
	srv.analyzer = scenetools.NewSceneAnalyzer(lexicon)
	srv.prompts = scenetools.NewPromptBuilder(lexicon, elements)
	probe := audio.NewFileProbe(ff)
	srv.timelines = timeline.NewGenerator(probe, srv.analyzer, srv.prompts)

	// 环境音生成
	var taskStore environment.TaskStore
	if srv.redis != nil {
		taskStore = environment.NewRedisTaskStore(srv.redis, cfg.Environment.TaskRetention)
	} else {
		taskStore = environment.NewMemoryTaskStore()
	}
	srv.generator = environment.NewGenerator(
		tangoflux.NewClient(tangoflux.Config{
			BaseURL:           cfg.TangoFlux.BaseURL,
			Timeout:           cfg.TangoFlux.Timeout,
			HealthTimeout:     cfg.TangoFlux.HealthTimeout,
			NumInferenceSteps: cfg.TangoFlux.NumInferenceSteps,
		}),
		taskStore,
		environment.Options{
			OutputDir:   cfg.Environment.OutputDir,
			MaxDuration: cfg.Environment.MaxDuration,
		},
	)

	// 最终混音上传，存储可选
	if st, err := storagefactory.NewStorage(context.Background(), &cfg.Storage); err != nil {
		log.Warn().Err(err).Str("type", cfg.Storage.Type).Msg("storage unavailable, final audio will not be uploaded")
	} else {
		srv.storage = st
	}

	// 项目合成（依赖 MongoDB 与 TTS）
	if err := srv.initSynthesis(ff, probe); err != nil {
		log.Warn().Err(err).Msg("synthesis pipeline disabled")
	}

	// 设置路由
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) initSynthesis(ff *ffmpeg.Client, probe timeline.DurationProbe) error {
	if s.mongo == nil {
		return errors.New("MongoDB not configured")
	}

	speech, err := tts.NewClient(tts.Config{
		APIURL:      s.cfg.TTS.APIURL,
		AccessToken: s.cfg.TTS.AccessToken,
		AppID:       s.cfg.TTS.AppID,
		Cluster:     s.cfg.TTS.Cluster,
		VoiceType:   s.cfg.TTS.VoiceType,
		SampleRate:  s.cfg.TTS.SampleRate,
		Encoding:    s.cfg.TTS.Encoding,
		SpeedRatio:  s.cfg.TTS.SpeedRatio,
	})
	if err != nil {
		return err
	}

	var locker lock.Locker
	if s.redis != nil {
		locker = lock.NewRedisLocker(s.redis.Client(), s.cfg.Synthesis.LockTTL)
	} else {
		locker = lock.NewLocalLocker()
	}

	db := s.mongo.Database()
	projects := synthesisRepo.NewProjectRepo(db)
	audioFiles := synthesisRepo.NewAudioFileRepo(db)
	sounds := synthesisRepo.NewEnvironmentSoundRepo(db)

	mix := mixer.New(audio.NewCodec(ff), mixer.OptionsFromConfig(s.cfg.Mixer))

	coordinator := synthesis.NewCoordinator(synthesis.Dependencies{
		Projects:    projects,
		AudioFiles:  audioFiles,
		Sounds:      sounds,
		Dialogue:    synthesis.NewTTSSynthesizer(speech, audioFiles, probe, s.cfg.Synthesis.OutputDir),
		Timelines:   s.timelines,
		Environment: s.generator,
		Mixer:       mix,
		Storage:     s.storage,
		Locker:      locker,
	}, synthesis.CoordinatorOptions{
		OutputDir:                s.cfg.Synthesis.OutputDir,
		OutputFormat:             s.cfg.Mixer.OutputFormat,
		MaxConcurrent:            s.cfg.Environment.MaxConcurrent,
		ParallelTasks:            s.cfg.Synthesis.ParallelTasks,
		DefaultEnvironmentVolume: s.cfg.Synthesis.DefaultEnvironmentVolume,
	})

	s.synthesis = synthesis.NewService(projects, sounds, coordinator, s.hub)
	return nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	healthHandler := handler.NewHealthHandler()
	healthHandler.AddCheck("tangoflux", func(ctx context.Context) error {
		if !s.generator.Healthy(ctx) {
			return errors.New("environment generation service unavailable")
		}
		return nil
	})
	if s.mongo != nil {
		healthHandler.AddCheck("mongo", s.mongo.Ping)
	}
	if s.redis != nil {
		healthHandler.AddCheck("redis", s.redis.Ping)
	}
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus 指标
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 存储文件下载
	var fileHdl *resourceHandler.Handler
	if s.storage != nil {
		fileHdl = resourceHandler.NewHandler(s.storage)
		s.engine.GET("/files/*key", fileHdl.DownloadFile)
	}

	// API v1
	v1 := s.engine.Group("/api/v1")
	{
		if fileHdl != nil {
			v1.GET("/files/download-url", fileHdl.GetDownloadURL)
		}

		// 时间轴与场景分析
		timelineHdl := timelineHandler.NewHandler(s.timelines, s.analyzer, s.prompts)
		v1.POST("/timelines", timelineHdl.GenerateTimeline)
		v1.POST("/scenes/analyze", timelineHdl.AnalyzeScene)

		// 环境音生成任务
		envHdl := environmentHandler.NewHandler(s.generator, s.cfg.Environment.MaxConcurrent)
		v1.POST("/environment/generations", envHdl.CreateGenerations)
		v1.GET("/environment/tasks", envHdl.ListTasks)
		v1.GET("/environment/tasks/:task_id", envHdl.GetTask)

		// 项目与合成
		if s.synthesis != nil {
			projectHdl := projectHandler.NewHandler(s.synthesis, s.hub)
			v1.POST("/projects", projectHdl.CreateProject)
			v1.GET("/projects", projectHdl.ListProjects)
			v1.GET("/projects/:project_id", projectHdl.GetProject)
			v1.DELETE("/projects/:project_id", projectHdl.DeleteProject)
			v1.POST("/projects/:project_id/synthesis", projectHdl.StartSynthesis)
			v1.GET("/projects/:project_id/environment-sounds", projectHdl.ListEnvironmentSounds)
			v1.GET("/projects/:project_id/progress/ws", projectHdl.ProgressWS)
		} else {
			log.Warn().Msg("synthesis pipeline not configured, project endpoints disabled")
		}
	}
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 定期清理已结束的生成任务
	go s.generator.RunJanitor(ctx, s.cfg.Environment.CleanupInterval, s.cfg.Environment.TaskRetention)

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// 先停止接收请求，再等待后台合成写完最终状态
		err := srv.Shutdown(shutdownCtx)
		if s.synthesis != nil {
			if werr := s.synthesis.Wait(shutdownCtx); werr != nil {
				log.Warn().Err(werr).Msg("synthesis runs still in flight at shutdown")
			}
		}

		// 关闭连接
		if s.mongo != nil {
			if err := s.mongo.Close(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to close MongoDB connection")
			}
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}

		return err
	case err := <-errCh:
		return err
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
