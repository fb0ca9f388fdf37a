package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"

	synthesisModel "ambience/internal/model/synthesis"
	"ambience/internal/pkg/id"
	synthesisRepo "ambience/internal/repository/synthesis"
)

// ProgressRetention 合成结束后保留最后进度的时长，供迟到的订阅者读取
const ProgressRetention = 5 * time.Minute

// ProgressPublisher 进度广播
type ProgressPublisher interface {
	Publish(key string, v any)
	Forget(key string)
}

// Service 项目与合成服务
type Service interface {
	CreateProject(ctx context.Context, name, userID string) (*synthesisModel.Project, error)
	GetProject(ctx context.Context, projectID string) (*synthesisModel.Project, error)
	ListProjects(ctx context.Context, userID string) ([]*synthesisModel.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
	ListEnvironmentSounds(ctx context.Context, projectID string) ([]*synthesisModel.EnvironmentSound, error)
	// StartSynthesis 在后台启动合成，项目正在合成时返回 ErrProjectBusy
	StartSynthesis(ctx context.Context, projectID string, opts SynthesisOptions) error
	DefaultEnvironmentVolume() float64
	// Wait 等待后台合成任务全部结束，ctx 结束时返回其错误
	Wait(ctx context.Context) error
}

type service struct {
	projects    synthesisRepo.ProjectRepository
	sounds      synthesisRepo.EnvironmentSoundRepository
	coordinator *Coordinator
	publisher   ProgressPublisher
	retention   time.Duration

	running sync.WaitGroup
}

// NewService 创建合成服务，publisher 可为空
func NewService(
	projects synthesisRepo.ProjectRepository,
	sounds synthesisRepo.EnvironmentSoundRepository,
	coordinator *Coordinator,
	publisher ProgressPublisher,
) Service {
	return &service{
		projects:    projects,
		sounds:      sounds,
		coordinator: coordinator,
		publisher:   publisher,
		retention:   ProgressRetention,
	}
}

func (s *service) CreateProject(ctx context.Context, name, userID string) (*synthesisModel.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	p := &synthesisModel.Project{
		ID:     id.New(),
		Name:   name,
		UserID: userID,
		Status: synthesisModel.ProjectStatusPending,
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

func (s *service) GetProject(ctx context.Context, projectID string) (*synthesisModel.Project, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *service) ListProjects(ctx context.Context, userID string) ([]*synthesisModel.Project, error) {
	projects, err := s.projects.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []*synthesisModel.Project{}
	}
	return projects, nil
}

func (s *service) DeleteProject(ctx context.Context, projectID string) error {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return err
	}
	return s.projects.Delete(ctx, projectID)
}

func (s *service) ListEnvironmentSounds(ctx context.Context, projectID string) ([]*synthesisModel.EnvironmentSound, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	if s.sounds == nil {
		return []*synthesisModel.EnvironmentSound{}, nil
	}
	sounds, err := s.sounds.FindByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if sounds == nil {
		sounds = []*synthesisModel.EnvironmentSound{}
	}
	return sounds, nil
}

func (s *service) StartSynthesis(ctx context.Context, projectID string, opts SynthesisOptions) error {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return err
	}

	release, err := s.coordinator.Lock(ctx, projectID)
	if err != nil {
		return err
	}

	// 请求结束后继续执行
	runCtx := context.WithoutCancel(ctx)
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		defer release()
		if _, err := s.coordinator.Run(runCtx, projectID, opts, s.publish); err != nil {
			log.Error().Err(err).Str("project_id", projectID).Msg("后台合成任务失败")
		}
	}()
	return nil
}

func (s *service) DefaultEnvironmentVolume() float64 {
	return s.coordinator.DefaultEnvironmentVolume()
}

func (s *service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *service) publish(_ context.Context, p Progress) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(p.ProjectID, p)
	if p.Stage == StageCompleted || p.Stage == StageFailed {
		key := p.ProjectID
		time.AfterFunc(s.retention, func() { s.publisher.Forget(key) })
	}
}
