package synthesis

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ambience/internal/model/synthesis"
	"ambience/internal/pkg/mongodb"
)

// EnvironmentSoundRepository 环境音素材仓库接口
type EnvironmentSoundRepository interface {
	Create(ctx context.Context, e *synthesis.EnvironmentSound) error
	FindByProjectID(ctx context.Context, projectID string) ([]*synthesis.EnvironmentSound, error)
}

// EnvironmentSoundRepo 环境音素材仓库实现
type EnvironmentSoundRepo struct {
	coll *mongo.Collection
}

// NewEnvironmentSoundRepo 创建环境音素材仓库
func NewEnvironmentSoundRepo(db *mongo.Database) *EnvironmentSoundRepo {
	var e synthesis.EnvironmentSound
	return &EnvironmentSoundRepo{coll: db.Collection(e.Collection())}
}

// Create 保存环境音素材
func (r *EnvironmentSoundRepo) Create(ctx context.Context, e *synthesis.EnvironmentSound) error {
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.VolumeLevel == 0 {
		e.VolumeLevel = synthesis.DefaultSoundVolume
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	_, err := r.coll.InsertOne(ctx, e)
	return err
}

// FindByProjectID 查询项目生成的环境音（按创建时间倒序）
func (r *EnvironmentSoundRepo) FindByProjectID(ctx context.Context, projectID string) ([]*synthesis.EnvironmentSound, error) {
	filter := mongodb.Active(bson.M{"project_id": projectID})
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var sounds []*synthesis.EnvironmentSound
	if err := cur.All(ctx, &sounds); err != nil {
		return nil, err
	}
	return sounds, nil
}
