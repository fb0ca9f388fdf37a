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

// AudioFileRepository 对白音频仓库接口
type AudioFileRepository interface {
	Create(ctx context.Context, a *synthesis.AudioFile) error
	FindSegmentsByProjectID(ctx context.Context, projectID string) ([]*synthesis.AudioFile, error)
	DeactivateByProjectID(ctx context.Context, projectID string) error
}

// AudioFileRepo 对白音频仓库实现
type AudioFileRepo struct {
	coll *mongo.Collection
}

// NewAudioFileRepo 创建对白音频仓库
func NewAudioFileRepo(db *mongo.Database) *AudioFileRepo {
	var a synthesis.AudioFile
	return &AudioFileRepo{coll: db.Collection(a.Collection())}
}

// Create 创建音频记录
func (r *AudioFileRepo) Create(ctx context.Context, a *synthesis.AudioFile) error {
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.AudioType == "" {
		a.AudioType = synthesis.AudioTypeSegment
	}
	if a.Status == "" {
		a.Status = synthesis.AudioFileStatusActive
	}
	_, err := r.coll.InsertOne(ctx, a)
	return err
}

// FindSegmentsByProjectID 查询项目的有效对白片段（按 paragraph_index 排序）
func (r *AudioFileRepo) FindSegmentsByProjectID(ctx context.Context, projectID string) ([]*synthesis.AudioFile, error) {
	filter := mongodb.Active(bson.M{
		"project_id": projectID,
		"audio_type": synthesis.AudioTypeSegment,
		"status":     synthesis.AudioFileStatusActive,
	})
	opts := options.Find().SetSort(bson.M{"paragraph_index": 1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var files []*synthesis.AudioFile
	if err := cur.All(ctx, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// DeactivateByProjectID 将项目已有片段置为 inactive，重新合成前调用
func (r *AudioFileRepo) DeactivateByProjectID(ctx context.Context, projectID string) error {
	_, err := r.coll.UpdateMany(
		ctx,
		bson.M{"project_id": projectID, "status": synthesis.AudioFileStatusActive},
		bson.M{"$set": bson.M{
			"status":     synthesis.AudioFileStatusInactive,
			"updated_at": time.Now(),
		}},
	)
	return err
}
