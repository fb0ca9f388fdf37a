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

// ProjectResult 合成完成后回写的结果字段
type ProjectResult struct {
	FinalAudioPath string
	FinalAudioURL  string
	TimelinePath   string
	TotalDuration  float64
}

// ProjectRepository 项目仓库接口
type ProjectRepository interface {
	Create(ctx context.Context, p *synthesis.Project) error
	FindByID(ctx context.Context, id string) (*synthesis.Project, error)
	FindByUserID(ctx context.Context, userID string) ([]*synthesis.Project, error)
	UpdateStatus(ctx context.Context, id string, status synthesis.ProjectStatus, errMsg string) error
	UpdateResult(ctx context.Context, id string, result ProjectResult) error
	Delete(ctx context.Context, id string) error
}

// ProjectRepo 项目仓库实现
type ProjectRepo struct {
	coll *mongo.Collection
}

// NewProjectRepo 创建项目仓库
func NewProjectRepo(db *mongo.Database) *ProjectRepo {
	var p synthesis.Project
	return &ProjectRepo{coll: db.Collection(p.Collection())}
}

// Create 创建项目
func (r *ProjectRepo) Create(ctx context.Context, p *synthesis.Project) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = synthesis.ProjectStatusPending
	}
	_, err := r.coll.InsertOne(ctx, p)
	return err
}

// FindByID 根据ID查询，不存在时返回 mongo.ErrNoDocuments
func (r *ProjectRepo) FindByID(ctx context.Context, id string) (*synthesis.Project, error) {
	var p synthesis.Project
	if err := r.coll.FindOne(ctx, mongodb.Active(bson.M{"id": id})).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByUserID 查询用户的项目（按创建时间倒序）
func (r *ProjectRepo) FindByUserID(ctx context.Context, userID string) ([]*synthesis.Project, error) {
	filter := mongodb.Active(bson.M{"user_id": userID})
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var projects []*synthesis.Project
	if err := cur.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// UpdateStatus 更新状态和错误信息
func (r *ProjectRepo) UpdateStatus(ctx context.Context, id string, status synthesis.ProjectStatus, errMsg string) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"status":        status,
			"error_message": errMsg,
			"updated_at":    time.Now(),
		}},
	)
	return err
}

// UpdateResult 写入合成结果并标记完成
func (r *ProjectRepo) UpdateResult(ctx context.Context, id string, result ProjectResult) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"status":           synthesis.ProjectStatusCompleted,
			"error_message":    "",
			"final_audio_path": result.FinalAudioPath,
			"final_audio_url":  result.FinalAudioURL,
			"timeline_path":    result.TimelinePath,
			"total_duration":   result.TotalDuration,
			"updated_at":       time.Now(),
		}},
	)
	return err
}

// Delete 软删除
func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
	now := time.Now()
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"deleted_at": &now,
			"updated_at": now,
		}},
	)
	return err
}
