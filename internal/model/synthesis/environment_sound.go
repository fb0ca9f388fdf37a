package synthesis

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// 环境音素材默认参数
const (
	DefaultSoundVolume = 0.8
	DefaultSoundFade   = 1.0
)

// EnvironmentSound 生成的环境音素材，保存后可在其他项目复用
type EnvironmentSound struct {
	ID              string        `bson:"id" json:"id"`
	ProjectID       string        `bson:"project_id" json:"project_id"`
	Name            string        `bson:"name" json:"name"`
	Description     string        `bson:"description" json:"description"`
	FilePath        string        `bson:"file_path" json:"file_path"`
	Duration        float64       `bson:"duration" json:"duration"`
	Tags            []string      `bson:"tags" json:"tags"`
	VolumeLevel     float64       `bson:"volume_level" json:"volume_level"`
	FadeInDuration  float64       `bson:"fade_in_duration" json:"fade_in_duration"`
	FadeOutDuration float64       `bson:"fade_out_duration" json:"fade_out_duration"`
	LoopEnabled     bool          `bson:"loop_enabled" json:"loop_enabled"`
	Metadata        SoundMetadata `bson:"metadata" json:"metadata"`
	CreatedAt       time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `bson:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time    `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// SoundMetadata 生成参数
type SoundMetadata struct {
	GenerationTaskID string `bson:"generation_task_id" json:"generation_task_id"`
	Prompt           string `bson:"prompt" json:"prompt"`
	Intensity        string `bson:"intensity" json:"intensity"`
}

// Collection 返回集合名称
func (e *EnvironmentSound) Collection() string {
	return "environment_sounds"
}

// EnsureIndexes 创建和维护索引
func (e *EnvironmentSound) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(e.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_project_created"),
		},
		{
			Keys:    bson.D{{Key: "tags", Value: 1}},
			Options: options.Index().SetName("idx_tags"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
