package synthesis

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Project 合成项目
// 一个项目对应一次完整的对白+环境音合成，最终产出一个混音文件
type Project struct {
	ID             string        `bson:"id" json:"id"`                                           // 项目ID（UUID）
	Name           string        `bson:"name" json:"name"`                                       // 项目名称
	UserID         string        `bson:"user_id" json:"user_id"`                                 // 用户ID
	Status         ProjectStatus `bson:"status" json:"status"`                                   // 状态：pending, processing, completed, failed
	ErrorMessage   string        `bson:"error_message,omitempty" json:"error_message,omitempty"` // 失败原因
	FinalAudioPath string        `bson:"final_audio_path,omitempty" json:"final_audio_path,omitempty"`
	FinalAudioURL  string        `bson:"final_audio_url,omitempty" json:"final_audio_url,omitempty"`
	TimelinePath   string        `bson:"timeline_path,omitempty" json:"timeline_path,omitempty"`
	TotalDuration  float64       `bson:"total_duration" json:"total_duration"` // 总时长（秒）
	CreatedAt      time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at" json:"updated_at"`
	DeletedAt      *time.Time    `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// Collection 返回集合名称
func (p *Project) Collection() string {
	return "projects"
}

// EnsureIndexes 创建和维护索引
func (p *Project) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(p.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_user_created"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_status"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
