package synthesis

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AudioFile 对白音频文件
// 说明：合成计划中的每个段落生成一个音频文件，按 paragraph_index 排序构成对白轨
type AudioFile struct {
	ID             string          `bson:"id" json:"id"`
	ProjectID      string          `bson:"project_id" json:"project_id"`
	ParagraphIndex int             `bson:"paragraph_index" json:"paragraph_index"` // 段落序号（从0开始）
	AudioType      AudioType       `bson:"audio_type" json:"audio_type"`
	FilePath       string          `bson:"file_path" json:"file_path"`
	TextContent    string          `bson:"text_content" json:"text_content"`
	Speaker        string          `bson:"speaker,omitempty" json:"speaker,omitempty"`
	VoiceType      string          `bson:"voice_type,omitempty" json:"voice_type,omitempty"`
	Duration       float64         `bson:"duration" json:"duration"` // 时长（秒），未知为 0
	FileSize       int64           `bson:"file_size" json:"file_size"`
	Status         AudioFileStatus `bson:"status" json:"status"`
	CreatedAt      time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `bson:"updated_at" json:"updated_at"`
	DeletedAt      *time.Time      `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// Collection 返回集合名称
func (a *AudioFile) Collection() string {
	return "audio_files"
}

// EnsureIndexes 创建和维护索引
func (a *AudioFile) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(a.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "paragraph_index", Value: 1}},
			Options: options.Index().SetName("idx_project_paragraph"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_status"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
