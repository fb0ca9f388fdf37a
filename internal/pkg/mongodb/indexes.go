package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"ambience/internal/model/synthesis"
)

// EnsureIndexes 创建所有模型的索引，应用启动时调用
func EnsureIndexes(db *mongo.Database) error {
	ctx := context.Background()

	models := []Model{
		&synthesis.Project{},
		&synthesis.AudioFile{},
		&synthesis.EnvironmentSound{},
	}

	return EnsureAllIndexes(ctx, db, models...)
}
