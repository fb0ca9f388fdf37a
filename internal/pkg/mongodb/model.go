package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Model 需要维护索引的集合模型
type Model interface {
	// Collection 返回集合名称
	Collection() string

	// EnsureIndexes 创建和维护索引
	EnsureIndexes(ctx context.Context, db *mongo.Database) error
}

// EnsureAllIndexes 依次为模型建立索引，任一失败即返回
func EnsureAllIndexes(ctx context.Context, db *mongo.Database, models ...Model) error {
	for _, m := range models {
		start := time.Now()
		if err := m.EnsureIndexes(ctx, db); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", m.Collection(), err)
		}
		log.Debug().
			Str("collection", m.Collection()).
			Dur("elapsed", time.Since(start)).
			Msg("indexes ensured")
	}
	return nil
}

// Active 为过滤条件追加未软删除约束
func Active(filter bson.M) bson.M {
	if filter == nil {
		filter = bson.M{}
	}
	filter["deleted_at"] = nil
	return filter
}
