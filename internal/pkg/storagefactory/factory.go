package storagefactory

import (
	"context"
	"fmt"

	"ambience/internal/config"
	"ambience/internal/pkg/storage"
	"ambience/internal/pkg/storage/local"
	"ambience/internal/pkg/storage/minio"
	"ambience/internal/pkg/storage/oss"
)

// NewStorage 根据配置创建存储实例
func NewStorage(ctx context.Context, cfg *config.StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case "local":
		if cfg.Local == nil {
			return nil, fmt.Errorf("local storage config is required")
		}
		s, err := local.NewLocalStorage(cfg.Local.BasePath, cfg.Local.BaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "oss":
		if cfg.OSS == nil {
			return nil, fmt.Errorf("OSS storage config is required")
		}
		s, err := oss.NewOSSStorage(oss.Options{
			Endpoint:        cfg.OSS.Endpoint,
			Bucket:          cfg.OSS.Bucket,
			AccessKeyID:     cfg.OSS.AccessKeyID,
			AccessKeySecret: cfg.OSS.AccessKeySecret,
			PresignExpiry:   cfg.OSS.PresignExpiry,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "minio":
		if cfg.MinIO == nil {
			return nil, fmt.Errorf("MinIO storage config is required")
		}
		s, err := minio.NewMinIOStorage(ctx, minio.Options{
			Endpoint:        cfg.MinIO.Endpoint,
			Bucket:          cfg.MinIO.Bucket,
			AccessKeyID:     cfg.MinIO.AccessKeyID,
			SecretAccessKey: cfg.MinIO.SecretAccessKey,
			Region:          cfg.MinIO.Region,
			UseSSL:          cfg.MinIO.UseSSL,
			PresignExpiry:   cfg.MinIO.PresignExpiry,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

