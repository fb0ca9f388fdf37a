// Package oss 阿里云 OSS 存储后端
package oss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"ambience/internal/pkg/storage"
)

// Options 连接参数
type Options struct {
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	AccessKeySecret string
	PresignExpiry   int // 预签名URL最长有效期（秒），0 表示不限制
}

// OSSStorage 阿里云 OSS 存储
type OSSStorage struct {
	bucket    *oss.Bucket
	publicURL url.URL // https://{bucket}.{endpoint}
	maxExpiry time.Duration
}

// NewOSSStorage 创建 OSS 存储
func NewOSSStorage(opts Options) (*OSSStorage, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, errors.New("oss endpoint and bucket are required")
	}

	client, err := oss.New(opts.Endpoint, opts.AccessKeyID, opts.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}
	bucket, err := client.Bucket(opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", opts.Bucket, err)
	}

	return &OSSStorage{
		bucket:    bucket,
		publicURL: bucketURL(opts.Endpoint, opts.Bucket),
		maxExpiry: time.Duration(opts.PresignExpiry) * time.Second,
	}, nil
}

// bucketURL 虚拟主机风格的 bucket 地址，endpoint 可带或不带协议
func bucketURL(endpoint, bucket string) url.URL {
	u := url.URL{Scheme: "https", Host: endpoint}
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		u.Scheme, u.Host = parsed.Scheme, parsed.Host
	}
	u.Host = bucket + "." + u.Host
	return u
}

// objectURL 对象的公开地址
func (s *OSSStorage) objectURL(key string) string {
	u := s.publicURL
	u.Path = "/" + strings.TrimPrefix(key, "/")
	return u.String()
}

func (s *OSSStorage) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	if contentType == "" {
		contentType = storage.ContentType(key)
	}
	if err := s.bucket.PutObject(key, data, oss.ContentType(contentType), oss.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.objectURL(key), nil
}

func (s *OSSStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := s.bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	return body, nil
}

// GetPresignedDownloadURL 有效期不超过 PresignExpiry
func (s *OSSStorage) GetPresignedDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, error) {
	if s.maxExpiry > 0 && expiresIn > s.maxExpiry {
		expiresIn = s.maxExpiry
	}
	signed, err := s.bucket.SignURL(key, oss.HTTPGet, int64(expiresIn.Seconds()))
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", key, err)
	}
	return signed, nil
}

func (s *OSSStorage) Delete(ctx context.Context, key string) error {
	if err := s.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *OSSStorage) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.bucket.IsObjectExist(key, oss.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return ok, nil
}

func (s *OSSStorage) GetFileInfo(ctx context.Context, key string) (*storage.FileInfo, error) {
	header, err := s.bucket.GetObjectDetailedMeta(key, oss.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	return fileInfo(key, header), nil
}

// fileInfo 从对象元信息响应头解析文件信息
func fileInfo(key string, header http.Header) *storage.FileInfo {
	info := &storage.FileInfo{
		Key:         key,
		ContentType: header.Get("Content-Type"),
		ETag:        strings.Trim(header.Get("ETag"), `"`),
	}
	if info.ContentType == "" {
		info.ContentType = storage.ContentType(key)
	}
	info.Size, _ = strconv.ParseInt(header.Get("Content-Length"), 10, 64)
	info.LastModified, _ = http.ParseTime(header.Get("Last-Modified"))
	return info
}

func (s *OSSStorage) GetStorageType() string {
	return string(storage.StorageTypeOSS)
}
