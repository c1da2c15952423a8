package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"careerDesk/internal/config"
)

// Blob 是简历头像与导出 PDF 所用的对象存储抽象。
type Blob interface {
	// Upload 写入对象并返回可长期访问的 URL。
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	// Delete 接受对象 key 或 Upload 返回的 URL；对象不存在视为成功。
	Delete(ctx context.Context, ref string) error
	// PresignedURL 生成限时下载链接。
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// New 根据 STORAGE_DRIVER 构造存储实现。
func New(cfg *config.Config) (Blob, error) {
	switch cfg.Storage.Driver {
	case "", "minio":
		return NewClient(cfg.MinIO)
	case "s3":
		return NewS3Store(cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// keyFromRef 把 URL 还原为对象 key；不带前缀时原样返回。
func keyFromRef(publicBase, ref string) string {
	ref = strings.TrimSpace(ref)
	publicBase = strings.TrimRight(publicBase, "/")
	if publicBase != "" && strings.HasPrefix(ref, publicBase+"/") {
		ref = strings.TrimPrefix(ref, publicBase+"/")
	}
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	return strings.TrimLeft(ref, "/")
}
