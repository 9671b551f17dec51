package s3

import (
	"context"
	"io"
)

// Storage определяет контракт хранилища содержимого файлов.
// Ключ непрозрачен для вызывающих: БД хранит его как storage_path.
type Storage interface {
	UploadBytes(ctx context.Context, key string, data []byte) error
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteObject(ctx context.Context, key string) error
}
