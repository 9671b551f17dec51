package service

import (
	"context"

	"minidrive/internal/domain"
)

// NodeStore описывает операции над деревом узлов, которые нужны сервисам.
type NodeStore interface {
	FindLiveByName(ctx context.Context, ownerID int64, parentID *int64, name string) (*domain.Node, error)
	FindLiveFolder(ctx context.Context, id, ownerID int64) (*domain.Node, error)
	FindLiveFile(ctx context.Context, id, ownerID int64) (*domain.Node, error)
	ListChildren(ctx context.Context, ownerID int64, parentID *int64, page, pageSize int) (*domain.NodePage, error)
	SumLiveFileSize(ctx context.Context, ownerID int64) (int64, error)
	CreateNode(ctx context.Context, node *domain.Node) error
	RenameNode(ctx context.Context, id, ownerID int64, newName string) (*domain.Node, error)
	UpdateFileContent(ctx context.Context, id, ownerID int64, storagePath string, sizeBytes int64) (string, error)
	SoftDeleteSubtree(ctx context.Context, folderID, ownerID int64) (int64, error)
}

// UserStore описывает операции над пользователями.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// UsedBytesCache кэширует суммарный размер живых файлов пользователя.
type UsedBytesCache interface {
	GetUsedBytes(ctx context.Context, ownerID int64) (int64, bool, error)
	SetUsedBytes(ctx context.Context, ownerID, used int64) error
	Invalidate(ctx context.Context, ownerID int64) error
}
