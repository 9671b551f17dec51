package domain

import (
	"time"
)

type NodeKind string

const (
	NodeKindFile   NodeKind = "FILE"
	NodeKindFolder NodeKind = "FOLDER"
)

// MaxNodeNameLength ограничение на длину имени файла или папки
const MaxNodeNameLength = 255

// Node представляет узел дерева: файл или папку.
// StoragePath заполнен только у живых файлов, у папок всегда NULL.
type Node struct {
	ID          int64      `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Kind        NodeKind   `json:"kind" db:"kind"`
	SizeBytes   int64      `json:"size_bytes" db:"size_bytes"`
	StoragePath *string    `json:"-" db:"storage_path"`
	ParentID    *int64     `json:"parent_id,omitempty" db:"parent_id"`
	OwnerID     int64      `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (n *Node) IsFolder() bool {
	return n.Kind == NodeKindFolder
}

func (n *Node) IsLive() bool {
	return n.DeletedAt == nil
}

// NodePage страница списка содержимого папки
type NodePage struct {
	Items    []Node `json:"items"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// UploadResult результат загрузки файла
type UploadResult struct {
	FileID     int64     `json:"file_id"`
	FileName   string    `json:"file_name"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadTime time.Time `json:"upload_time"`
}

// DuplicatePolicy определяет поведение при совпадении имени файла при загрузке
type DuplicatePolicy string

const (
	// DuplicatePolicyNone политика не указана: загрузка отклоняется с AlreadyExists
	DuplicatePolicyNone      DuplicatePolicy = ""
	DuplicatePolicyOverwrite DuplicatePolicy = "overwrite"
	DuplicatePolicySuffix    DuplicatePolicy = "suffix"
)

// ParseDuplicatePolicy разбирает значение политики из запроса
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case DuplicatePolicyNone, DuplicatePolicyOverwrite, DuplicatePolicySuffix:
		return DuplicatePolicy(s), nil
	default:
		return DuplicatePolicyNone, &InvalidArgumentError{Reason: "unknown duplicate policy: " + s}
	}
}
