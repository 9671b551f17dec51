package domain

import (
	"fmt"
	"time"
)

// InvalidFolderError целевая или родительская папка не найдена,
// принадлежит другому пользователю или не является папкой.
type InvalidFolderError struct {
	FolderID int64
}

func (e *InvalidFolderError) Error() string {
	return fmt.Sprintf("invalid folder id: %d", e.FolderID)
}

// AlreadyExistsError в папке уже есть живой узел с таким именем.
// Несёт описание существующего узла, чтобы клиент мог сразу
// повторить запрос с явной политикой.
type AlreadyExistsError struct {
	ExistingID        int64     `json:"existing_id"`
	ExistingName      string    `json:"existing_name"`
	ExistingCreatedAt time.Time `json:"existing_created_at"`
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("name already exists: %s", e.ExistingName)
}

// QuotaExceededError загрузка превышает квоту пользователя
type QuotaExceededError struct {
	RequiredBytes  int64 `json:"required_bytes"`
	RemainingBytes int64 `json:"remaining_bytes"`
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("storage quota exceeded: required %d bytes, remaining %d bytes",
		e.RequiredBytes, e.RemainingBytes)
}

// StorageIOError операция с бэкендом хранилища завершилась с ошибкой
type StorageIOError struct {
	Op  string
	Err error
}

func (e *StorageIOError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageIOError) Unwrap() error {
	return e.Err
}

// InvalidArgumentError некорректный параметр запроса
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return e.Reason
}
