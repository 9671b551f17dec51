package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"minidrive/internal/domain"
	"minidrive/internal/service/s3"
)

const maxFileSize = 50 * 1024 * 1024 // 50MB

var ErrFileNotFound = errors.New("file not found")

// FileService загружает и выдаёт файлы, разрешая конфликты имён.
type FileService struct {
	nodes   NodeStore
	storage s3.Storage
	folders *FolderService
	quota   *QuotaService
}

func NewFileService(nodes NodeStore, storage s3.Storage, folders *FolderService, quota *QuotaService) *FileService {
	return &FileService{
		nodes:   nodes,
		storage: storage,
		folders: folders,
		quota:   quota,
	}
}

// splitFileName отделяет расширение по последней точке. Точка в нулевой
// позиции (скрытые файлы вида ".env") расширением не считается.
func splitFileName(name string) (base, ext string) {
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return name[:idx], name[idx:]
	}
	return name, ""
}

// newStorageKey генерирует ключ объекта в хранилище. Ключ не зависит от
// имени файла, поэтому переименования не трогают байты.
func newStorageKey(ownerID int64) string {
	return fmt.Sprintf("drive_files/%d/%s", ownerID, uuid.New().String())
}

// Upload сохраняет файл в папку (nil означает корень). При совпадении имени
// поведение определяется политикой: без политики загрузка отклоняется,
// overwrite заменяет содержимое, suffix подбирает свободное имя
// вида "name(1).ext".
func (s *FileService) Upload(ctx context.Context, data []byte, fileName string, folderID *int64, ownerID int64, policy domain.DuplicatePolicy) (*domain.UploadResult, error) {
	if err := validateNodeName(fileName); err != nil {
		return nil, err
	}
	if len(data) > maxFileSize {
		return nil, &domain.InvalidArgumentError{Reason: fmt.Sprintf("file exceeds %d bytes", maxFileSize)}
	}

	if _, err := s.folders.ResolveFolder(ctx, folderID, ownerID); err != nil {
		return nil, err
	}

	// Предварительная проверка квоты до похода в хранилище. Окончательная
	// проверка повторяется в транзакции вставки.
	if err := s.quota.CheckQuota(ctx, ownerID, int64(len(data))); err != nil {
		return nil, err
	}

	existing, err := s.nodes.FindLiveByName(ctx, ownerID, folderID, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to check file name: %w", err)
	}

	if existing == nil {
		result, err := s.saveNewFile(ctx, data, fileName, folderID, ownerID)
		var dup *domain.AlreadyExistsError
		if err == nil || !errors.As(err, &dup) || policy == domain.DuplicatePolicyNone {
			return result, err
		}
		// Проиграли гонку за имя: применяем политику как при обычной коллизии.
		existing, err = s.nodes.FindLiveByName(ctx, ownerID, folderID, fileName)
		if err != nil {
			return nil, fmt.Errorf("failed to recheck file name: %w", err)
		}
		if existing == nil {
			return nil, dup
		}
	}

	switch policy {
	case domain.DuplicatePolicyNone:
		return nil, &domain.AlreadyExistsError{
			ExistingID:        existing.ID,
			ExistingName:      existing.Name,
			ExistingCreatedAt: existing.CreatedAt,
		}
	case domain.DuplicatePolicyOverwrite:
		if !existing.IsFolder() {
			return s.replaceContent(ctx, data, existing, ownerID)
		}
		// Папку перезаписать файлом нельзя, остаётся только суффикс.
		return nil, &domain.AlreadyExistsError{
			ExistingID:        existing.ID,
			ExistingName:      existing.Name,
			ExistingCreatedAt: existing.CreatedAt,
		}
	case domain.DuplicatePolicySuffix:
		return s.saveWithSuffix(ctx, data, fileName, folderID, ownerID)
	default:
		return nil, &domain.InvalidArgumentError{Reason: fmt.Sprintf("unknown duplicate policy: %s", policy)}
	}
}

// saveNewFile кладёт байты в хранилище и создаёт запись. Если вставка не
// удалась, загруженный объект удаляется, чтобы не копить мусор.
func (s *FileService) saveNewFile(ctx context.Context, data []byte, fileName string, folderID *int64, ownerID int64) (*domain.UploadResult, error) {
	key := newStorageKey(ownerID)
	if err := s.storage.UploadBytes(ctx, key, data); err != nil {
		return nil, &domain.StorageIOError{Op: "store", Err: err}
	}

	node := &domain.Node{
		Name:        fileName,
		Kind:        domain.NodeKindFile,
		SizeBytes:   int64(len(data)),
		StoragePath: &key,
		ParentID:    folderID,
		OwnerID:     ownerID,
	}
	if err := s.nodes.CreateNode(ctx, node); err != nil {
		s.deleteObject(ctx, key)
		return nil, err
	}

	s.quota.InvalidateUsed(ctx, ownerID)
	log.Printf("[FileService] Загружен файл %d (%s, %d байт) для пользователя %d", node.ID, node.Name, node.SizeBytes, ownerID)

	return &domain.UploadResult{
		FileID:     node.ID,
		FileName:   node.Name,
		SizeBytes:  node.SizeBytes,
		UploadTime: node.CreatedAt,
	}, nil
}

// replaceContent заменяет содержимое существующего файла. Новые байты
// записываются под новым ключом, старый объект удаляется только после
// коммита, поэтому при сбое прежняя версия остаётся нетронутой.
func (s *FileService) replaceContent(ctx context.Context, data []byte, existing *domain.Node, ownerID int64) (*domain.UploadResult, error) {
	key := newStorageKey(ownerID)
	if err := s.storage.UploadBytes(ctx, key, data); err != nil {
		return nil, &domain.StorageIOError{Op: "store", Err: err}
	}

	oldKey, err := s.nodes.UpdateFileContent(ctx, existing.ID, ownerID, key, int64(len(data)))
	if err != nil {
		s.deleteObject(ctx, key)
		return nil, err
	}
	if oldKey != "" {
		s.deleteObject(ctx, oldKey)
	}

	s.quota.InvalidateUsed(ctx, ownerID)
	log.Printf("[FileService] Перезаписан файл %d (%s, %d байт)", existing.ID, existing.Name, len(data))

	return &domain.UploadResult{
		FileID:     existing.ID,
		FileName:   existing.Name,
		SizeBytes:  int64(len(data)),
		UploadTime: time.Now(),
	}, nil
}

// saveWithSuffix подбирает свободное имя вида "base(N)ext". Счётчик не
// сбрасывается между попытками, поэтому цикл конечен даже при гонках.
func (s *FileService) saveWithSuffix(ctx context.Context, data []byte, fileName string, folderID *int64, ownerID int64) (*domain.UploadResult, error) {
	base, ext := splitFileName(fileName)

	key := newStorageKey(ownerID)
	if err := s.storage.UploadBytes(ctx, key, data); err != nil {
		return nil, &domain.StorageIOError{Op: "store", Err: err}
	}

	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s(%d)%s", base, counter, ext)
		if len(candidate) > domain.MaxNodeNameLength {
			s.deleteObject(ctx, key)
			return nil, &domain.InvalidArgumentError{Reason: fmt.Sprintf("name exceeds %d characters", domain.MaxNodeNameLength)}
		}

		taken, err := s.nodes.FindLiveByName(ctx, ownerID, folderID, candidate)
		if err != nil {
			s.deleteObject(ctx, key)
			return nil, fmt.Errorf("failed to probe name %q: %w", candidate, err)
		}
		if taken != nil {
			continue
		}

		node := &domain.Node{
			Name:        candidate,
			Kind:        domain.NodeKindFile,
			SizeBytes:   int64(len(data)),
			StoragePath: &key,
			ParentID:    folderID,
			OwnerID:     ownerID,
		}
		err = s.nodes.CreateNode(ctx, node)
		if err == nil {
			s.quota.InvalidateUsed(ctx, ownerID)
			log.Printf("[FileService] Загружен файл %d под именем %q (исходное %q)", node.ID, candidate, fileName)
			return &domain.UploadResult{
				FileID:     node.ID,
				FileName:   node.Name,
				SizeBytes:  node.SizeBytes,
				UploadTime: node.CreatedAt,
			}, nil
		}

		var dup *domain.AlreadyExistsError
		if errors.As(err, &dup) {
			// Имя заняли между проверкой и вставкой, пробуем следующее.
			continue
		}
		s.deleteObject(ctx, key)
		return nil, err
	}
}

// Download возвращает метаданные файла и поток его содержимого.
// Вызывающий обязан закрыть ридер.
func (s *FileService) Download(ctx context.Context, fileID, ownerID int64) (*domain.Node, io.ReadCloser, error) {
	node, err := s.nodes.FindLiveFile(ctx, fileID, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find file %d: %w", fileID, err)
	}
	if node == nil || node.StoragePath == nil {
		return nil, nil, ErrFileNotFound
	}

	body, err := s.storage.GetObject(ctx, *node.StoragePath)
	if err != nil {
		return nil, nil, &domain.StorageIOError{Op: "load", Err: err}
	}
	return node, body, nil
}

func (s *FileService) deleteObject(ctx context.Context, key string) {
	if err := s.storage.DeleteObject(ctx, key); err != nil {
		log.Printf("[FileService] Не удалось удалить объект %s: %v", key, err)
	}
}
