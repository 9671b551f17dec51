package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"minidrive/internal/domain"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// FolderService управляет деревом папок пользователя.
type FolderService struct {
	nodes NodeStore
}

func NewFolderService(nodes NodeStore) *FolderService {
	return &FolderService{nodes: nodes}
}

// validateNodeName проверяет имя узла: не пустое, без разделителей пути,
// не длиннее допустимого.
func validateNodeName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &domain.InvalidArgumentError{Reason: "name must not be empty"}
	}
	if len(name) > domain.MaxNodeNameLength {
		return &domain.InvalidArgumentError{Reason: fmt.Sprintf("name exceeds %d characters", domain.MaxNodeNameLength)}
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return &domain.InvalidArgumentError{Reason: "name contains invalid characters"}
	}
	return nil
}

// ResolveFolder проверяет, что папка существует, жива и принадлежит пользователю.
// folderID == nil означает корень и всегда валиден.
func (s *FolderService) ResolveFolder(ctx context.Context, folderID *int64, ownerID int64) (*domain.Node, error) {
	if folderID == nil {
		return nil, nil
	}

	folder, err := s.nodes.FindLiveFolder(ctx, *folderID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find folder %d: %w", *folderID, err)
	}
	if folder == nil {
		return nil, &domain.InvalidFolderError{FolderID: *folderID}
	}
	return folder, nil
}

// CreateFolder создаёт папку внутри родителя (nil означает корень).
func (s *FolderService) CreateFolder(ctx context.Context, name string, parentID *int64, ownerID int64) (*domain.Node, error) {
	if err := validateNodeName(name); err != nil {
		return nil, err
	}

	if _, err := s.ResolveFolder(ctx, parentID, ownerID); err != nil {
		return nil, err
	}

	// Быстрая проверка имени до записи. Настоящая гарантия уникальности
	// выполняется внутри транзакции CreateNode под advisory-блокировкой.
	existing, err := s.nodes.FindLiveByName(ctx, ownerID, parentID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check folder name: %w", err)
	}
	if existing != nil {
		return nil, &domain.AlreadyExistsError{
			ExistingID:        existing.ID,
			ExistingName:      existing.Name,
			ExistingCreatedAt: existing.CreatedAt,
		}
	}

	node := &domain.Node{
		Name:     name,
		Kind:     domain.NodeKindFolder,
		ParentID: parentID,
		OwnerID:  ownerID,
	}
	if err := s.nodes.CreateNode(ctx, node); err != nil {
		return nil, err
	}

	log.Printf("[FolderService] Создана папка %d (%s) для пользователя %d", node.ID, node.Name, ownerID)
	return node, nil
}

// RenameFolder переименовывает папку. Если новое имя совпадает с текущим,
// операция завершается успешно без записи в БД.
func (s *FolderService) RenameFolder(ctx context.Context, folderID int64, newName string, ownerID int64) (*domain.Node, error) {
	if err := validateNodeName(newName); err != nil {
		return nil, err
	}

	folder, err := s.nodes.FindLiveFolder(ctx, folderID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find folder %d: %w", folderID, err)
	}
	if folder == nil {
		return nil, &domain.InvalidFolderError{FolderID: folderID}
	}
	if folder.Name == newName {
		return folder, nil
	}

	renamed, err := s.nodes.RenameNode(ctx, folderID, ownerID, newName)
	if err != nil {
		return nil, err
	}

	log.Printf("[FolderService] Папка %d переименована в %q", folderID, newName)
	return renamed, nil
}

// DeleteFolder мягко удаляет папку со всем её содержимым.
func (s *FolderService) DeleteFolder(ctx context.Context, folderID, ownerID int64) error {
	count, err := s.nodes.SoftDeleteSubtree(ctx, folderID, ownerID)
	if err != nil {
		return err
	}

	log.Printf("[FolderService] Удалена папка %d: помечено %d узлов", folderID, count)
	return nil
}

// ListChildren возвращает страницу живых детей папки (nil означает корень):
// сначала папки, затем файлы, новые выше старых.
func (s *FolderService) ListChildren(ctx context.Context, folderID *int64, ownerID int64, page, pageSize int) (*domain.NodePage, error) {
	if _, err := s.ResolveFolder(ctx, folderID, ownerID); err != nil {
		return nil, err
	}

	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return s.nodes.ListChildren(ctx, ownerID, folderID, page, pageSize)
}
