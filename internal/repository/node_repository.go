package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"minidrive/internal/domain"
)

const uniqueViolation = "23505"

type NodeRepository struct {
	db *sqlx.DB
}

func NewNodeRepository(db *sqlx.DB) *NodeRepository {
	return &NodeRepository{db: db}
}

// scopeLockKey ключ advisory-блокировки для пары (владелец, родитель).
// Коллизии ключей безопасны: они лишь расширяют зону сериализации.
func scopeLockKey(ownerID int64, parentID *int64) int64 {
	h := fnv.New64a()
	var parent int64
	if parentID != nil {
		parent = *parentID
	}
	fmt.Fprintf(h, "%d:%d", ownerID, parent)
	return int64(h.Sum64())
}

// lockScope сериализует check-then-act в пределах (owner, parent).
// Блокировка транзакционная, снимается при commit/rollback.
func lockScope(ctx context.Context, tx *sqlx.Tx, ownerID int64, parentID *int64) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, scopeLockKey(ownerID, parentID))
	if err != nil {
		return fmt.Errorf("failed to acquire scope lock: %w", err)
	}
	return nil
}

// ownerLockKey ключ блокировки для проверки квоты: один на владельца,
// не зависит от папки. Ключ намеренно отличается от scopeLockKey,
// пространство входов разведено префиксом.
func ownerLockKey(ownerID int64) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "quota:%d", ownerID)
	return int64(h.Sum64())
}

// lockOwner сериализует все транзакции, увеличивающие занятое место
// пользователя. Без этого две параллельные загрузки в разные папки
// держат разные scope-блокировки, обе видят старую сумму размеров
// под READ COMMITTED и вместе превышают квоту. Берётся всегда после
// scope-блокировки, порядок фиксирован во избежание взаимоблокировок.
func lockOwner(ctx context.Context, tx *sqlx.Tx, ownerID int64) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, ownerLockKey(ownerID))
	if err != nil {
		return fmt.Errorf("failed to acquire owner lock: %w", err)
	}
	return nil
}

// FindLiveByName ищет живой узел любого типа по имени среди детей родителя.
// Возвращает nil без ошибки, если узла нет.
func (r *NodeRepository) FindLiveByName(ctx context.Context, ownerID int64, parentID *int64, name string) (*domain.Node, error) {
	var node domain.Node
	query := `
        SELECT * FROM nodes
        WHERE owner_id = $1
        AND parent_id IS NOT DISTINCT FROM $2
        AND name = $3
        AND deleted_at IS NULL
        LIMIT 1`

	err := r.db.GetContext(ctx, &node, query, ownerID, parentID, name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find node by name: %w", err)
	}
	return &node, nil
}

// FindLiveFolder ищет живую папку по id с проверкой владельца.
// Возвращает nil без ошибки, если папки нет.
func (r *NodeRepository) FindLiveFolder(ctx context.Context, id, ownerID int64) (*domain.Node, error) {
	var node domain.Node
	query := `
        SELECT * FROM nodes
        WHERE id = $1
        AND owner_id = $2
        AND kind = 'FOLDER'
        AND deleted_at IS NULL`

	err := r.db.GetContext(ctx, &node, query, id, ownerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find folder: %w", err)
	}
	return &node, nil
}

// ListChildren возвращает страницу живых детей папки: сначала папки,
// затем файлы, внутри группы по убыванию времени создания.
func (r *NodeRepository) ListChildren(ctx context.Context, ownerID int64, parentID *int64, page, pageSize int) (*domain.NodePage, error) {
	var total int64
	countQuery := `
        SELECT COUNT(*) FROM nodes
        WHERE owner_id = $1
        AND parent_id IS NOT DISTINCT FROM $2
        AND deleted_at IS NULL`

	if err := r.db.GetContext(ctx, &total, countQuery, ownerID, parentID); err != nil {
		return nil, fmt.Errorf("failed to count children: %w", err)
	}

	// kind DESC даёт 'FOLDER' перед 'FILE'
	items := make([]domain.Node, 0, pageSize)
	query := `
        SELECT * FROM nodes
        WHERE owner_id = $1
        AND parent_id IS NOT DISTINCT FROM $2
        AND deleted_at IS NULL
        ORDER BY kind DESC, created_at DESC, id DESC
        LIMIT $3 OFFSET $4`

	err := r.db.SelectContext(ctx, &items, query, ownerID, parentID, pageSize, page*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}

	return &domain.NodePage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// SumLiveFileSize считает занятое пользователем место по живым файлам
func (r *NodeRepository) SumLiveFileSize(ctx context.Context, ownerID int64) (int64, error) {
	var used int64
	query := `
        SELECT COALESCE(SUM(size_bytes), 0) FROM nodes
        WHERE owner_id = $1
        AND kind = 'FILE'
        AND deleted_at IS NULL`

	if err := r.db.GetContext(ctx, &used, query, ownerID); err != nil {
		return 0, fmt.Errorf("failed to sum file sizes: %w", err)
	}
	return used, nil
}

// CreateNode вставляет новый живой узел. Проверка уникальности имени и
// вставка выполняются в одной транзакции под advisory-блокировкой;
// частичный уникальный индекс страхует от гонок на уровне БД.
// Для файлов квота перепроверяется в той же транзакции.
func (r *NodeRepository) CreateNode(ctx context.Context, node *domain.Node) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockScope(ctx, tx, node.OwnerID, node.ParentID); err != nil {
		return err
	}

	if existing, err := r.findLiveByNameTx(ctx, tx, node.OwnerID, node.ParentID, node.Name); err != nil {
		return err
	} else if existing != nil {
		return &domain.AlreadyExistsError{
			ExistingID:        existing.ID,
			ExistingName:      existing.Name,
			ExistingCreatedAt: existing.CreatedAt,
		}
	}

	if node.Kind == domain.NodeKindFile {
		if err := lockOwner(ctx, tx, node.OwnerID); err != nil {
			return err
		}
		if err := r.checkQuotaTx(ctx, tx, node.OwnerID, node.SizeBytes); err != nil {
			return err
		}
	}

	query := `
        INSERT INTO nodes (name, kind, size_bytes, storage_path, parent_id, owner_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	err = tx.QueryRowContext(
		ctx,
		query,
		node.Name,
		node.Kind,
		node.SizeBytes,
		node.StoragePath,
		node.ParentID,
		node.OwnerID,
	).Scan(&node.ID, &node.CreatedAt, &node.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return r.siblingConflict(ctx, node.OwnerID, node.ParentID, node.Name)
		}
		return fmt.Errorf("failed to create node: %w", err)
	}

	return tx.Commit()
}

// RenameNode меняет имя живого узла. Проверка коллизии исключает сам узел.
func (r *NodeRepository) RenameNode(ctx context.Context, id, ownerID int64, newName string) (*domain.Node, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var node domain.Node
	err = tx.GetContext(ctx, &node, `
        SELECT * FROM nodes
        WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
        FOR UPDATE`, id, ownerID)
	if err == sql.ErrNoRows {
		return nil, &domain.InvalidFolderError{FolderID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}

	if err := lockScope(ctx, tx, ownerID, node.ParentID); err != nil {
		return nil, err
	}

	existing, err := r.findLiveByNameTx(ctx, tx, ownerID, node.ParentID, newName)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != id {
		return nil, &domain.AlreadyExistsError{
			ExistingID:        existing.ID,
			ExistingName:      existing.Name,
			ExistingCreatedAt: existing.CreatedAt,
		}
	}

	err = tx.QueryRowContext(ctx, `
        UPDATE nodes
        SET name = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2
        RETURNING updated_at`, newName, id).Scan(&node.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, r.siblingConflict(ctx, ownerID, node.ParentID, newName)
		}
		return nil, fmt.Errorf("failed to rename node: %w", err)
	}
	node.Name = newName

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &node, nil
}

// UpdateFileContent обновляет содержимое существующего файла на месте:
// тот же id, тот же created_at, новые storage_path и size_bytes.
// Возвращает прежний storage_path, чтобы вызывающий мог удалить старые
// байты только после фиксации транзакции.
func (r *NodeRepository) UpdateFileContent(ctx context.Context, id, ownerID int64, storagePath string, sizeBytes int64) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var old struct {
		StoragePath *string `db:"storage_path"`
		SizeBytes   int64   `db:"size_bytes"`
	}
	err = tx.GetContext(ctx, &old, `
        SELECT storage_path, size_bytes FROM nodes
        WHERE id = $1 AND owner_id = $2 AND kind = 'FILE' AND deleted_at IS NULL
        FOR UPDATE`, id, ownerID)
	if err == sql.ErrNoRows {
		return "", &domain.InvalidArgumentError{Reason: fmt.Sprintf("file not found: %d", id)}
	}
	if err != nil {
		return "", fmt.Errorf("failed to get file: %w", err)
	}

	// Перепроверяем квоту c учётом замещаемого размера. Блокировка
	// владельца та же, что при вставке: растущая перезапись не должна
	// гнаться с параллельной загрузкой.
	if err := lockOwner(ctx, tx, ownerID); err != nil {
		return "", err
	}
	if err := r.checkQuotaTx(ctx, tx, ownerID, sizeBytes-old.SizeBytes); err != nil {
		return "", err
	}

	_, err = tx.ExecContext(ctx, `
        UPDATE nodes
        SET storage_path = $1, size_bytes = $2, updated_at = CURRENT_TIMESTAMP
        WHERE id = $3`, storagePath, sizeBytes, id)
	if err != nil {
		return "", fmt.Errorf("failed to update file content: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	var oldPath string
	if old.StoragePath != nil {
		oldPath = *old.StoragePath
	}
	return oldPath, nil
}

// FindLiveFile ищет живой файл по id с проверкой владельца
func (r *NodeRepository) FindLiveFile(ctx context.Context, id, ownerID int64) (*domain.Node, error) {
	var node domain.Node
	query := `
        SELECT * FROM nodes
        WHERE id = $1
        AND owner_id = $2
        AND kind = 'FILE'
        AND deleted_at IS NULL`

	err := r.db.GetContext(ctx, &node, query, id, ownerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find file: %w", err)
	}
	return &node, nil
}

// SoftDeleteSubtree помечает папку и всё поддерево удалёнными в одной
// транзакции. Обход делается явным стеком, а не рекурсией: глубина
// вложенности не ограничена и не должна упираться в стек вызовов.
// Узел, вставленный конкурентно после снимка своего родителя, переживает
// удаление (last-writer-wins).
func (r *NodeRepository) SoftDeleteSubtree(ctx context.Context, folderID, ownerID int64) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var root domain.Node
	err = tx.GetContext(ctx, &root, `
        SELECT * FROM nodes
        WHERE id = $1 AND owner_id = $2 AND kind = 'FOLDER' AND deleted_at IS NULL
        FOR UPDATE`, folderID, ownerID)
	if err == sql.ErrNoRows {
		return 0, &domain.InvalidFolderError{FolderID: folderID}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get folder: %w", err)
	}

	// Собираем поддерево: стек папок, у каждой запрашиваем живых детей
	toDelete := []int64{root.ID}
	stack := []int64{root.ID}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var children []struct {
			ID   int64           `db:"id"`
			Kind domain.NodeKind `db:"kind"`
		}
		err = tx.SelectContext(ctx, &children, `
            SELECT id, kind FROM nodes
            WHERE parent_id = $1 AND deleted_at IS NULL`, current)
		if err != nil {
			return 0, fmt.Errorf("failed to get children of folder %d: %w", current, err)
		}

		for _, child := range children {
			toDelete = append(toDelete, child.ID)
			if child.Kind == domain.NodeKindFolder {
				stack = append(stack, child.ID)
			}
		}
	}

	// Один UPDATE на всё поддерево: фиксация атомарна, порядок внутри
	// транзакции снаружи не наблюдаем
	now := time.Now()
	result, err := tx.ExecContext(ctx, `
        UPDATE nodes
        SET deleted_at = $1, updated_at = $1
        WHERE id = ANY($2) AND deleted_at IS NULL`, now, pq.Array(toDelete))
	if err != nil {
		return 0, fmt.Errorf("failed to mark subtree as deleted: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return deleted, nil
}

func (r *NodeRepository) findLiveByNameTx(ctx context.Context, tx *sqlx.Tx, ownerID int64, parentID *int64, name string) (*domain.Node, error) {
	var node domain.Node
	query := `
        SELECT * FROM nodes
        WHERE owner_id = $1
        AND parent_id IS NOT DISTINCT FROM $2
        AND name = $3
        AND deleted_at IS NULL
        LIMIT 1`

	err := tx.GetContext(ctx, &node, query, ownerID, parentID, name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check name collision: %w", err)
	}
	return &node, nil
}

// checkQuotaTx авторитетная проверка квоты внутри транзакции,
// которая фиксирует прирост занятого места
func (r *NodeRepository) checkQuotaTx(ctx context.Context, tx *sqlx.Tx, ownerID, incomingBytes int64) error {
	var quota int64
	if err := tx.GetContext(ctx, &quota,
		`SELECT storage_quota FROM users WHERE id = $1`, ownerID); err != nil {
		return fmt.Errorf("failed to get user quota: %w", err)
	}

	var used int64
	err := tx.GetContext(ctx, &used, `
        SELECT COALESCE(SUM(size_bytes), 0) FROM nodes
        WHERE owner_id = $1 AND kind = 'FILE' AND deleted_at IS NULL`, ownerID)
	if err != nil {
		return fmt.Errorf("failed to sum file sizes: %w", err)
	}

	remaining := quota - used
	if remaining < 0 {
		// Квота могла быть понижена после загрузок: запас считаем нулевым
		remaining = 0
	}
	if incomingBytes > remaining {
		return &domain.QuotaExceededError{
			RequiredBytes:  incomingBytes,
			RemainingBytes: remaining,
		}
	}
	return nil
}

// siblingConflict строит AlreadyExists по текущему состоянию после
// срабатывания уникального индекса
func (r *NodeRepository) siblingConflict(ctx context.Context, ownerID int64, parentID *int64, name string) error {
	existing, err := r.FindLiveByName(ctx, ownerID, parentID, name)
	if err != nil || existing == nil {
		return &domain.AlreadyExistsError{ExistingName: name}
	}
	return &domain.AlreadyExistsError{
		ExistingID:        existing.ID,
		ExistingName:      existing.Name,
		ExistingCreatedAt: existing.CreatedAt,
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
