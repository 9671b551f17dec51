package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"minidrive/internal/domain"
)

// fakeNodeStore хранит потокобезопасное in-memory дерево узлов для тестов.
type fakeNodeStore struct {
	mu          sync.Mutex
	nodes       map[int64]*domain.Node
	nextID      int64
	createErr   error // если задана, CreateNode возвращает её
	renameCalls int
}

func newFakeNodeStore() *fakeNodeStore {
	return &fakeNodeStore{nodes: make(map[int64]*domain.Node)}
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (f *fakeNodeStore) findLiveByName(ownerID int64, parentID *int64, name string) *domain.Node {
	for _, n := range f.nodes {
		if n.OwnerID == ownerID && n.DeletedAt == nil && n.Name == name && sameParent(n.ParentID, parentID) {
			return n
		}
	}
	return nil
}

func (f *fakeNodeStore) FindLiveByName(_ context.Context, ownerID int64, parentID *int64, name string) (*domain.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := f.findLiveByName(ownerID, parentID, name); n != nil {
		copied := *n
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeNodeStore) FindLiveFolder(_ context.Context, id, ownerID int64) (*domain.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[id]
	if !ok || n.OwnerID != ownerID || n.DeletedAt != nil || n.Kind != domain.NodeKindFolder {
		return nil, nil
	}
	copied := *n
	return &copied, nil
}

func (f *fakeNodeStore) FindLiveFile(_ context.Context, id, ownerID int64) (*domain.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[id]
	if !ok || n.OwnerID != ownerID || n.DeletedAt != nil || n.Kind != domain.NodeKindFile {
		return nil, nil
	}
	copied := *n
	return &copied, nil
}

func (f *fakeNodeStore) ListChildren(_ context.Context, ownerID int64, parentID *int64, page, pageSize int) (*domain.NodePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var children []domain.Node
	for _, n := range f.nodes {
		if n.OwnerID == ownerID && n.DeletedAt == nil && sameParent(n.ParentID, parentID) {
			children = append(children, *n)
		}
	}
	// Папки раньше файлов, новые раньше старых.
	sort.Slice(children, func(i, j int) bool {
		if children[i].Kind != children[j].Kind {
			return children[i].Kind == domain.NodeKindFolder
		}
		if !children[i].CreatedAt.Equal(children[j].CreatedAt) {
			return children[i].CreatedAt.After(children[j].CreatedAt)
		}
		return children[i].ID > children[j].ID
	})

	total := int64(len(children))
	start := page * pageSize
	if start > len(children) {
		start = len(children)
	}
	end := start + pageSize
	if end > len(children) {
		end = len(children)
	}

	return &domain.NodePage{
		Items:    children[start:end],
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (f *fakeNodeStore) SumLiveFileSize(_ context.Context, ownerID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, n := range f.nodes {
		if n.OwnerID == ownerID && n.DeletedAt == nil && n.Kind == domain.NodeKindFile {
			sum += n.SizeBytes
		}
	}
	return sum, nil
}

func (f *fakeNodeStore) CreateNode(_ context.Context, node *domain.Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	if existing := f.findLiveByName(node.OwnerID, node.ParentID, node.Name); existing != nil {
		return &domain.AlreadyExistsError{
			ExistingID:        existing.ID,
			ExistingName:      existing.Name,
			ExistingCreatedAt: existing.CreatedAt,
		}
	}

	f.nextID++
	node.ID = f.nextID
	node.CreatedAt = time.Now()
	node.UpdatedAt = node.CreatedAt
	copied := *node
	f.nodes[node.ID] = &copied
	return nil
}

func (f *fakeNodeStore) RenameNode(_ context.Context, id, ownerID int64, newName string) (*domain.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.renameCalls++
	n, ok := f.nodes[id]
	if !ok || n.OwnerID != ownerID || n.DeletedAt != nil {
		return nil, &domain.InvalidFolderError{FolderID: id}
	}
	if existing := f.findLiveByName(ownerID, n.ParentID, newName); existing != nil && existing.ID != id {
		return nil, &domain.AlreadyExistsError{
			ExistingID:        existing.ID,
			ExistingName:      existing.Name,
			ExistingCreatedAt: existing.CreatedAt,
		}
	}

	n.Name = newName
	n.UpdatedAt = time.Now()
	copied := *n
	return &copied, nil
}

func (f *fakeNodeStore) UpdateFileContent(_ context.Context, id, ownerID int64, storagePath string, sizeBytes int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.nodes[id]
	if !ok || n.OwnerID != ownerID || n.DeletedAt != nil || n.Kind != domain.NodeKindFile {
		return "", &domain.InvalidArgumentError{Reason: "file not found"}
	}

	var oldPath string
	if n.StoragePath != nil {
		oldPath = *n.StoragePath
	}
	n.StoragePath = &storagePath
	n.SizeBytes = sizeBytes
	n.UpdatedAt = time.Now()
	return oldPath, nil
}

func (f *fakeNodeStore) SoftDeleteSubtree(_ context.Context, folderID, ownerID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	root, ok := f.nodes[folderID]
	if !ok || root.OwnerID != ownerID || root.DeletedAt != nil || root.Kind != domain.NodeKindFolder {
		return 0, &domain.InvalidFolderError{FolderID: folderID}
	}

	now := time.Now()
	var count int64
	stack := []int64{folderID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := f.nodes[id]
		if n.DeletedAt != nil {
			continue
		}
		n.DeletedAt = &now
		count++

		for childID, child := range f.nodes {
			if child.ParentID != nil && *child.ParentID == id && child.DeletedAt == nil {
				stack = append(stack, childID)
			}
		}
	}
	return count, nil
}

// fakeUserStore хранит пользователей в памяти.
type fakeUserStore struct {
	mu     sync.Mutex
	users  map[int64]*domain.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*domain.User)}
}

func (f *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

// fakeCache хранит кэш занятого места в памяти.
type fakeCache struct {
	mu     sync.Mutex
	values map[int64]int64
	hits   int
	misses int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[int64]int64)}
}

func (f *fakeCache) GetUsedBytes(_ context.Context, ownerID int64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.values[ownerID]; ok {
		f.hits++
		return v, true, nil
	}
	f.misses++
	return 0, false, nil
}

func (f *fakeCache) SetUsedBytes(_ context.Context, ownerID, used int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[ownerID] = used
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, ownerID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, ownerID)
	return nil
}
