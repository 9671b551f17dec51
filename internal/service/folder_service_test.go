package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minidrive/internal/domain"
)

func newTestFolderService() (*FolderService, *fakeNodeStore) {
	nodes := newFakeNodeStore()
	return NewFolderService(nodes), nodes
}

func TestCreateFolder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestFolderService()

	root, err := svc.CreateFolder(ctx, "Documents", nil, 1)
	require.NoError(t, err)
	assert.NotZero(t, root.ID)
	assert.Equal(t, "Documents", root.Name)
	assert.Equal(t, domain.NodeKindFolder, root.Kind)
	assert.Nil(t, root.ParentID)

	child, err := svc.CreateFolder(ctx, "Reports", &root.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, root.ID, *child.ParentID)
}

func TestCreateFolderDuplicateName(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestFolderService()

	first, err := svc.CreateFolder(ctx, "Photos", nil, 1)
	require.NoError(t, err)

	_, err = svc.CreateFolder(ctx, "Photos", nil, 1)
	var dup *domain.AlreadyExistsError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.ID, dup.ExistingID)
	assert.Equal(t, "Photos", dup.ExistingName)
	assert.False(t, dup.ExistingCreatedAt.IsZero())
}

func TestCreateFolderSameNameDifferentParents(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestFolderService()

	a, err := svc.CreateFolder(ctx, "a", nil, 1)
	require.NoError(t, err)
	b, err := svc.CreateFolder(ctx, "b", nil, 1)
	require.NoError(t, err)

	// Одинаковое имя в разных папках конфликтом не является.
	_, err = svc.CreateFolder(ctx, "shared", &a.ID, 1)
	require.NoError(t, err)
	_, err = svc.CreateFolder(ctx, "shared", &b.ID, 1)
	require.NoError(t, err)
}

func TestCreateFolderInvalidParent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestFolderService()

	missing := int64(999)
	_, err := svc.CreateFolder(ctx, "Docs", &missing, 1)
	var invalid *domain.InvalidFolderError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, missing, invalid.FolderID)
}

func TestCreateFolderParentOwnedByAnotherUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestFolderService()

	other, err := svc.CreateFolder(ctx, "private", nil, 2)
	require.NoError(t, err)

	// Чужая папка неотличима от несуществующей.
	_, err = svc.CreateFolder(ctx, "Docs", &other.ID, 1)
	var invalid *domain.InvalidFolderError
	require.ErrorAs(t, err, &invalid)
}

func TestCreateFolderDeletedParent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestFolderService()

	folder, err := svc.CreateFolder(ctx, "old", nil, 1)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteFolder(ctx, folder.ID, 1))

	_, err = svc.CreateFolder(ctx, "sub", &folder.ID, 1)
	var invalid *domain.InvalidFolderError
	require.ErrorAs(t, err, &invalid)
}

func TestCreateFolderInvalidName(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestFolderService()

	cases := []string{"", "   ", strings.Repeat("x", 256), "a/b", "..", "."}
	for _, name := range cases {
		_, err := svc.CreateFolder(ctx, name, nil, 1)
		var invalid *domain.InvalidArgumentError
		assert.ErrorAs(t, err, &invalid, "name %q", name)
	}
}

func TestRenameFolder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestFolderService()

	folder, err := svc.CreateFolder(ctx, "draft", nil, 1)
	require.NoError(t, err)

	renamed, err := svc.RenameFolder(ctx, folder.ID, "final", 1)
	require.NoError(t, err)
	assert.Equal(t, "final", renamed.Name)
	assert.Equal(t, folder.ID, renamed.ID)
}

func TestRenameFolderSameNameIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, nodes := newTestFolderService()

	folder, err := svc.CreateFolder(ctx, "draft", nil, 1)
	require.NoError(t, err)

	renamed, err := svc.RenameFolder(ctx, folder.ID, "draft", 1)
	require.NoError(t, err)
	assert.Equal(t, "draft", renamed.Name)
	// Совпадающее имя не должно доходить до записи в хранилище.
	assert.Zero(t, nodes.renameCalls)
}

func TestRenameFolderNameCollision(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestFolderService()

	_, err := svc.CreateFolder(ctx, "taken", nil, 1)
	require.NoError(t, err)
	folder, err := svc.CreateFolder(ctx, "draft", nil, 1)
	require.NoError(t, err)

	_, err = svc.RenameFolder(ctx, folder.ID, "taken", 1)
	var dup *domain.AlreadyExistsError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "taken", dup.ExistingName)
}

func TestRenameFolderMissing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestFolderService()

	_, err := svc.RenameFolder(ctx, 42, "new", 1)
	var invalid *domain.InvalidFolderError
	require.ErrorAs(t, err, &invalid)
}

func TestDeleteFolderSubtree(t *testing.T) {
	ctx := context.Background()
	svc, nodes := newTestFolderService()

	root, err := svc.CreateFolder(ctx, "root", nil, 1)
	require.NoError(t, err)
	child, err := svc.CreateFolder(ctx, "child", &root.ID, 1)
	require.NoError(t, err)
	grandchild, err := svc.CreateFolder(ctx, "grandchild", &child.ID, 1)
	require.NoError(t, err)
	sibling, err := svc.CreateFolder(ctx, "sibling", nil, 1)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFolder(ctx, root.ID, 1))

	for _, id := range []int64{root.ID, child.ID, grandchild.ID} {
		got, err := nodes.FindLiveFolder(ctx, id, 1)
		require.NoError(t, err)
		assert.Nil(t, got, "folder %d should be soft-deleted", id)
	}

	got, err := nodes.FindLiveFolder(ctx, sibling.ID, 1)
	require.NoError(t, err)
	assert.NotNil(t, got, "sibling must survive")
}

func TestDeleteFolderFreesName(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestFolderService()

	folder, err := svc.CreateFolder(ctx, "temp", nil, 1)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteFolder(ctx, folder.ID, 1))

	// Имя удалённой папки снова свободно.
	_, err = svc.CreateFolder(ctx, "temp", nil, 1)
	require.NoError(t, err)
}

func TestDeleteFolderMissing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestFolderService()

	err := svc.DeleteFolder(ctx, 77, 1)
	var invalid *domain.InvalidFolderError
	require.ErrorAs(t, err, &invalid)
}

func TestListChildren(t *testing.T) {
	ctx := context.Background()
	svc, nodes := newTestFolderService()

	_, err := svc.CreateFolder(ctx, "docs", nil, 1)
	require.NoError(t, err)
	require.NoError(t, nodes.CreateNode(ctx, &domain.Node{
		Name: "note.txt", Kind: domain.NodeKindFile, SizeBytes: 10, OwnerID: 1,
	}))

	page, err := svc.ListChildren(ctx, nil, 1, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Total)
	// Папки идут раньше файлов.
	assert.Equal(t, domain.NodeKindFolder, page.Items[0].Kind)
	assert.Equal(t, domain.NodeKindFile, page.Items[1].Kind)
}

func TestListChildrenPagination(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestFolderService()

	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.CreateFolder(ctx, name, nil, 1)
		require.NoError(t, err)
	}

	page, err := svc.ListChildren(ctx, nil, 1, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 1, page.Page)
}

func TestListChildrenInvalidFolder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestFolderService()

	missing := int64(5)
	_, err := svc.ListChildren(ctx, &missing, 1, 0, 10)
	var invalid *domain.InvalidFolderError
	require.ErrorAs(t, err, &invalid)
}
