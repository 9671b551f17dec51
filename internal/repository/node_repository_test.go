package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeLockKeyPerParent(t *testing.T) {
	parentA := int64(10)
	parentB := int64(20)

	// Разные папки одного владельца сериализуются независимо.
	assert.NotEqual(t, scopeLockKey(1, &parentA), scopeLockKey(1, &parentB))
	// Одна и та же папка даёт стабильный ключ.
	assert.Equal(t, scopeLockKey(1, &parentA), scopeLockKey(1, &parentA))
	// Корень и папка с id 0 не различимы по ключу, это допустимо:
	// лишняя сериализация безопасна.
	zero := int64(0)
	assert.Equal(t, scopeLockKey(1, nil), scopeLockKey(1, &zero))
	// Разные владельцы не конкурируют за корень друг друга.
	assert.NotEqual(t, scopeLockKey(1, nil), scopeLockKey(2, nil))
}

func TestOwnerLockKeyIndependentOfParent(t *testing.T) {
	// Ключ квоты зависит только от владельца: загрузки в разные папки
	// обязаны конкурировать за одну блокировку, иначе обе пройдут
	// проверку суммы размеров и вместе превысят квоту.
	assert.Equal(t, ownerLockKey(1), ownerLockKey(1))
	assert.NotEqual(t, ownerLockKey(1), ownerLockKey(2))

	parentA := int64(10)
	parentB := int64(20)
	// Scope-ключи тех же транзакций различаются, общим остаётся
	// только ключ владельца.
	assert.NotEqual(t, scopeLockKey(1, &parentA), scopeLockKey(1, &parentB))
	assert.NotEqual(t, ownerLockKey(1), scopeLockKey(1, &parentA))
	assert.NotEqual(t, ownerLockKey(1), scopeLockKey(1, nil))
}
