package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// quotaCacheTTL время жизни закэшированного занятого места
const quotaCacheTTL = 5 * time.Minute

// QuotaCache кэширует занятое пользователем место в redis.
// Кэш обслуживает только быструю предварительную проверку и сводку
// квоты; авторитетная проверка всегда идёт в транзакции вставки.
type QuotaCache struct {
	client *redis.Client
}

func NewQuotaCache(client *redis.Client) *QuotaCache {
	return &QuotaCache{client: client}
}

func usedBytesKey(ownerID int64) string {
	return fmt.Sprintf("quota:used:%d", ownerID)
}

// GetUsedBytes возвращает (значение, true) при попадании в кэш.
// Промах кэша не ошибка.
func (c *QuotaCache) GetUsedBytes(ctx context.Context, ownerID int64) (int64, bool, error) {
	val, err := c.client.Get(ctx, usedBytesKey(ownerID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get used bytes from cache: %w", err)
	}

	used, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse cached used bytes: %w", err)
	}
	return used, true, nil
}

func (c *QuotaCache) SetUsedBytes(ctx context.Context, ownerID, used int64) error {
	err := c.client.Set(ctx, usedBytesKey(ownerID), strconv.FormatInt(used, 10), quotaCacheTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache used bytes: %w", err)
	}
	return nil
}

// Invalidate сбрасывает кэш после любой мутации, меняющей занятое место
func (c *QuotaCache) Invalidate(ctx context.Context, ownerID int64) error {
	if err := c.client.Del(ctx, usedBytesKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate quota cache: %w", err)
	}
	return nil
}
