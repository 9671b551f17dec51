package service

import (
	"context"
	"fmt"
	"log"

	"minidrive/internal/domain"
)

// QuotaService считает занятое место и проверяет лимит хранилища.
type QuotaService struct {
	nodes NodeStore
	users UserStore
	cache UsedBytesCache // может быть nil, тогда каждый запрос идёт в БД
}

func NewQuotaService(nodes NodeStore, users UserStore, cache UsedBytesCache) *QuotaService {
	return &QuotaService{
		nodes: nodes,
		users: users,
		cache: cache,
	}
}

// UsedBytes возвращает суммарный размер живых файлов пользователя.
// Сначала смотрим в кэш, при промахе считаем по БД и кладём результат обратно.
func (s *QuotaService) UsedBytes(ctx context.Context, ownerID int64) (int64, error) {
	if s.cache != nil {
		used, ok, err := s.cache.GetUsedBytes(ctx, ownerID)
		if err != nil {
			log.Printf("[QuotaService] Ошибка чтения кэша для пользователя %d: %v", ownerID, err)
		} else if ok {
			return used, nil
		}
	}

	used, err := s.nodes.SumLiveFileSize(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum used bytes: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetUsedBytes(ctx, ownerID, used); err != nil {
			log.Printf("[QuotaService] Ошибка записи кэша для пользователя %d: %v", ownerID, err)
		}
	}
	return used, nil
}

// CheckQuota проверяет, уместится ли incomingBytes в остаток квоты.
// Остаток меньше нуля трактуем как ноль: квота могла быть уменьшена
// администратором уже после загрузки файлов.
func (s *QuotaService) CheckQuota(ctx context.Context, ownerID, incomingBytes int64) error {
	user, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to get user %d: %w", ownerID, err)
	}
	if user == nil {
		return fmt.Errorf("user %d not found", ownerID)
	}

	used, err := s.UsedBytes(ctx, ownerID)
	if err != nil {
		return err
	}

	remaining := user.StorageQuota - used
	if remaining < 0 {
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

// GetQuotaInfo собирает сводку по квоте для выдачи пользователю.
func (s *QuotaService) GetQuotaInfo(ctx context.Context, ownerID int64) (*domain.QuotaInfo, error) {
	user, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", ownerID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found", ownerID)
	}

	used, err := s.UsedBytes(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	available := user.StorageQuota - used
	if available < 0 {
		available = 0
	}

	info := &domain.QuotaInfo{
		TotalSpace:     user.StorageQuota,
		UsedSpace:      used,
		AvailableSpace: available,
	}
	if user.StorageQuota > 0 {
		info.UsagePercent = float64(used) / float64(user.StorageQuota) * 100
	}
	return info, nil
}

// InvalidateUsed сбрасывает кэш занятого места после изменения файлов.
func (s *QuotaService) InvalidateUsed(ctx context.Context, ownerID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ownerID); err != nil {
		log.Printf("[QuotaService] Ошибка сброса кэша для пользователя %d: %v", ownerID, err)
	}
}
