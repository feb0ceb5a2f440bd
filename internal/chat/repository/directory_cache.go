package repository

import (
	"context"
	"time"

	"apartment_chat_service/internal/chat/domain"
	"apartment_chat_service/pkg/database"
	"apartment_chat_service/pkg/logger"

	"go.uber.org/zap"
)

const displayNameTTL = 10 * time.Minute

// cachedDirectory display names are read on every typing event, keep them in redis
type cachedDirectory struct {
	DirectoryRepository
	names database.RedisRepository[string]
}

// NewCachedDirectory wrap a directory with a redis display-name cache
func NewCachedDirectory(dir DirectoryRepository, names database.RedisRepository[string]) DirectoryRepository {
	return &cachedDirectory{DirectoryRepository: dir, names: names}
}

func (d *cachedDirectory) DisplayName(ctx context.Context, userID string) string {
	if name, err := d.names.Get(ctx, userID); err == nil {
		return name
	}
	name := d.DirectoryRepository.DisplayName(ctx, userID)
	if name == userID {
		return name
	}
	if err := d.names.Set(ctx, userID, name, displayNameTTL); err != nil {
		logger.Log.Warn("cache display name", zap.String("user_id", userID), zap.Error(err))
	}
	return name
}

// FindResident passthrough, residents move between apartments so it is never cached
func (d *cachedDirectory) FindResident(ctx context.Context, userID string) (*domain.Resident, error) {
	return d.DirectoryRepository.FindResident(ctx, userID)
}
