package postgres

import (
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/invoice-management/internal/core/datamodel/idempotency"
	paymentpkg "github.com/frahmantamala/invoice-management/internal/payment"
)

// IdempotencyStore shares processed-notification keys across instances via
// postgres with a TTL. It is best-effort by contract: storage errors are
// logged and swallowed, because the conditional status update already
// guarantees correctness without this store.
type IdempotencyStore struct {
	db     *gorm.DB
	ttl    time.Duration
	logger *slog.Logger
}

func NewIdempotencyStore(db *gorm.DB, ttl time.Duration, logger *slog.Logger) paymentpkg.IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{db: db, ttl: ttl, logger: logger}
}

func (s *IdempotencyStore) Seen(key string) bool {
	var count int64
	err := s.db.Model(&idempotency.Key{}).
		Where("key = ? AND expires_at > ?", key, time.Now()).
		Count(&count).Error
	if err != nil {
		s.logger.Error("idempotency lookup failed", "error", err, "key", key)
		return false
	}
	return count > 0
}

func (s *IdempotencyStore) Record(key string) {
	entry := &idempotency.Key{
		Key:       key,
		ExpiresAt: time.Now().Add(s.ttl),
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(entry).Error
	if err != nil {
		s.logger.Error("failed to record idempotency key", "error", err, "key", key)
		return
	}

	// expired rows pile up over time; sweep opportunistically
	if err := s.db.Where("expires_at < ?", time.Now()).Delete(&idempotency.Key{}).Error; err != nil {
		s.logger.Debug("idempotency sweep failed", "error", err)
	}
}
