package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vellumcms/vellum-backend/internal/platform/logger"
	"github.com/vellumcms/vellum-backend/internal/types"
)

type HistoryRepo interface {
	Append(ctx context.Context, tx *gorm.DB, entry *types.HistoryEntry) error
	ListFor(ctx context.Context, tx *gorm.DB, recordID uuid.UUID, minVersion *int) ([]*types.HistoryEntry, error)
	CountFor(ctx context.Context, tx *gorm.DB, recordID uuid.UUID) (int64, error)
}

type historyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHistoryRepo(db *gorm.DB, baseLog *logger.Logger) HistoryRepo {
	return &historyRepo{db: db, log: baseLog.With("repo", "HistoryRepo")}
}

// Append writes one ledger row. Rows are never updated or deleted; there is
// no uniqueness constraint beyond natural insertion order.
func (hr *historyRepo) Append(ctx context.Context, tx *gorm.DB, entry *types.HistoryEntry) error {
	transaction := tx
	if transaction == nil {
		transaction = hr.db
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return transaction.WithContext(ctx).Create(entry).Error
}

// ListFor returns entries sorted by version descending. With a minimum
// version only entries at or above it are returned; with none, only the
// single most recent entry is, which keeps the "one version back" preview
// a single-row read.
func (hr *historyRepo) ListFor(ctx context.Context, tx *gorm.DB, recordID uuid.UUID, minVersion *int) ([]*types.HistoryEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = hr.db
	}

	query := transaction.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("version desc")
	if minVersion != nil {
		query = query.Where("version >= ?", *minVersion)
	} else {
		query = query.Limit(1)
	}

	var entries []*types.HistoryEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (hr *historyRepo) CountFor(ctx context.Context, tx *gorm.DB, recordID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = hr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.HistoryEntry{}).
		Where("record_id = ?", recordID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
