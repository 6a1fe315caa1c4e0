package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vellumcms/vellum-backend/internal/platform/logger"
	"github.com/vellumcms/vellum-backend/internal/types"
)

type LiveRepo interface {
	Get(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.LiveRecord, error)
	ListByType(ctx context.Context, tx *gorm.DB, recordType string) ([]*types.LiveRecord, error)
	Exists(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
	Count(ctx context.Context, tx *gorm.DB, recordType string) (int64, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *types.LiveRecord) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type liveRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLiveRepo(db *gorm.DB, baseLog *logger.Logger) LiveRepo {
	return &liveRepo{db: db, log: baseLog.With("repo", "LiveRepo")}
}

func (lr *liveRepo) Get(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.LiveRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}

	var row types.LiveRecord
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (lr *liveRepo) ListByType(ctx context.Context, tx *gorm.DB, recordType string) ([]*types.LiveRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}

	var rows []*types.LiveRecord
	if err := transaction.WithContext(ctx).
		Where("type = ?", recordType).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (lr *liveRepo) Exists(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.LiveRecord{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (lr *liveRepo) Count(ctx context.Context, tx *gorm.DB, recordType string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.LiveRecord{}).
		Where("type = ?", recordType).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Upsert overwrites any prior published snapshot for the record.
func (lr *liveRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.LiveRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"type", "fields"}),
		}).
		Create(row).Error
}

func (lr *liveRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.LiveRecord{}).Error
}
