package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vellumcms/vellum-backend/internal/platform/logger"
	"github.com/vellumcms/vellum-backend/internal/types"
)

type DraftRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.DraftRecord) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.DraftRecord, error)
	ListByType(ctx context.Context, tx *gorm.DB, recordType string) ([]*types.DraftRecord, error)
	GetSingleton(ctx context.Context, tx *gorm.DB, recordType string) (*types.DraftRecord, error)
	Exists(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
	Count(ctx context.Context, tx *gorm.DB, recordType string) (int64, error)
	CommitVersion(ctx context.Context, tx *gorm.DB, row *types.DraftRecord, expectedVersion int) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	FieldValueExists(ctx context.Context, tx *gorm.DB, recordType, field string, value interface{}, excludeID uuid.UUID) (bool, error)
}

type draftRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDraftRepo(db *gorm.DB, baseLog *logger.Logger) DraftRepo {
	return &draftRepo{db: db, log: baseLog.With("repo", "DraftRepo")}
}

func (dr *draftRepo) Create(ctx context.Context, tx *gorm.DB, row *types.DraftRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (dr *draftRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.DraftRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	var row types.DraftRecord
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

func (dr *draftRepo) ListByType(ctx context.Context, tx *gorm.DB, recordType string) ([]*types.DraftRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	var rows []*types.DraftRecord
	if err := transaction.WithContext(ctx).
		Where("type = ?", recordType).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetSingleton resolves an item type to its single row.
func (dr *draftRepo) GetSingleton(ctx context.Context, tx *gorm.DB, recordType string) (*types.DraftRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	var row types.DraftRecord
	err := transaction.WithContext(ctx).
		Where("type = ?", recordType).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (dr *draftRepo) Exists(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.DraftRecord{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (dr *draftRepo) Count(ctx context.Context, tx *gorm.DB, recordType string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.DraftRecord{}).
		Where("type = ?", recordType).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CommitVersion writes the next version of a record conditionally on the
// version the caller read. It reports false, without error, when another
// writer got there first.
func (dr *draftRepo) CommitVersion(ctx context.Context, tx *gorm.DB, row *types.DraftRecord, expectedVersion int) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.DraftRecord{}).
		Where("id = ? AND version = ?", row.ID, expectedVersion).
		Updates(map[string]interface{}{
			"fields":     row.Fields,
			"version":    row.Version,
			"updated_by": row.UpdatedBy,
			"updated_at": row.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (dr *draftRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.DraftRecord{}).Error
}

// FieldValueExists probes for another record of the same type carrying the
// given value in a payload field. Backs uniqueness validation.
func (dr *draftRepo) FieldValueExists(ctx context.Context, tx *gorm.DB, recordType, field string, value interface{}, excludeID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	query := transaction.WithContext(ctx).
		Model(&types.DraftRecord{}).
		Where("type = ?", recordType).
		Where(datatypes.JSONQuery("fields").Equals(value, field))
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
