package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"positionkeeper/src/database"
	"positionkeeper/src/model"
)

// StateRepository handles read/write operations for the persisted key/value
// state rows backing the database store.
type StateRepository struct {
	db *gorm.DB
}

// NewStateRepository creates a new repository instance using the main database.
func NewStateRepository() *StateRepository {
	logger.WithField("component", "StateRepository").
		Info("Creating new StateRepository with MainDB")

	return &StateRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *StateRepository) WithDB(db *gorm.DB) *StateRepository {
	return &StateRepository{db: db}
}

// LoadBucket fetches every record of one logical store.
func (r *StateRepository) LoadBucket(ctx context.Context, bucket string) ([]model.StateRecord, error) {
	logger.WithFields(map[string]interface{}{
		"repo":   "StateRepository",
		"op":     "LoadBucket",
		"bucket": bucket,
	}).Debug("Loading state bucket")

	var records []model.StateRecord

	err := r.db.WithContext(ctx).
		Where("bucket = ?", bucket).
		Find(&records).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "StateRepository",
			"op":     "LoadBucket",
			"bucket": bucket,
		}).WithError(err).Error("Failed to load state bucket")

		return nil, err
	}

	return records, nil
}

// Upsert inserts or replaces a record on its (bucket, key) primary key.
func (r *StateRepository) Upsert(ctx context.Context, rec *model.StateRecord) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bucket"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(rec).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "StateRepository",
			"op":     "Upsert",
			"bucket": rec.Bucket,
			"key":    rec.Key,
		}).WithError(err).Error("Failed to upsert state record")

		return err
	}

	return nil
}

// Delete removes a record. Deleting an absent record is not an error.
func (r *StateRepository) Delete(ctx context.Context, bucket, key string) error {
	err := r.db.WithContext(ctx).
		Where("bucket = ? AND key = ?", bucket, key).
		Delete(&model.StateRecord{}).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "StateRepository",
			"op":     "Delete",
			"bucket": bucket,
			"key":    key,
		}).WithError(err).Error("Failed to delete state record")

		return err
	}

	return nil
}
