package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/CourseCheckout/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Upsert inserts the transaction or refreshes the gateway-owned columns of the
// row with the same external id. tx.ID is populated afterwards.
func (r *transactionRepository) Upsert(ctx context.Context, tx *models.Transaction) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"reference",
			"email",
			"amount_in_cents",
			"currency",
			"status",
			"status_message",
			"payment_method_type",
			"updated_at",
		}),
	}).Create(tx).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.WithContext(ctx).Where("external_id = ?", tx.ExternalID).First(tx).Error
}

func (r *transactionRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// List returns transactions newest first, optionally filtered by status.
func (r *transactionRepository) List(ctx context.Context, status string, offset, limit int) ([]models.Transaction, error) {
	offset, limit = clampLimit(offset, limit)
	q := r.db.WithContext(ctx).Order("id DESC").Offset(offset).Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var txs []models.Transaction
	err := q.Find(&txs).Error
	return txs, err
}

// ListByStatusBefore returns the oldest transactions in status last touched
// before the given time. Used by reconciliation.
func (r *transactionRepository) ListByStatusBefore(ctx context.Context, status string, before time.Time, limit int) ([]models.Transaction, error) {
	_, limit = clampLimit(0, limit)
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", status, before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (r *transactionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).Count(&count).Error
	return count, err
}
