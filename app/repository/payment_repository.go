package repository

import (
	"time"

	"github.com/aicser/aicser-studio/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create appends a payment to the ledger. Inserts with an already recorded
// payment intent id are silently ignored so webhook replays stay no-ops.
func (r *paymentRepository) Create(payment *models.Payment) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_payment_intent_id"}},
		DoNothing: true,
	}).Create(payment).Error
}

// GetByUser retrieves a paginated list of payments for one user
func (r *paymentRepository) GetByUser(userID uint, offset, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&payments).Error
	return payments, err
}

// List retrieves a paginated list of all payments
func (r *paymentRepository) List(offset, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&payments).Error
	return payments, err
}

// Count returns the total number of payments
func (r *paymentRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).Count(&count).Error
	return count, err
}

// SumAmountSince sums payment amounts in cents for a status since a point in time
func (r *paymentRepository) SumAmountSince(status string, since time.Time) (int64, error) {
	var total int64
	err := r.db.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("status = ? AND created_at >= ?", status, since).
		Scan(&total).Error
	return total, err
}
