package models

import "time"

const (
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
)

// Payment is an append-only ledger row. One row per successfully processed
// checkout or recurring invoice event; never updated or deleted by the app.
// The unique index on the payment intent id makes replayed provider events
// a no-op instead of double-recording revenue.
type Payment struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	UserID                uint      `gorm:"not null;index" json:"user_id"`
	StripePaymentIntentID string    `gorm:"type:varchar(191);default:null;uniqueIndex" json:"stripe_payment_intent_id"`
	AmountCents           int64     `gorm:"not null" json:"amount_cents"`
	Currency              string    `gorm:"type:varchar(10);not null;default:'usd'" json:"currency"`
	Status                string    `gorm:"type:varchar(32);not null;index" json:"status"`
	SubscriptionTier      string    `gorm:"type:varchar(20);not null" json:"subscription_tier"`
	CreatedAt             time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
