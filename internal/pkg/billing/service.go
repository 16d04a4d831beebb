package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/aicser/aicser-studio/app/models"
	"gorm.io/gorm"
)

// Service synchronizes provider billing state into local profiles and
// initiates checkout/portal sessions. Clients are injected explicitly so
// nothing billing-related lives in process-wide mutable state.
type Service struct {
	repo     Repository
	provider Provider
}

// NewService creates a billing service from injected collaborators.
func NewService(repo Repository, provider Provider) *Service {
	return &Service{repo: repo, provider: provider}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, provider Provider) *Service {
	return NewService(NewRepository(db), provider)
}

// VerifyAndParse checks the webhook signature and decodes the payload into
// an Event. It performs no mutation.
func (s *Service) VerifyAndParse(payload []byte, sigHeader string) (Event, string, error) {
	evt, err := s.provider.ConstructEvent(payload, sigHeader)
	if err != nil {
		return nil, "", err
	}
	parsed, err := ParseEvent(evt)
	if err != nil {
		return nil, evt.ID, err
	}
	return parsed, evt.ID, nil
}

// RecordWebhookEvent persists webhook payloads idempotently. The returned
// bool is false when the event id was already recorded.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
