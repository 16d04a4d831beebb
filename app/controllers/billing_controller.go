package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/aicser/aicser-studio/app/models"
	"github.com/aicser/aicser-studio/internal/pkg/billing"
	"github.com/aicser/aicser-studio/internal/pkg/env"
	"github.com/aicser/aicser-studio/internal/pkg/products"
	"github.com/aicser/aicser-studio/internal/pkg/usercontext"
)

// The billing service is constructed once at startup and injected here so
// handlers never reach for process-wide SDK state.
var billingSvc *billing.Service

// SetupBilling injects the billing service used by the handlers below.
func SetupBilling(svc *billing.Service) {
	billingSvc = svc
}

type checkoutRequest struct {
	Tier string `json:"tier"`
}

// HandleGetProducts returns the static subscription catalog.
func HandleGetProducts(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"products": products.All()})
}

// HandleCreateCheckoutSession starts a hosted checkout for the requested tier.
func HandleCreateCheckoutSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body must be JSON")
	}

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"), "/")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	url, err := billingSvc.CreateCheckoutSession(ctx, userCtx.UserID, req.Tier,
		base+"/billing/success?session_id={CHECKOUT_SESSION_ID}",
		base+"/pricing",
	)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInvalidTier):
			return jsonError(c, fiber.StatusBadRequest, "invalid_tier", "The requested tier cannot be purchased")
		case errors.Is(err, billing.ErrProfileNotFound):
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		default:
			fiberlog.Errorf("checkout session for user %d failed: %v", userCtx.UserID, err)
			return jsonError(c, fiber.StatusInternalServerError, "checkout_failed", "Failed to create checkout session")
		}
	}

	return c.JSON(fiber.Map{"url": url})
}

// HandleCreatePortalSession starts a self-service billing portal session.
func HandleCreatePortalSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"), "/")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	url, err := billingSvc.CreatePortalSession(ctx, userCtx.UserID, base+"/account")
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrNoBillingCustomer):
			return jsonError(c, fiber.StatusNotFound, "no_billing_customer", "No active billing profile. Start an upgrade first.")
		case errors.Is(err, billing.ErrProfileNotFound):
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		default:
			fiberlog.Errorf("portal session for user %d failed: %v", userCtx.UserID, err)
			return jsonError(c, fiber.StatusInternalServerError, "portal_failed", "Failed to create portal session")
		}
	}

	return c.JSON(fiber.Map{"url": url})
}

// HandleBillingWebhook receives signed provider events. The signature gate
// runs before any persistence; recognized events are applied idempotently
// and unknown event kinds are acknowledged without effect so the provider
// never retries them.
func HandleBillingWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	evt, eventID, parseErr := billingSvc.VerifyAndParse(rawBody, signature)
	if parseErr != nil && eventID == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "Webhook signature verification failed")
	}

	eventType := ""
	if evt != nil {
		eventType = evt.Kind()
	}
	created, stored, err := billingSvc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: eventID,
		EventType:       eventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "webhook_persist_failed", "Failed to persist event")
	}
	if !created {
		if stored.ProcessedAt != nil && stored.ProcessingError == "" {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
		}
		// Redelivery of an event whose processing failed or never finished.
		// Falling through lets a provider retry heal a transient failure.
	}
	if parseErr != nil {
		// Verified envelope with a payload we could not decode.
		_ = billingSvc.MarkWebhookProcessed(ctx, stored.ID, parseErr)
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "Failed to parse event payload")
	}

	if _, ok := evt.(billing.Unhandled); ok {
		_ = billingSvc.MarkWebhookProcessed(ctx, stored.ID, nil)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	applyErr := billingSvc.Apply(ctx, evt)
	_ = billingSvc.MarkWebhookProcessed(ctx, stored.ID, applyErr)
	if applyErr != nil {
		return jsonError(c, fiber.StatusInternalServerError, "event_apply_failed", "Failed to apply event")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
