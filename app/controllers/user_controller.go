package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/aicser/aicser-studio/app/models"
	"github.com/aicser/aicser-studio/app/repository"
	"github.com/aicser/aicser-studio/internal/pkg/entitlements"
	"github.com/aicser/aicser-studio/internal/pkg/session"
	"github.com/aicser/aicser-studio/internal/pkg/usercontext"
)

type updateProfileRequest struct {
	Name            string `json:"name"`
	AvatarURL       string `json:"avatar_url"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// HandleGetProfile returns account, subscription and learning stats for the
// authenticated user.
func HandleGetProfile(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	user, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	// Keep the cached session tier in sync with the subscription record so
	// entitlement gates pick up webhook-driven changes without a new login.
	syncSessionTier(c, user.SubscriptionTier)

	completed, err := repos.Progress.CountCompletedByUser(user.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load statistics")
	}

	effectiveTier := entitlements.EffectiveTier(user.SubscriptionTier, user.SubscriptionStatus)

	return c.JSON(fiber.Map{
		"id":            user.ID,
		"username":      user.Name,
		"email":         user.Email,
		"role":          user.Role,
		"status":        user.Status,
		"avatar_url":    user.AvatarURL,
		"created_at":    user.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(user.LastLoginAt),
		"subscription": fiber.Map{
			"tier":           user.SubscriptionTier,
			"status":         user.SubscriptionStatus,
			"effective_tier": string(effectiveTier),
			"start_date":     formatTimePtr(user.SubscriptionStartDate),
			"end_date":       formatTimePtr(user.SubscriptionEndDate),
			"has_billing":    user.HasBillingCustomer(),
		},
		"stats": fiber.Map{
			"completed_courses": completed,
		},
		"entitlements": fiber.Map{
			"can_download_resources": entitlements.CanDownloadResources(string(effectiveTier)),
			"has_mentorship":         entitlements.HasMentorship(string(effectiveTier)),
		},
	})
}

// HandleUpdateProfile updates name, avatar and optionally the password.
func HandleUpdateProfile(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body must be JSON")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if req.AvatarURL != "" {
		user.AvatarURL = req.AvatarURL
	}
	if req.NewPassword != "" {
		if !user.CheckPassword(req.CurrentPassword) {
			return jsonError(c, fiber.StatusForbidden, "wrong_password", "Current password is wrong")
		}
		if err := user.SetPassword(req.NewPassword); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to set password")
		}
	}

	if err := user.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := repo.Update(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save profile")
	}

	// Keep the cached session name in sync.
	_ = session.SetSessionValue(c, usercontext.KeyUsername, user.Name)

	return c.JSON(fiber.Map{"message": "Profile updated"})
}

// HandleGetMyProgress lists the user's per-course progress.
func HandleGetMyProgress(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	entries, err := repos.Progress.GetByUser(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load progress")
	}

	out := make([]fiber.Map, 0, len(entries))
	for _, p := range entries {
		item := fiber.Map{
			"course_id":           p.CourseID,
			"completed":           p.Completed,
			"progress_percentage": p.ProgressPercentage,
			"last_accessed":       formatTimePtr(p.LastAccessed),
		}
		if course, err := repos.Course.GetByID(p.CourseID); err == nil {
			item["course_uuid"] = course.UUID
			item["course_title"] = course.Title
		}
		out = append(out, item)
	}

	return c.JSON(fiber.Map{"progress": out, "count": len(out)})
}

// HandleGetMyPayments lists the user's payment history.
func HandleGetMyPayments(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	offset, limit := parsePagination(c)

	payments, err := repository.GetGlobalRepositories().Payment.GetByUser(userCtx.UserID, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load payments")
	}

	out := make([]fiber.Map, 0, len(payments))
	for _, p := range payments {
		out = append(out, paymentJSON(p))
	}
	return c.JSON(fiber.Map{"payments": out, "count": len(out)})
}

func paymentJSON(p models.Payment) fiber.Map {
	return fiber.Map{
		"id":                p.ID,
		"user_id":           p.UserID,
		"reference":         p.StripePaymentIntentID,
		"amount_cents":      p.AmountCents,
		"currency":          p.Currency,
		"status":            p.Status,
		"subscription_tier": p.SubscriptionTier,
		"created_at":        p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
