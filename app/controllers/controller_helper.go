package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aicser/aicser-studio/app/models"
	"github.com/aicser/aicser-studio/internal/pkg/session"
	"github.com/aicser/aicser-studio/internal/pkg/usercontext"
)

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// parsePagination reads page/limit query params with sane bounds.
func parsePagination(c *fiber.Ctx) (offset, limit int) {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return (page - 1) * limit, limit
}

// syncSessionTier refreshes the cached session tier when the subscription
// record changed outside the request cycle, e.g. through a billing webhook.
func syncSessionTier(c *fiber.Ctx, tier string) {
	if usercontext.GetUserContext(c).Tier != tier {
		_ = session.SetSessionValue(c, usercontext.KeyUserTier, tier)
	}
}

// createUserSession writes the logged-in session for a user.
func createUserSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyIsAdmin, user.Role == models.ROLE_ADMIN)
	sess.Set(usercontext.KeyUserTier, user.SubscriptionTier)
	return sess.Save()
}
