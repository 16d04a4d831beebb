package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aicser/aicser-studio/app/repository"
	"github.com/aicser/aicser-studio/internal/pkg/session"
	"github.com/aicser/aicser-studio/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request.
// This centralizes user session handling and eliminates code duplication.
func UserContextMiddleware(c *fiber.Ctx) error {
	// Avoid interfering with Goth/Fiber session handling on OAuth routes.
	// Goth uses its own fiber session store and relies on per-request locals.
	// We skip our app session on /auth/* to prevent cross-store collisions.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}
	// Get session with error handling
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
			IsLoggedIn: false,
			IsAdmin:    false,
		})
		return c.Next()
	}

	// Get user ID from session
	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		// Anonymous user - no session data
		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
			IsLoggedIn: false,
			IsAdmin:    false,
		})
		return c.Next()
	}

	// User is logged in - get additional data
	username := session.GetSessionValue(c, usercontext.KeyUsername)
	isAdmin := sess.Get(usercontext.KeyIsAdmin)

	// Determine subscription tier with session-first strategy
	tier := session.GetSessionValue(c, usercontext.KeyUserTier)
	if tier == "" {
		tier = "free"
		repo := repository.GetGlobalFactory().GetUserRepository()
		if user, err := repo.GetByID(userID.(uint)); err == nil && user.SubscriptionTier != "" {
			tier = user.SubscriptionTier
		}
		// cache in session for subsequent requests
		_ = session.SetSessionValue(c, usercontext.KeyUserTier, tier)
	}

	c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
		UserID:     userID.(uint),
		Username:   username,
		IsLoggedIn: true,
		IsAdmin:    isAdmin != nil && isAdmin.(bool),
		Tier:       tier,
	})

	return c.Next()
}
