package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/aicser/aicser-studio/app/models"
	"github.com/aicser/aicser-studio/app/repository"
)

// HandleOAuthBegin redirects to the provider's consent page
func HandleOAuthBegin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow and logs the user in
func HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "oauth_failed", fmt.Sprintf("OAuth failed: %v", err))
	}

	repo := repository.GetGlobalFactory().GetUserRepository()

	email := u.Email
	if email == "" {
		// Ensure unique, non-empty email to satisfy unique index semantics in MySQL
		email = fmt.Sprintf("%s_%s@%s.oauth.local", u.Provider, u.UserID, u.Provider)
	}

	appUser, err := repo.GetByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Password is a random placeholder since validation requires one; it
		// is never used for login.
		placeholder := fmt.Sprintf("oauth_%d", time.Now().UnixNano())
		hash, _ := models.HashPassword(placeholder)
		appUser = &models.User{
			Name:               firstNonEmpty(u.Name, u.NickName, u.Email, "User"),
			Email:              email,
			Password:           hash,
			Role:               models.ROLE_USER,
			Status:             models.STATUS_ACTIVE,
			AvatarURL:          u.AvatarURL,
			SubscriptionTier:   models.TierFree,
			SubscriptionStatus: models.SubscriptionInactive,
		}
		if err := repo.Create(appUser); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create account")
		}
	} else if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load account")
	}

	if err := createUserSession(c, appUser); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create session")
	}

	now := time.Now()
	_ = repo.UpdateFields(appUser.ID, map[string]interface{}{"last_login_at": &now})

	return c.Redirect("/", fiber.StatusSeeOther)
}

// HandleOAuthLogout clears provider session state and the app session
func HandleOAuthLogout(c *fiber.Ctx) error {
	_ = gothfiber.Logout(c)
	return HandleAuthLogout(c)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
