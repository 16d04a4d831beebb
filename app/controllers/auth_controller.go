package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/aicser/aicser-studio/app/models"
	"github.com/aicser/aicser-studio/app/repository"
	"github.com/aicser/aicser-studio/internal/pkg/env"
	"github.com/aicser/aicser-studio/internal/pkg/mail"
	"github.com/aicser/aicser-studio/internal/pkg/session"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleAuthRegister creates an inactive account and mails an activation link.
func HandleAuthRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body must be JSON")
	}

	user, err := models.CreateUser(req.Username, req.Email, req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := user.GenerateActivationToken(); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create activation token")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := repo.GetByEmail(user.Email); err == nil {
		return jsonError(c, fiber.StatusConflict, "email_taken", "An account with this email already exists")
	}
	if err := repo.Create(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create account")
	}

	go sendActivationMail(user.Email, user.Name, user.ActivationToken)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Account created. Check your inbox for the activation link.",
	})
}

// HandleAuthActivate activates an account via its emailed token.
func HandleAuthActivate(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return jsonError(c, fiber.StatusBadRequest, "missing_token", "Activation token is required")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByActivationToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "invalid_token", "Activation token is invalid or already used")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load account")
	}

	user.Status = models.STATUS_ACTIVE
	user.ActivationToken = ""
	if err := repo.Update(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to activate account")
	}

	return c.JSON(fiber.Map{"message": "Account activated. You can log in now."})
}

// HandleAuthLogin verifies credentials and opens a session.
func HandleAuthLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body must be JSON")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(strings.TrimSpace(req.Email))
	// notice: in production you should not inform the user
	// with detailed messages about login failures
	if err != nil || !models.CheckPasswordHash(req.Password, user.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "Email or password is wrong")
	}
	if user.Status == models.STATUS_DISABLED {
		return jsonError(c, fiber.StatusForbidden, "account_disabled", "This account is disabled")
	}
	if !user.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "account_inactive", "Activate your account first")
	}

	if err := createUserSession(c, user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create session")
	}

	now := time.Now()
	_ = repo.UpdateFields(user.ID, map[string]interface{}{"last_login_at": &now})

	return c.JSON(fiber.Map{
		"id":                  user.ID,
		"username":            user.Name,
		"email":               user.Email,
		"role":                user.Role,
		"subscription_tier":   user.SubscriptionTier,
		"subscription_status": user.SubscriptionStatus,
	})
}

// HandleAuthLogout destroys the session.
func HandleAuthLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		_ = sess.Destroy()
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

func sendActivationMail(email, name, token string) {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"), "/")
	link := fmt.Sprintf("%s/auth/activate?token=%s", base, token)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>welcome to Aicser AI Studio. Click the link below to activate your account:</p><p><a href=%q>%s</a></p>",
		name, link, link,
	)
	if err := mail.SendMail(email, "Activate your Aicser AI Studio account", body); err != nil {
		fiberlog.Errorf("activation mail to %s failed: %v", email, err)
	}
}
