package controllers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aicser/aicser-studio/app/models"
	"github.com/aicser/aicser-studio/app/repository"
	"github.com/aicser/aicser-studio/internal/pkg/resources"
	"github.com/aicser/aicser-studio/internal/pkg/usercontext"
)

type adminUpdateUserRequest struct {
	Role   string `json:"role"`
	Status string `json:"status"`
	Tier   string `json:"tier"`
}

type adminCourseRequest struct {
	Title        string                  `json:"title"`
	Description  string                  `json:"description"`
	Content      string                  `json:"content"`
	Difficulty   string                  `json:"difficulty"`
	RequiredTier string                  `json:"required_tier"`
	ThumbnailURL string                  `json:"thumbnail_url"`
	VideoURL     string                  `json:"video_url"`
	Resources    []models.CourseResource `json:"resources"`
}

// HandleAdminStats returns platform totals for the admin dashboard.
func HandleAdminStats(c *fiber.Ctx) error {
	repos := repository.GetGlobalRepositories()

	userCount, err := repos.User.Count()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load statistics")
	}
	activeSubs, err := repos.User.CountBySubscriptionStatus(models.SubscriptionActive)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load statistics")
	}
	pastDueSubs, err := repos.User.CountBySubscriptionStatus(models.SubscriptionPastDue)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load statistics")
	}
	courseCount, err := repos.Course.Count()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load statistics")
	}
	paymentCount, err := repos.Payment.Count()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load statistics")
	}
	revenue, err := repos.Payment.SumAmountSince(models.PaymentStatusSucceeded, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load statistics")
	}

	return c.JSON(fiber.Map{
		"users": fiber.Map{
			"total":                 userCount,
			"active_subscriptions":  activeSubs,
			"past_due_subscription": pastDueSubs,
		},
		"courses": fiber.Map{
			"total": courseCount,
		},
		"payments": fiber.Map{
			"total":                 paymentCount,
			"revenue_cents_30_days": revenue,
		},
	})
}

// HandleAdminListUsers lists or searches user accounts.
func HandleAdminListUsers(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	repos := repository.GetGlobalRepositories()

	var (
		users []models.User
		err   error
	)
	if query := strings.TrimSpace(c.Query("q")); query != "" {
		users, err = repos.User.Search(query)
	} else {
		users, err = repos.User.List(offset, limit)
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load users")
	}

	total, err := repos.User.Count()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count users")
	}

	out := make([]fiber.Map, 0, len(users))
	for i := range users {
		out = append(out, adminUserJSON(&users[i]))
	}
	return c.JSON(fiber.Map{"users": out, "count": len(out), "total": total})
}

// HandleAdminGetUser returns one user account in full.
func HandleAdminGetUser(c *fiber.Ctx) error {
	user, ok := loadAdminUser(c)
	if !ok {
		return nil
	}
	return c.JSON(adminUserJSON(user))
}

// HandleAdminUpdateUser changes role, status or subscription tier of an
// account. Tier changes here are manual overrides and do not touch billing.
func HandleAdminUpdateUser(c *fiber.Ctx) error {
	user, ok := loadAdminUser(c)
	if !ok {
		return nil
	}

	var req adminUpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body must be JSON")
	}

	fields := map[string]interface{}{}
	if req.Role != "" {
		if req.Role != models.ROLE_USER && req.Role != models.ROLE_ADMIN {
			return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Unknown role")
		}
		fields["role"] = req.Role
	}
	if req.Status != "" {
		switch req.Status {
		case models.STATUS_ACTIVE, models.STATUS_INACTIVE, models.STATUS_DISABLED:
			fields["status"] = req.Status
		default:
			return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Unknown status")
		}
	}
	if req.Tier != "" {
		switch req.Tier {
		case models.TierFree, models.TierPro, models.TierPremium:
			fields["subscription_tier"] = req.Tier
		default:
			return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Unknown tier")
		}
	}
	if len(fields) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Nothing to update")
	}

	if err := repository.GetGlobalRepositories().User.UpdateFields(user.ID, fields); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update user")
	}
	return c.JSON(fiber.Map{"message": "User updated"})
}

// HandleAdminDeleteUser soft-deletes an account. Admins cannot delete
// themselves.
func HandleAdminDeleteUser(c *fiber.Ctx) error {
	user, ok := loadAdminUser(c)
	if !ok {
		return nil
	}

	userCtx := usercontext.GetUserContext(c)
	if user.ID == userCtx.UserID {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "You cannot delete your own account")
	}

	if err := repository.GetGlobalRepositories().User.Delete(user.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete user")
	}
	return c.JSON(fiber.Map{"message": "User deleted"})
}

// HandleAdminListPayments lists the payment ledger across all users.
func HandleAdminListPayments(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	repos := repository.GetGlobalRepositories()

	payments, err := repos.Payment.List(offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load payments")
	}
	total, err := repos.Payment.Count()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count payments")
	}

	out := make([]fiber.Map, 0, len(payments))
	for _, p := range payments {
		out = append(out, paymentJSON(p))
	}
	return c.JSON(fiber.Map{"payments": out, "count": len(out), "total": total})
}

// HandleAdminCreateCourse adds a course to the catalog.
func HandleAdminCreateCourse(c *fiber.Ctx) error {
	var req adminCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body must be JSON")
	}

	course := &models.Course{
		UUID:         uuid.New().String(),
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Content:      req.Content,
		Difficulty:   defaultString(req.Difficulty, models.DifficultyBeginner),
		RequiredTier: defaultString(req.RequiredTier, models.TierFree),
		ThumbnailURL: req.ThumbnailURL,
		VideoURL:     req.VideoURL,
	}
	if err := course.SetResources(req.Resources); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Invalid resource list")
	}
	if err := course.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	if err := repository.GetGlobalRepositories().Course.Create(course); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create course")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"uuid": course.UUID})
}

// HandleAdminUpdateCourse updates catalog fields of an existing course.
func HandleAdminUpdateCourse(c *fiber.Ctx) error {
	course, ok := loadCourse(c)
	if !ok {
		return nil
	}

	var req adminCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body must be JSON")
	}

	if title := strings.TrimSpace(req.Title); title != "" {
		course.Title = title
	}
	if req.Description != "" {
		course.Description = req.Description
	}
	if req.Content != "" {
		course.Content = req.Content
	}
	if req.Difficulty != "" {
		course.Difficulty = req.Difficulty
	}
	if req.RequiredTier != "" {
		course.RequiredTier = req.RequiredTier
	}
	if req.ThumbnailURL != "" {
		course.ThumbnailURL = req.ThumbnailURL
	}
	if req.VideoURL != "" {
		course.VideoURL = req.VideoURL
	}
	if req.Resources != nil {
		if err := course.SetResources(req.Resources); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Invalid resource list")
		}
	}

	if err := course.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := repository.GetGlobalRepositories().Course.Update(course); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update course")
	}
	return c.JSON(fiber.Map{"message": "Course updated"})
}

// HandleAdminDeleteCourse removes a course from the catalog.
func HandleAdminDeleteCourse(c *fiber.Ctx) error {
	course, ok := loadCourse(c)
	if !ok {
		return nil
	}
	if err := repository.GetGlobalRepositories().Course.Delete(course.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete course")
	}
	return c.JSON(fiber.Map{"message": "Course deleted"})
}

// HandleAdminUploadCourseResource stores an uploaded file in resource
// storage and attaches it to the course's resource list.
func HandleAdminUploadCourseResource(c *fiber.Ctx) error {
	client := resources.GetClient()
	if client == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "Resource storage is not configured")
	}

	course, ok := loadCourse(c)
	if !ok {
		return nil
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Multipart field \"file\" is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Failed to read uploaded file")
	}
	defer file.Close()

	objectKey, err := client.UploadResource(c.Context(), course.UUID, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		fiberlog.Errorf("resource upload for course %s failed: %v", course.UUID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store resource")
	}

	resource := models.CourseResource{
		Title: defaultString(c.FormValue("title"), fileHeader.Filename),
		URL:   objectKey,
		Type:  defaultString(c.FormValue("type"), "file"),
	}
	list := append(course.Resources(), resource)
	if err := course.SetResources(list); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store resource")
	}
	if err := repository.GetGlobalRepositories().Course.Update(course); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update course")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"resource": resource, "index": len(list) - 1})
}

// HandleAdminDeleteCourseResource detaches one resource from a course and
// removes the stored object when the entry points into resource storage.
// Absolute URLs are external links and only detached.
func HandleAdminDeleteCourseResource(c *fiber.Ctx) error {
	course, ok := loadCourse(c)
	if !ok {
		return nil
	}

	idx, err := strconv.Atoi(c.Params("index"))
	list := course.Resources()
	if err != nil || idx < 0 || idx >= len(list) {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Resource not found")
	}
	resource := list[idx]

	if client := resources.GetClient(); client != nil && !strings.Contains(resource.URL, "://") {
		// The catalog entry wins; a failed object delete leaves an orphan
		// that is cleaned up out of band.
		if err := client.DeleteResource(c.Context(), resource.URL); err != nil {
			fiberlog.Warnf("failed to delete resource object %s: %v", resource.URL, err)
		}
	}

	list = append(list[:idx], list[idx+1:]...)
	if err := course.SetResources(list); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update course")
	}
	if err := repository.GetGlobalRepositories().Course.Update(course); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update course")
	}
	return c.JSON(fiber.Map{"message": "Resource removed"})
}

func adminUserJSON(u *models.User) fiber.Map {
	return fiber.Map{
		"id":                  u.ID,
		"name":                u.Name,
		"email":               u.Email,
		"role":                u.Role,
		"status":              u.Status,
		"subscription_tier":   u.SubscriptionTier,
		"subscription_status": u.SubscriptionStatus,
		"has_billing":         u.HasBillingCustomer(),
		"created_at":          u.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at":       formatTimePtr(u.LastLoginAt),
	}
}

// loadAdminUser resolves the :id route param. On failure the error response
// is already written and ok is false.
func loadAdminUser(c *fiber.Ctx) (*models.User, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		_ = jsonError(c, fiber.StatusBadRequest, "invalid_id", "Invalid user id")
		return nil, false
	}
	user, err := repository.GetGlobalRepositories().User.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		} else {
			_ = jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
		}
		return nil, false
	}
	return user, true
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
