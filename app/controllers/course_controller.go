package controllers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/aicser/aicser-studio/app/models"
	"github.com/aicser/aicser-studio/app/repository"
	"github.com/aicser/aicser-studio/internal/pkg/entitlements"
	"github.com/aicser/aicser-studio/internal/pkg/metrics/counter"
	"github.com/aicser/aicser-studio/internal/pkg/resources"
	"github.com/aicser/aicser-studio/internal/pkg/usercontext"
)

type progressRequest struct {
	ProgressPercentage int  `json:"progress_percentage"`
	Completed          bool `json:"completed"`
}

// viewerTier resolves the effective tier of the current request, anonymous
// visitors browse as free.
func viewerTier(c *fiber.Ctx) string {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return models.TierFree
	}
	return userCtx.Tier
}

// HandleListCourses returns the catalog with an accessibility flag per course.
func HandleListCourses(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	repos := repository.GetGlobalRepositories()

	var (
		courses []models.Course
		err     error
	)
	if query := strings.TrimSpace(c.Query("q")); query != "" {
		courses, err = repos.Course.Search(query)
	} else {
		courses, err = repos.Course.List(offset, limit)
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load courses")
	}

	tier := viewerTier(c)
	out := make([]fiber.Map, 0, len(courses))
	for _, course := range courses {
		out = append(out, fiber.Map{
			"uuid":          course.UUID,
			"title":         course.Title,
			"description":   course.Description,
			"difficulty":    course.Difficulty,
			"required_tier": course.RequiredTier,
			"thumbnail_url": course.ThumbnailURL,
			"view_count":    course.ViewCount,
			"accessible":    entitlements.CanAccessCourse(tier, course.RequiredTier),
		})
	}

	total, err := repos.Course.Count()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count courses")
	}

	return c.JSON(fiber.Map{"courses": out, "count": len(out), "total": total})
}

// HandleGetCourse returns full course content when the viewer's tier unlocks
// it, and 403 with the required tier otherwise.
func HandleGetCourse(c *fiber.Ctx) error {
	course, ok := loadCourse(c)
	if !ok {
		return nil
	}

	tier := viewerTier(c)
	if !entitlements.CanAccessCourse(tier, course.RequiredTier) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":         "tier_required",
			"message":       "Upgrade your subscription to access this course",
			"required_tier": course.RequiredTier,
		})
	}

	if err := counter.AddCourseView(course.ID); err != nil {
		fiberlog.Warnf("failed to count view for course %d: %v", course.ID, err)
	}

	response := fiber.Map{
		"uuid":          course.UUID,
		"title":         course.Title,
		"description":   course.Description,
		"content":       course.Content,
		"difficulty":    course.Difficulty,
		"required_tier": course.RequiredTier,
		"thumbnail_url": course.ThumbnailURL,
		"video_url":     course.VideoURL,
		"view_count":    course.ViewCount,
		"resources":     course.Resources(),
	}

	userCtx := usercontext.GetUserContext(c)
	if userCtx.IsLoggedIn {
		if p, err := repository.GetGlobalRepositories().Progress.GetByUserAndCourse(userCtx.UserID, course.ID); err == nil {
			response["progress"] = fiber.Map{
				"completed":           p.Completed,
				"progress_percentage": p.ProgressPercentage,
				"last_accessed":       formatTimePtr(p.LastAccessed),
			}
		}
	}

	return c.JSON(response)
}

// HandleUpsertProgress records the authenticated user's progress on a course.
func HandleUpsertProgress(c *fiber.Ctx) error {
	course, ok := loadCourse(c)
	if !ok {
		return nil
	}

	userCtx := usercontext.GetUserContext(c)
	if !entitlements.CanAccessCourse(userCtx.Tier, course.RequiredTier) {
		return jsonError(c, fiber.StatusForbidden, "tier_required", "Upgrade your subscription to access this course")
	}

	var req progressRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body must be JSON")
	}
	if req.ProgressPercentage < 0 || req.ProgressPercentage > 100 {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "progress_percentage must be between 0 and 100")
	}
	if req.Completed {
		req.ProgressPercentage = 100
	}

	now := time.Now()
	progress := &models.CourseProgress{
		UserID:             userCtx.UserID,
		CourseID:           course.ID,
		Completed:          req.Completed,
		ProgressPercentage: req.ProgressPercentage,
		LastAccessed:       &now,
	}
	if err := repository.GetGlobalRepositories().Progress.Upsert(progress); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save progress")
	}

	return c.JSON(fiber.Map{
		"completed":           progress.Completed,
		"progress_percentage": progress.ProgressPercentage,
	})
}

// HandleDownloadResource redirects to a short-lived download URL for one
// course resource. Downloads are a pro-and-up entitlement.
func HandleDownloadResource(c *fiber.Ctx) error {
	course, ok := loadCourse(c)
	if !ok {
		return nil
	}

	userCtx := usercontext.GetUserContext(c)
	if !entitlements.CanAccessCourse(userCtx.Tier, course.RequiredTier) {
		return jsonError(c, fiber.StatusForbidden, "tier_required", "Upgrade your subscription to access this course")
	}
	if !entitlements.CanDownloadResources(userCtx.Tier) {
		return jsonError(c, fiber.StatusForbidden, "tier_required", "Resource downloads require the pro plan")
	}

	idx, err := strconv.Atoi(c.Params("index"))
	resourceList := course.Resources()
	if err != nil || idx < 0 || idx >= len(resourceList) {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Resource not found")
	}
	resource := resourceList[idx]

	// Object keys are stored relative to the bucket; absolute URLs pass
	// through untouched.
	if client := resources.GetClient(); client != nil && !strings.Contains(resource.URL, "://") {
		url, err := client.PresignDownload(c.Context(), resource.URL, resource.Title)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create download link")
		}
		return c.Redirect(url, fiber.StatusSeeOther)
	}
	return c.Redirect(resource.URL, fiber.StatusSeeOther)
}

// loadCourse resolves the :uuid route param. On failure the error response
// is already written and ok is false.
func loadCourse(c *fiber.Ctx) (*models.Course, bool) {
	uuid := strings.TrimSpace(c.Params("uuid"))
	course, err := repository.GetGlobalRepositories().Course.GetByUUID(uuid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = jsonError(c, fiber.StatusNotFound, "not_found", "Course not found")
		} else {
			_ = jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load course")
		}
		return nil, false
	}
	return course, true
}
