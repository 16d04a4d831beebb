package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/aicser/aicser-studio/app/controllers"
	"github.com/aicser/aicser-studio/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Account
	auth := v1.Group("/auth")
	auth.Post("/register", controllers.HandleAuthRegister)
	auth.Post("/login", controllers.HandleAuthLogin)
	auth.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)
	auth.Get("/activate", controllers.HandleAuthActivate)

	// Catalog, readable by anonymous visitors
	v1.Get("/billing/products", controllers.HandleGetProducts)
	v1.Get("/courses", controllers.HandleListCourses)
	v1.Get("/courses/:uuid", controllers.HandleGetCourse)

	// Learner endpoints
	v1.Get("/profile", middleware.RequireAuth, controllers.HandleGetProfile)
	v1.Patch("/profile", middleware.RequireAuth, controllers.HandleUpdateProfile)
	v1.Put("/profile", middleware.RequireAuth, controllers.HandleUpdateProfile)
	v1.Get("/profile/progress", middleware.RequireAuth, controllers.HandleGetMyProgress)
	v1.Get("/profile/payments", middleware.RequireAuth, controllers.HandleGetMyPayments)
	v1.Post("/courses/:uuid/progress", middleware.RequireAuth, controllers.HandleUpsertProgress)
	v1.Get("/courses/:uuid/resources/:index/download", middleware.RequireAuth, controllers.HandleDownloadResource)

	// Billing
	v1.Post("/billing/checkout", middleware.RequireAuth, controllers.HandleCreateCheckoutSession)
	v1.Post("/billing/portal", middleware.RequireAuth, controllers.HandleCreatePortalSession)

	// Assistant
	v1.Post("/assistant/chat", middleware.RequireAuth, controllers.HandleAssistantChat)
	v1.Post("/search", middleware.RequireAuth, controllers.HandleWebSearch)

	// Admin
	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Get("/stats", controllers.HandleAdminStats)
	admin.Get("/users", controllers.HandleAdminListUsers)
	admin.Get("/users/:id", controllers.HandleAdminGetUser)
	admin.Patch("/users/:id", controllers.HandleAdminUpdateUser)
	admin.Delete("/users/:id", controllers.HandleAdminDeleteUser)
	admin.Get("/payments", controllers.HandleAdminListPayments)
	admin.Post("/courses", controllers.HandleAdminCreateCourse)
	admin.Patch("/courses/:uuid", controllers.HandleAdminUpdateCourse)
	admin.Delete("/courses/:uuid", controllers.HandleAdminDeleteCourse)
	admin.Post("/courses/:uuid/resources", controllers.HandleAdminUploadCourseResource)
	admin.Delete("/courses/:uuid/resources/:index", controllers.HandleAdminDeleteCourseResource)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
