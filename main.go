package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/aicser/aicser-studio/app/controllers"
	"github.com/aicser/aicser-studio/app/repository"
	"github.com/aicser/aicser-studio/internal/pkg/assistant"
	"github.com/aicser/aicser-studio/internal/pkg/billing"
	"github.com/aicser/aicser-studio/internal/pkg/cache"
	"github.com/aicser/aicser-studio/internal/pkg/database"
	"github.com/aicser/aicser-studio/internal/pkg/env"
	"github.com/aicser/aicser-studio/internal/pkg/resources"
	"github.com/aicser/aicser-studio/internal/pkg/router"
	"github.com/aicser/aicser-studio/internal/pkg/search"
	"github.com/aicser/aicser-studio/internal/pkg/worker"
)

func main() {
	app := NewApplication()

	worker.GetManager().Start()
	defer worker.GetManager().Stop()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	cache.SetupCache()
	resources.Initialize()

	// Services are built once here and handed to the controllers.
	controllers.SetupBilling(billing.NewServiceFromDB(database.GetDB(), billing.NewStripeProviderFromEnv()))
	controllers.SetupSearch(search.NewGoogleClientFromEnv())
	if svc, err := assistant.NewServiceFromEnv(context.Background()); err != nil {
		fiberlog.Warnf("AI assistant disabled: %v", err)
	} else {
		controllers.SetupAssistant(svc)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}
