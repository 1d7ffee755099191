package api

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker is implemented by optional backing services (store, bus).
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// BookCounter reports how many snapshots are held.
type BookCounter interface {
	Len() int
}

// UseMiddleware installs panic recovery, request ids and CORS for the
// browser form origins.
func UseMiddleware(app *fiber.App, corsOrigins []string) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
}

// RegisterRoutes wires every endpoint. nc and st may be nil when the
// corresponding dependency is not configured.
func RegisterRoutes(app *fiber.App, nc *nats.Conn, st HealthChecker, books BookCounter,
	estimateHandler *EstimateHandler,
	bookHandler *BookHandler,
	feeHandler *FeeHandler,
) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"books": "ok",
		}
		status := "ok"
		code := fiber.StatusOK

		if books.Len() == 0 {
			checks["books"] = "empty"
			status = "degraded"
		}

		if nc != nil {
			checks["nats"] = "ok"
			if !nc.IsConnected() {
				checks["nats"] = "disconnected"
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			} else if err := nc.FlushTimeout(1 * time.Second); err != nil {
				checks["nats"] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		if st != nil {
			checks["store"] = "ok"
			healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := st.HealthCheck(healthCtx); err != nil {
				checks["store"] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	// The browser form posts to the root path.
	app.Post("/", estimateHandler.Estimate)

	v1 := app.Group("/api/v1")
	v1.Post("/estimate", estimateHandler.Estimate)
	v1.Get("/books", bookHandler.List)
	v1.Get("/books/:venue/:symbol", bookHandler.Get)
	v1.Put("/books/:venue/:symbol", bookHandler.Put)
	v1.Get("/fee-tiers", feeHandler.List)
}
