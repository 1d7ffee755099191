package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/aadarsh2904/GoQunat-Project/internal/fees"
	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// Estimator defines what the handler needs from the cost engine.
type Estimator interface {
	EstimateSince(ctx context.Context, start time.Time, req model.QuoteRequest) (*model.CostEstimate, error)
}

// EstimateHandler serves cost estimates.
type EstimateHandler struct {
	logger    *zap.Logger
	engine    Estimator
	validator *Validator
}

// NewEstimateHandler creates a new EstimateHandler.
func NewEstimateHandler(logger *zap.Logger, engine Estimator, validator *Validator) *EstimateHandler {
	return &EstimateHandler{
		logger:    logger,
		engine:    engine,
		validator: validator,
	}
}

// Estimate handles POST / and POST /api/v1/estimate. The reported latency
// covers decoding, validation and pricing.
func (h *EstimateHandler) Estimate(c *fiber.Ctx) error {
	start := time.Now()

	req, err := h.validator.Parse(c.Body())
	if err != nil {
		h.logger.Debug("api.estimate.invalid",
			zap.String("field", model.FieldOf(err)),
			zap.Error(err))
		return writeError(c, err)
	}

	est, err := h.engine.EstimateSince(c.UserContext(), start, req)
	if err != nil {
		if model.Abandoned(err) {
			h.logger.Debug("api.estimate.abandoned",
				zap.Any("request_id", c.Locals("requestid")),
				zap.Error(err))
			return c.Status(fiber.StatusRequestTimeout).JSON(ErrorResponse{
				Error: err.Error(),
				Kind:  "Abandoned",
			})
		}
		if model.KindOf(err) == model.KindInternal {
			h.logger.Error("api.estimate.failed",
				zap.String("venue", req.Venue),
				zap.String("symbol", req.Symbol),
				zap.Any("request_id", c.Locals("requestid")),
				zap.Error(err))
		}
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(est)
}

// FeeHandler exposes the fee schedule in force.
type FeeHandler struct {
	registry *fees.Registry
}

func NewFeeHandler(registry *fees.Registry) *FeeHandler {
	return &FeeHandler{registry: registry}
}

// List handles GET /api/v1/fee-tiers.
func (h *FeeHandler) List(c *fiber.Ctx) error {
	return c.JSON(FeeTiersResponse{
		Default: fees.DefaultTier,
		Tiers:   h.registry.Current().Table(),
	})
}
