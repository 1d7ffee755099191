package api

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/aadarsh2904/GoQunat-Project/internal/book"
	"github.com/aadarsh2904/GoQunat-Project/internal/metrics"
	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// BookHandler inspects and injects order-book snapshots.
type BookHandler struct {
	logger *zap.Logger
	cache  *book.Cache
}

func NewBookHandler(logger *zap.Logger, cache *book.Cache) *BookHandler {
	return &BookHandler{logger: logger, cache: cache}
}

// Get handles GET /api/v1/books/:venue/:symbol.
func (h *BookHandler) Get(c *fiber.Ctx) error {
	b, err := h.cache.Snapshot(c.Params("venue"), c.Params("symbol"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(summarize(b, time.Now()))
}

// Put handles PUT /api/v1/books/:venue/:symbol. The snapshot goes through the
// same validation and swap path as feed updates.
func (h *BookHandler) Put(c *fiber.Ctx) error {
	var msg model.BookMessage
	if err := json.Unmarshal(c.Body(), &msg); err != nil {
		return writeError(c, model.NewInvalidInput("", "invalid book payload: "+err.Error()))
	}
	// Params alias the request buffer; the cache keeps these strings.
	msg.Venue = utils.CopyString(c.Params("venue"))
	msg.Symbol = utils.CopyString(c.Params("symbol"))

	ob, err := msg.ToOrderBook(time.Now().UTC())
	if err != nil {
		return writeError(c, model.NewInvalidInput("", err.Error()))
	}
	snap, err := h.cache.Swap(c.UserContext(), ob)
	if err != nil {
		metrics.IncBookSwap(ob.Venue, "http", "rejected")
		h.logger.Warn("book.swap_rejected",
			zap.String("venue", ob.Venue),
			zap.String("symbol", ob.Symbol),
			zap.Error(err))
		return writeError(c, model.NewInvalidInput("", err.Error()))
	}
	metrics.IncBookSwap(snap.Venue, "http", "ok")
	return c.Status(fiber.StatusOK).JSON(summarize(snap, time.Now()))
}

// List handles GET /api/v1/books.
func (h *BookHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"books": h.cache.Keys()})
}
