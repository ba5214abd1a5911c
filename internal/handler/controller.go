package handler

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"leadscout/internal/service"
	"leadscout/pkg/logger"
	"leadscout/pkg/storage"
)

// Controller exposes run control and lead status over HTTP
type Controller struct {
	svc     service.RunController
	startAt time.Time
	log     *logger.Logger
}

type StatusResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Run       service.Status `json:"run"`
}

type channelResponse struct {
	ChannelID   string          `json:"channel_id"`
	ChannelName string          `json:"channel_name"`
	FirstSeen   time.Time       `json:"first_seen"`
	LastScraped time.Time       `json:"last_scraped"`
	Status      string          `json:"status"`
	Data        json.RawMessage `json:"data,omitempty"`
}

type triggerRequest struct {
	Niches []string `json:"niches"`
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

func NewController(svc service.RunController) *Controller {
	return &Controller{
		svc:     svc,
		startAt: time.Now(),
		log:     logger.GetLogger().WithField("component", "http"),
	}
}

// NewApp builds the fiber app with every route registered
func NewApp(c *Controller) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "leadscout",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          c.handleError,
	})
	app.Use(c.requestLogger)
	c.Register(app)
	return app
}

func (c *Controller) Register(app *fiber.App) {
	app.Get("/health", c.Health)

	api := app.Group("/api/v1")
	api.Get("/status", c.GetStatus)
	api.Post("/runs", c.TriggerRun)
	api.Get("/channels/:id", c.GetChannel)
	api.Patch("/channels/:id/status", c.UpdateChannelStatus)
}

// Health handles GET /health
func (c *Controller) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"status":         "ok",
		"uptime_seconds": int(time.Since(c.startAt).Seconds()),
	})
}

// GetStatus handles GET /api/v1/status
func (c *Controller) GetStatus(ctx *fiber.Ctx) error {
	st := c.svc.Status()
	status := "idle"
	if st.Running {
		status = "running"
	}
	return ctx.JSON(StatusResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Run:       st,
	})
}

// TriggerRun handles POST /api/v1/runs. The body is optional.
func (c *Controller) TriggerRun(ctx *fiber.Ctx) error {
	var req triggerRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return errorResponse(ctx, fiber.StatusBadRequest, "INVALID_BODY", "Request body must be JSON")
		}
	}
	niches := make([]string, 0, len(req.Niches))
	for _, n := range req.Niches {
		if n = strings.TrimSpace(n); n != "" {
			niches = append(niches, n)
		}
	}

	if err := c.svc.Trigger(niches); err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			return errorResponse(ctx, fiber.StatusConflict, "RUN_IN_PROGRESS", err.Error())
		}
		c.log.WithError(err).Error("Failed to start run")
		return errorResponse(ctx, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start run")
	}
	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "started", "niches": niches})
}

// GetChannel handles GET /api/v1/channels/:id
func (c *Controller) GetChannel(ctx *fiber.Ctx) error {
	id := strings.TrimSpace(ctx.Params("id"))
	rec, err := c.svc.Lead(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errorResponse(ctx, fiber.StatusNotFound, "NOT_FOUND", "Channel not found")
		}
		return errorResponse(ctx, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to lookup channel")
	}
	resp := channelResponse{
		ChannelID:   rec.ChannelID,
		ChannelName: rec.ChannelName,
		FirstSeen:   rec.FirstSeen,
		LastScraped: rec.LastScraped,
		Status:      rec.Status,
	}
	if json.Valid(rec.Snapshot) {
		resp.Data = rec.Snapshot
	}
	return ctx.JSON(resp)
}

// UpdateChannelStatus handles PATCH /api/v1/channels/:id/status
func (c *Controller) UpdateChannelStatus(ctx *fiber.Ctx) error {
	var req statusUpdateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errorResponse(ctx, fiber.StatusBadRequest, "INVALID_BODY", "Request body must be JSON")
	}

	id := strings.TrimSpace(ctx.Params("id"))
	err := c.svc.UpdateLeadStatus(ctx.UserContext(), id, strings.TrimSpace(req.Status))
	switch {
	case err == nil:
		return ctx.JSON(fiber.Map{"channel_id": id, "status": req.Status})
	case errors.Is(err, service.ErrInvalidStatus):
		return errorResponse(ctx, fiber.StatusBadRequest, "INVALID_FIELD", err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return errorResponse(ctx, fiber.StatusNotFound, "NOT_FOUND", "Channel not found")
	default:
		c.log.WithError(err).Error("Failed to update lead status")
		return errorResponse(ctx, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update status")
	}
}

func (c *Controller) requestLogger(ctx *fiber.Ctx) error {
	start := time.Now()
	err := ctx.Next()
	c.log.WithFields(map[string]interface{}{
		"method":     ctx.Method(),
		"path":       ctx.Path(),
		"status":     ctx.Response().StatusCode(),
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("HTTP request")
	return err
}

func (c *Controller) handleError(ctx *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return errorResponse(ctx, fe.Code, "HTTP_ERROR", fe.Message)
	}
	c.log.WithError(err).Error("Unhandled HTTP error")
	return errorResponse(ctx, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

func errorResponse(ctx *fiber.Ctx, status int, code, message string) error {
	return ctx.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}
