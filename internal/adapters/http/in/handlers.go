package in

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/walletledger/service/internal/apperr"
	"github.com/walletledger/service/internal/services/command"
	"github.com/walletledger/service/internal/services/query"
	"github.com/walletledger/service/internal/services/validate"
)

// TransferHandler exposes POST /api/transfer.
type TransferHandler struct {
	UseCase *command.UseCase
}

// transferRequestBody is the wire shape of an incoming transfer request,
// struct-tag validated before the domain Validator (V) runs its semantic
// checks.
type transferRequestBody struct {
	FromWalletID   string `json:"fromWalletId" validate:"required"`
	ToWalletID     string `json:"toWalletId" validate:"required"`
	Amount         string `json:"amount" validate:"required"`
	IdempotencyKey string `json:"idempotencyKey" validate:"required"`
}

// Transfer handles POST /api/transfer.
func (h *TransferHandler) Transfer(c *fiber.Ctx) error {
	var body transferRequestBody
	if err := c.BodyParser(&body); err != nil {
		return WithError(c, apperr.New(apperr.KindInvalidRequest, "request body is not valid JSON"))
	}

	if err := validateStruct(body); err != nil {
		return WithError(c, apperr.New(apperr.KindInvalidRequest, "fromWalletId, toWalletId, amount and idempotencyKey are all required"))
	}

	validated, err := validate.Validate(validate.TransferRequest{
		FromWalletID:   body.FromWalletID,
		ToWalletID:     body.ToWalletID,
		Amount:         body.Amount,
		IdempotencyKey: body.IdempotencyKey,
	})
	if err != nil {
		return WithError(c, err)
	}

	result, err := h.UseCase.Transfer(c.UserContext(), validated.FromWalletID, validated.ToWalletID, validated.Amount, validated.IdempotencyKey)
	if err != nil {
		return WithError(c, err)
	}

	return OK(c, result)
}

// QueryHandler exposes the read-only wallet endpoints.
type QueryHandler struct {
	UseCase *query.UseCase
}

type balanceResponse struct {
	WalletID string `json:"walletId"`
	Balance  string `json:"balance"`
}

// GetBalance handles GET /api/wallet/:id/balance.
func (h *QueryHandler) GetBalance(c *fiber.Ctx) error {
	walletID := c.Params("id")

	balance, err := h.UseCase.GetBalance(c.UserContext(), walletID)
	if err != nil {
		return WithError(c, err)
	}

	return OK(c, balanceResponse{WalletID: walletID, Balance: balance})
}

// GetHistory handles GET /api/wallet/:id/transactions.
func (h *QueryHandler) GetHistory(c *fiber.Ctx) error {
	walletID := c.Params("id")

	logs, err := h.UseCase.GetHistory(c.UserContext(), walletID)
	if err != nil {
		return WithError(c, err)
	}

	return OK(c, logs)
}

// Pinger is satisfied by the database and cache connections. HealthHandler
// depends only on this to report reachability without importing either
// connection's concrete client type.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler exposes GET /health.
type HealthHandler struct {
	Database Pinger
	Cache    Pinger
}

type healthServices struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// Health reports "ok" when both dependencies answer a ping, "degraded"
// otherwise; the endpoint itself always responds 200, the body carries the
// per-dependency detail.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	services := healthServices{Database: "ok", Cache: "ok"}
	status := "ok"

	if err := h.Database.Ping(c.UserContext()); err != nil {
		services.Database = "unavailable"
		status = "degraded"
	}

	if err := h.Cache.Ping(c.UserContext()); err != nil {
		services.Cache = "unavailable"
		status = "degraded"
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": status, "services": services})
}

// RegisterRoutes wires the transfer, query and health endpoints onto app.
func RegisterRoutes(app *fiber.App, transfer *TransferHandler, q *QueryHandler, health *HealthHandler) {
	app.Get("/health", health.Health)

	api := app.Group("/api")
	api.Post("/transfer", transfer.Transfer)
	api.Get("/wallet/:id/balance", q.GetBalance)
	api.Get("/wallet/:id/transactions", q.GetHistory)
}
