package handlers

import (
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

type WalletHandler struct {
	ledger   *services.LedgerService
	currency string
}

func NewWalletHandler(ledger *services.LedgerService, currency string) *WalletHandler {
	return &WalletHandler{ledger: ledger, currency: currency}
}

func (h *WalletHandler) Balance(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}

	balance, err := h.ledger.Balance(c.UserContext(), actor.UserID)
	if err != nil {
		return respondError(c, "get_balance", err)
	}
	return c.JSON(dto.BalanceResponse{Balance: balance, Currency: h.currency})
}

func (h *WalletHandler) TopUp(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.AmountRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	balance, err := h.ledger.TopUp(c.UserContext(), actor, req.Amount)
	if err != nil {
		return respondError(c, "topup", err)
	}
	return c.JSON(dto.BalanceResponse{Balance: balance, Currency: h.currency})
}

func (h *WalletHandler) Withdraw(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.AmountRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	balance, err := h.ledger.Withdraw(c.UserContext(), actor, req.Amount)
	if err != nil {
		return respondError(c, "withdraw", err)
	}
	return c.JSON(dto.BalanceResponse{Balance: balance, Currency: h.currency})
}

func (h *WalletHandler) History(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}

	entries, err := h.ledger.History(c.UserContext(), actor.UserID)
	if err != nil {
		return respondError(c, "wallet_history", err)
	}
	return c.JSON(lo.Map(entries, func(t models.BalanceTransaction, _ int) dto.TransactionResponse {
		return dto.TransactionResponse{
			ID:           t.ID,
			Type:         t.Type,
			Amount:       t.Amount,
			SignedAmount: t.Signed(),
			BalanceAfter: t.BalanceAfter,
			Description:  t.Description,
			CreatedAt:    t.CreatedAt,
		}
	}))
}
