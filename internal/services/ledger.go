package services

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	reasonTopup    = "balance top-up"
	reasonWithdraw = "withdrawal"
)

// LedgerService owns user balances. Every balance change appends exactly one
// BalanceTransaction in the same transaction, under a row lock on the user.
type LedgerService struct {
	store store.Store
}

func NewLedgerService(s store.Store) *LedgerService {
	return &LedgerService{store: s}
}

// ValidateAmount rejects non-positive amounts and amounts with sub-cent
// precision.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return detail(ErrInvalidAmount, "amount must be greater than 0")
	}
	if !amount.Equal(amount.Round(2)) {
		return detail(ErrInvalidAmount, "amount must have at most 2 decimal places")
	}
	return nil
}

// Credit adds amount to the user's balance. tx must be a transactional store.
func (s *LedgerService) Credit(ctx context.Context, tx store.Store, userID uuid.UUID, amount decimal.Decimal, reason string) (*models.BalanceTransaction, error) {
	return s.apply(ctx, tx, userID, models.TransactionTopup, amount, reason)
}

// Debit subtracts amount from the user's balance, failing with
// ErrInsufficientFunds if it would go negative. tx must be a transactional
// store.
func (s *LedgerService) Debit(ctx context.Context, tx store.Store, userID uuid.UUID, amount decimal.Decimal, reason string) (*models.BalanceTransaction, error) {
	return s.apply(ctx, tx, userID, models.TransactionWithdraw, amount, reason)
}

func (s *LedgerService) apply(ctx context.Context, tx store.Store, userID uuid.UUID, kind string, amount decimal.Decimal, reason string) (*models.BalanceTransaction, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}

	user, err := tx.LockUser(ctx, userID)
	if err != nil {
		return nil, fromStore(err, "user")
	}

	balance := user.Balance.Add(amount)
	if kind == models.TransactionWithdraw {
		if amount.GreaterThan(user.Balance) {
			return nil, ErrInsufficientFunds
		}
		balance = user.Balance.Sub(amount)
	}

	if err := tx.SetBalance(ctx, userID, balance); err != nil {
		return nil, fromStore(err, "user")
	}

	entry := &models.BalanceTransaction{
		ID:           uuid.New(),
		UserID:       userID,
		Type:         kind,
		Amount:       amount,
		BalanceAfter: balance,
		Description:  reason,
	}
	if err := tx.AppendTransaction(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// TopUp credits the actor's wallet and returns the new balance.
func (s *LedgerService) TopUp(ctx context.Context, actor Actor, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.standalone(ctx, actor, amount, s.Credit, reasonTopup)
}

// Withdraw debits the actor's wallet and returns the new balance.
func (s *LedgerService) Withdraw(ctx context.Context, actor Actor, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.standalone(ctx, actor, amount, s.Debit, reasonWithdraw)
}

type ledgerOp func(ctx context.Context, tx store.Store, userID uuid.UUID, amount decimal.Decimal, reason string) (*models.BalanceTransaction, error)

func (s *LedgerService) standalone(ctx context.Context, actor Actor, amount decimal.Decimal, op ledgerOp, reason string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		entry, err := op(ctx, tx, actor.UserID, amount, reason)
		if err != nil {
			return err
		}
		balance = entry.BalanceAfter
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (s *LedgerService) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, fromStore(err, "user")
	}
	return user.Balance, nil
}

// History returns the user's ledger, newest first.
func (s *LedgerService) History(ctx context.Context, userID uuid.UUID) ([]models.BalanceTransaction, error) {
	return s.store.ListTransactions(ctx, userID)
}
