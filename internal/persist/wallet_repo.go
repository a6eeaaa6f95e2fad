package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/l1jgo/convoy/internal/convoy"
)

// LedgerSource tags every reward_ledger row written for the convoy event.
const LedgerSource = "convoy_event"

// LedgerEntry is one credited reward.
type LedgerEntry struct {
	PlayerID convoy.PlayerID
	Amount   int
	Source   string
}

type WalletRepo struct {
	db *DB
}

func NewWalletRepo(db *DB) *WalletRepo {
	return &WalletRepo{db: db}
}

// Deposit credits amount to a player's balance. The balance update and the
// ledger row commit together or not at all.
func (r *WalletRepo) Deposit(ctx context.Context, id convoy.PlayerID, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("deposit %d to player %d: amount must be positive", amount, id)
	}
	return r.DepositBatch(ctx, []LedgerEntry{{PlayerID: id, Amount: amount, Source: LedgerSource}})
}

// DepositBatch credits several entries in a single transaction.
func (r *WalletRepo) DepositBatch(ctx context.Context, entries []LedgerEntry) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("wallet begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO wallets (player_id, balance) VALUES ($1, $2)
			 ON CONFLICT (player_id) DO UPDATE
			 SET balance = wallets.balance + EXCLUDED.balance, updated_at = now()`,
			int64(e.PlayerID), e.Amount,
		); err != nil {
			return fmt.Errorf("wallet upsert: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO reward_ledger (player_id, amount, source) VALUES ($1, $2, $3)`,
			int64(e.PlayerID), e.Amount, e.Source,
		); err != nil {
			return fmt.Errorf("ledger insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Balance returns a player's balance; players without a wallet have 0.
func (r *WalletRepo) Balance(ctx context.Context, id convoy.PlayerID) (int64, error) {
	var balance int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE player_id = $1`, int64(id),
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("wallet balance: %w", err)
	}
	return balance, nil
}
