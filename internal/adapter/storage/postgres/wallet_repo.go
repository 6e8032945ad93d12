package postgres

import (
	"context"
	"errors"
	"fmt"

	"relief-token-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a wallet registry row.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (address, owner_type, chain_head, created_at) VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, w.Address, w.OwnerType, w.ChainHead, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByAddress fetches a wallet by address. Returns nil, nil when absent.
func (r *WalletRepo) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	query := `SELECT address, owner_type, chain_head, created_at FROM wallets WHERE address = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, address))
}

// GetByAddressTx fetches a wallet on the transaction connection, inside the
// append critical section.
func (r *WalletRepo) GetByAddressTx(ctx context.Context, tx pgx.Tx, address string) (*domain.Wallet, error) {
	query := `SELECT address, owner_type, chain_head, created_at FROM wallets WHERE address = $1`
	return scanWallet(tx.QueryRow(ctx, query, address))
}

// UpdateChainHead advances the wallet's integrity chain anchor.
func (r *WalletRepo) UpdateChainHead(ctx context.Context, tx pgx.Tx, address string, head string) error {
	query := `UPDATE wallets SET chain_head = $1 WHERE address = $2`

	tag, err := tx.Exec(ctx, query, head, address)
	if err != nil {
		return fmt.Errorf("update chain head: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", address)
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.Address, &w.OwnerType, &w.ChainHead, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
