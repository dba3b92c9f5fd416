package database

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"yapp-query/internal/models"
)

// Resolution is a recorded name resolution.
type Resolution struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// BalanceSnapshot is one chain's balance from a recorded report.
type BalanceSnapshot struct {
	ID              int64     `json:"id"`
	Address         string    `json:"address"`
	ChainID         uint64    `json:"chain_id"`
	Symbol          string    `json:"symbol"`
	RawAmount       string    `json:"raw_amount"`
	Decimals        int       `json:"decimals"`
	FormattedAmount string    `json:"formatted_amount"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// EmitEvent records the event. Reset events are not persisted.
func (s *Store) EmitEvent(ctx context.Context, event models.QueryEvent) error {
	switch event.Kind {
	case models.EventNameResolved:
		if event.Address == nil {
			return fmt.Errorf("resolution event without address")
		}
		return s.SaveResolution(ctx, event.Name, event.Address.Hex(), event.At)
	case models.EventBalances:
		if event.Address == nil {
			return fmt.Errorf("balance event without address")
		}
		return s.SaveBalances(ctx, event.Address.Hex(), event.Balances, event.At)
	case models.EventCounterRead:
		if event.Counter == nil {
			return fmt.Errorf("counter event without value")
		}
		return s.SaveCounterRead(ctx, *event.Counter)
	}
	return nil
}

// SaveResolution saves a name resolution
func (s *Store) SaveResolution(ctx context.Context, name, address string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resolutions (name, address, resolved_at)
		VALUES ($1, $2, $3)
	`, name, address, at)
	return err
}

// SaveBalances saves every entry of a balance report in one transaction
func (s *Store) SaveBalances(ctx context.Context, address string, entries []models.BalanceEntry, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO balance_snapshots (address, chain_id, symbol, raw_amount, decimals, formatted_amount, fetched_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, address, e.ChainID, e.Symbol, bigString(e.RawAmount), e.Decimals, e.FormattedAmount, at)
		if err != nil {
			return fmt.Errorf("insert balance for chain %d: %w", e.ChainID, err)
		}
	}
	return tx.Commit()
}

// SaveCounterRead saves a counter value
func (s *Store) SaveCounterRead(ctx context.Context, v models.CounterValue) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO counter_reads (chain_id, value, fetched_at)
		VALUES ($1, $2, $3)
	`, v.ChainID, bigString(v.Value), v.FetchedAt)
	return err
}

// GetResolutions retrieves the most recent resolutions of a name
func (s *Store) GetResolutions(ctx context.Context, name string, limit int) ([]Resolution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, address, resolved_at
		FROM resolutions
		WHERE name = $1
		ORDER BY resolved_at DESC
		LIMIT $2
	`, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Resolution
	for rows.Next() {
		var r Resolution
		if err := rows.Scan(&r.ID, &r.Name, &r.Address, &r.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetLatestBalances retrieves the most recently recorded report for an address
func (s *Store) GetLatestBalances(ctx context.Context, address string) ([]BalanceSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, address, chain_id, symbol, raw_amount::text, decimals, formatted_amount, fetched_at
		FROM balance_snapshots
		WHERE address = $1
		  AND fetched_at = (SELECT MAX(fetched_at) FROM balance_snapshots WHERE address = $1)
		ORDER BY id
	`, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BalanceSnapshot
	for rows.Next() {
		var b BalanceSnapshot
		err := rows.Scan(&b.ID, &b.Address, &b.ChainID, &b.Symbol, &b.RawAmount, &b.Decimals, &b.FormattedAmount, &b.FetchedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func bigString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}
