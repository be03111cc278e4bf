// Package history persists executed trades to a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/1Eliaaaan/rugfi-ft/internal/domain"
)

// Store is a SQLite backed trade log.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the trade history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite：单连接更稳定

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS trades (
  id TEXT PRIMARY KEY,
  contract_address TEXT NOT NULL,
  token_symbol TEXT NOT NULL,
  direction TEXT NOT NULL,
  amount_in TEXT NOT NULL,
  tx_hash TEXT NOT NULL,
  block_number INTEGER NOT NULL,
  executed_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_executed_at ON trades(executed_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate history: %w", err)
		}
	}
	return nil
}

// Record inserts one executed trade.
func (s *Store) Record(ctx context.Context, rec domain.TradeRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO trades (id,contract_address,token_symbol,direction,amount_in,tx_hash,block_number,executed_at)
VALUES (?,?,?,?,?,?,?,?)
`, rec.ID, rec.ContractAddress, rec.TokenSymbol, string(rec.Direction), rec.AmountIn, rec.TxHash, rec.BlockNumber, rec.ExecutedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// ListRecent returns the most recent trades, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id,contract_address,token_symbol,direction,amount_in,tx_hash,block_number,executed_at
FROM trades ORDER BY executed_at DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeRecord
	for rows.Next() {
		var rec domain.TradeRecord
		var direction, executedAt string
		if err := rows.Scan(&rec.ID, &rec.ContractAddress, &rec.TokenSymbol, &direction, &rec.AmountIn, &rec.TxHash, &rec.BlockNumber, &executedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		rec.Direction = domain.TradeDirection(direction)
		ts, err := time.Parse(time.RFC3339Nano, executedAt)
		if err != nil {
			return nil, fmt.Errorf("parse trade timestamp %q: %w", executedAt, err)
		}
		rec.ExecutedAt = ts
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
