package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spicycabbage/spotdiff/internal/game"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	transaction_id TEXT PRIMARY KEY,
	package_id     TEXT NOT NULL,
	email          TEXT NOT NULL,
	time           INTEGER NOT NULL,
	hints          INTEGER NOT NULL,
	skips          INTEGER NOT NULL,
	granted_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS transactions_email ON transactions(email);
`

// Transaction is a payment whose powerups were granted.
type Transaction struct {
	ID        string // Payment intent or checkout session id.
	PackageID string
	Email     string
	Powerups  game.Powerups
	GrantedAt time.Time
}

// Ledger records the granted transactions in SQLite, so each payment is granted once.
type Ledger struct {
	db *sql.DB
}

// OpenLedger opens (or creates) the ledger database at path. Use ":memory:" for a
// throw-away ledger.
func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %q: %w", path, err)
	}
	// SQLite serializes writers anyway, and an in-memory database lives in a single connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores tx. It returns false, without error, if the transaction was already recorded.
func (l *Ledger) Record(ctx context.Context, tx Transaction) (bool, error) {
	if tx.GrantedAt.IsZero() {
		tx.GrantedAt = time.Now()
	}
	res, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO transactions (transaction_id, package_id, email, time, hints, skips, granted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.PackageID, tx.Email, tx.Powerups.Time, tx.Powerups.Hints, tx.Powerups.Skips, tx.GrantedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to record transaction %q: %w", tx.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Get returns the transaction with the given id, or nil if it was never recorded.
func (l *Ledger) Get(ctx context.Context, id string) (*Transaction, error) {
	var (
		tx        Transaction
		grantedAt int64
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT transaction_id, package_id, email, time, hints, skips, granted_at FROM transactions WHERE transaction_id = ?`, id).
		Scan(&tx.ID, &tx.PackageID, &tx.Email, &tx.Powerups.Time, &tx.Powerups.Hints, &tx.Powerups.Skips, &grantedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction %q: %w", id, err)
	}
	tx.GrantedAt = time.UnixMilli(grantedAt)
	return &tx, nil
}
