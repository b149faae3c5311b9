// Package persistence writes the engine's committed-operation audit trail
// to Postgres. The engine itself is in-memory and synchronous; persistence
// runs behind a channel so a slow database never holds the engine's lock.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// OperationRow mirrors engine.Operation to keep this package free of an
// engine import; the shell bridges between the two.
type OperationRow struct {
	ID           string
	OpType       string
	UserID       string
	Counterparty *string // liquidator on liquidations
	Asset        *string // nil for pure mint/burn
	Amount       string  // 18-decimal fixed point, decimal string
	HealthFactor *string // user's health factor after the op
	At           time.Time
}

// OperationWriter batch-inserts operation rows using multi-row INSERT.
type OperationWriter struct {
	db *sql.DB
}

func NewOperationWriter(db *sql.DB) *OperationWriter {
	return &OperationWriter{db: db}
}

// WriteBatch inserts rows inside tx. Inserts are idempotent on the
// operation ID so a retried batch never duplicates rows.
func (w *OperationWriter) WriteBatch(ctx context.Context, tx *sql.Tx, rows []OperationRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO stable.operations
		(id, op_type, user_id, counterparty, asset, amount, health_factor, created_at)
		VALUES `

	values := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*8)

	for i, r := range rows {
		base := i * 8
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		args = append(args,
			r.ID, r.OpType, r.UserID, r.Counterparty,
			r.Asset, r.Amount, r.HealthFactor, r.At,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (id) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
