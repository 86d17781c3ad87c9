package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finanzas/internal/domain/ledger"
)

const entryColumns = `id, user_id, nombre, monto, tipo, categoria, pagado, fecha_vencimiento, created_at`

// EntryRepository stores ledger entries in the finanzas table.
type EntryRepository struct {
	db *DB
}

func NewEntryRepository(db *DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) List(ctx context.Context, userID int64) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM finanzas
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, classify("list entries", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, classify("scan entry", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("iterate entries", err)
	}

	return entries, nil
}

func (r *EntryRepository) Insert(ctx context.Context, params ledger.CreateParams) (*ledger.Entry, error) {
	query := `
		INSERT INTO finanzas (id, user_id, nombre, monto, tipo, categoria, pagado, fecha_vencimiento, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + entryColumns

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, insertArgs(params)...))
	if err != nil {
		return nil, classify("insert entry", err)
	}
	return e, nil
}

// Get returns an owned entry as stored.
func (r *EntryRepository) Get(ctx context.Context, id string, userID int64) (*ledger.Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ledger.ErrNotFound
	}

	query := `SELECT ` + entryColumns + ` FROM finanzas WHERE id = $1 AND user_id = $2`

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		return nil, classify("get entry", err)
	}
	return e, nil
}

// Update patches an owned entry that is still pending. A reduction is
// applied against the stored amount and only while that amount covers it.
func (r *EntryRepository) Update(ctx context.Context, id string, userID int64, params ledger.UpdateParams) error {
	if params.IsEmpty() {
		return nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return ledger.ErrNotFound
	}

	setClauses := []string{}
	conditions := ""
	args := []any{}
	argIndex := 1

	if params.Reduce != nil {
		setClauses = append(setClauses, fmt.Sprintf("monto = monto - $%d", argIndex))
		conditions = fmt.Sprintf(" AND monto >= $%d", argIndex)
		args = append(args, *params.Reduce)
		argIndex++
	}
	if params.Paid != nil {
		setClauses = append(setClauses, fmt.Sprintf("pagado = $%d", argIndex))
		args = append(args, *params.Paid)
		argIndex++
	}

	query := fmt.Sprintf(
		`UPDATE finanzas SET %s WHERE id = $%d AND user_id = $%d AND pagado = false%s`,
		strings.Join(setClauses, ", "), argIndex, argIndex+1, conditions,
	)
	args = append(args, id, userID)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify("update entry", err)
	}

	err = expectOneRow(result)
	if errors.Is(err, ledger.ErrNotFound) && params.Reduce != nil {
		return shortfall(r.db.QueryRowContext(ctx, pendingQuery, id, userID))
	}
	return err
}

func (r *EntryRepository) Delete(ctx context.Context, id string, userID int64) error {
	if _, err := uuid.Parse(id); err != nil {
		return ledger.ErrNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM finanzas WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return classify("delete entry", err)
	}
	return expectOneRow(result)
}

// SettlePartial takes paid off a pending entry and inserts the payment
// entry in one transaction. It returns the reduced entry and the payment.
func (r *EntryRepository) SettlePartial(ctx context.Context, id string, userID int64, paid decimal.Decimal, payment ledger.CreateParams) (*ledger.Entry, *ledger.Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, ledger.ErrNotFound
	}

	var reduced, created *ledger.Entry
	err := r.db.InTx(ctx, "settle_partial", func(tx *sql.Tx) error {
		query := `
			UPDATE finanzas SET monto = monto - $1
			WHERE id = $2 AND user_id = $3 AND pagado = false AND monto >= $1
			RETURNING ` + entryColumns

		var err error
		reduced, err = scanEntry(tx.QueryRowContext(ctx, query, paid, id, userID))
		if errors.Is(err, sql.ErrNoRows) {
			return shortfall(tx.QueryRowContext(ctx, pendingQuery, id, userID))
		}
		if err != nil {
			return classify("reduce entry", err)
		}

		query = `
			INSERT INTO finanzas (id, user_id, nombre, monto, tipo, categoria, pagado, fecha_vencimiento, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING ` + entryColumns

		created, err = scanEntry(tx.QueryRowContext(ctx, query, insertArgs(payment)...))
		if err != nil {
			return classify("insert payment", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) || errors.Is(err, ledger.ErrValidation) || errors.Is(err, ledger.ErrConnection) {
			return nil, nil, err
		}
		return nil, nil, classify("settle entry", err)
	}

	return reduced, created, nil
}

const pendingQuery = `SELECT 1 FROM finanzas WHERE id = $1 AND user_id = $2 AND pagado = false`

// shortfall explains a conditional reduction that matched no row: the entry
// is still pending, so its stored amount no longer covers the reduction, or
// it is gone.
func shortfall(s scanner) error {
	var one int
	err := s.Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrNotFound
	}
	if err != nil {
		return classify("check entry", err)
	}
	return ledger.ErrAmountExceedsBalance
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*ledger.Entry, error) {
	var e ledger.Entry
	var dueDate sql.NullTime

	err := s.Scan(
		&e.ID, &e.UserID, &e.Name, &e.Amount, &e.Kind, &e.Category, &e.Paid, &dueDate, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		d := dueDate.Time.UTC()
		e.DueDate = &d
	}
	return &e, nil
}

func insertArgs(p ledger.CreateParams) []any {
	var dueDate sql.NullTime
	if p.DueDate != nil {
		dueDate = sql.NullTime{Time: *p.DueDate, Valid: true}
	}
	return []any{
		uuid.NewString(), p.UserID, p.Name, p.Amount, string(p.Kind), p.Category, p.Paid, dueDate, p.CreatedAt,
	}
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ledger.ErrNotFound
	}
	return nil
}
