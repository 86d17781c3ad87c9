package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/lib/pq"

	"finanzas/internal/domain/ledger"
)

// Postgres error classes the ledger distinguishes.
const (
	classIntegrityViolation  pq.ErrorClass = "23"
	classDataException       pq.ErrorClass = "22"
	classConnectionException pq.ErrorClass = "08"
	classInsufficientRes     pq.ErrorClass = "53"
	classOperatorIntervened  pq.ErrorClass = "57"
)

// classify maps driver errors onto the ledger error taxonomy. The original
// error stays in the chain for logging.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case classIntegrityViolation, classDataException:
			return fmt.Errorf("%w: %s: %s", ledger.ErrValidation, op, pqErr.Message)
		case classConnectionException, classInsufficientRes, classOperatorIntervened:
			return fmt.Errorf("%w: %s: %w", ledger.ErrConnection, op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if isConnectionError(err) {
		return fmt.Errorf("%w: %s: %w", ledger.ErrConnection, op, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
