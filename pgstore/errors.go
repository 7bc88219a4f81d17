package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lucas-stellet/eventsearch"
)

// SQLSTATE for a statement cancelled by statement_timeout or a cancel request.
const codeQueryCanceled = "57014"

// classify maps a driver error onto the eventsearch error taxonomy.
func classify(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w: %v", op, eventsearch.ErrStoreTimeout, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeQueryCanceled:
			return fmt.Errorf("%s: %w: %s", op, eventsearch.ErrStoreTimeout, pgErr.Message)
		case isDimensionMessage(pgErr.Message):
			return fmt.Errorf("%s: %w: %s", op, eventsearch.ErrDimensionMismatch, pgErr.Message)
		}
	}
	return eventsearch.StoreError(op, err)
}

// isDimensionMessage recognizes pgvector's length errors: "different vector dimensions
// 200 and 384" on comparison and "expected 384 dimensions, not 200" on insert.
func isDimensionMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "different vector dimensions") ||
		(strings.HasPrefix(msg, "expected ") && strings.Contains(msg, " dimensions, not "))
}
