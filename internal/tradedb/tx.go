package tradedb

import (
	"context"
	"database/sql"
	"errors"
)

// MakeTx is a function that creates a db transaction, discard may be
// deferred right away since it does nothing once commit has run.
type MakeTx = func(ctx context.Context) (tx *Queries, discard, commit func() error, err error)

func NewMakeTx(db *sql.DB) MakeTx {
	return func(ctx context.Context) (tx *Queries, discard, commit func() error, err error) {
		sqltx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		return New(sqltx),
			func() error {
				err := sqltx.Rollback()
				if errors.Is(err, sql.ErrTxDone) {
					return nil
				}
				return err
			},
			sqltx.Commit,
			nil
	}
}
