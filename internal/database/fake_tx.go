package database

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
)

// FakeTxRunner runs fn with a zero bun.Tx. Repositories used inside fn must
// be fakes.
type FakeTxRunner struct {
	Calls int
	// Err, when set, is returned instead of running fn.
	Err error
}

var _ TxRunner = (*FakeTxRunner)(nil)

func (f *FakeTxRunner) RunInTx(ctx context.Context, _ *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	f.Calls++
	if f.Err != nil {
		return f.Err
	}
	return fn(ctx, bun.Tx{})
}
