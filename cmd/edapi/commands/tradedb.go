package commands

import (
	"context"

	"edcompanion/internal/components/chrono"
	"edcompanion/internal/tradedb"
)

// openTradeDB opens the trade database and makes sure its schema exists.
func openTradeDB(ctx context.Context) (tradedb.Store, func() error, error) {
	db, err := config.TradeDb.OpenDB()
	if err != nil {
		return tradedb.Store{}, nil, err
	}
	store := tradedb.NewStore(db, chrono.NewStandardImpl(), tel)
	err = store.Init(ctx)
	if err != nil {
		db.Close()
		return tradedb.Store{}, nil, err
	}
	return store, db.Close, nil
}
