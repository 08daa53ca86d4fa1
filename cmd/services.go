package cmd

import (
	"context"
	"fmt"

	"megafacil/database"
	"megafacil/events"
	"megafacil/repository"
	"megafacil/service"
)

// ledgerServices bundles what the account and credit commands need
type ledgerServices struct {
	db       *database.DB
	accounts service.AccountService
	ledger   service.CreditLedger
}

func openLedgerServices(ctx context.Context) (*ledgerServices, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	uowFactory := repository.NewUnitOfWorkFactory(db, events.NewBus())
	return &ledgerServices{
		db:       db,
		accounts: service.NewAccountService(uowFactory),
		ledger:   service.NewCreditLedger(uowFactory),
	}, nil
}

func (s *ledgerServices) Close() {
	s.db.Close()
}
