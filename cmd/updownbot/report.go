package main

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/updownbot/internal/adapters/notify"
	"github.com/alejandrodnm/updownbot/internal/adapters/storage"
)

const (
	reportOrders  = 50
	reportPeriods = 8
)

// runReport imprime las últimas órdenes y mercados del journal.
func runReport(ctx context.Context, store *storage.SQLiteStorage, notifier *notify.Console) error {
	orders, err := store.RecentOrders(ctx, reportOrders)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	starts, err := store.MarketStarts(ctx, reportPeriods)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	notifier.PrintJournal(orders, starts)
	return nil
}
