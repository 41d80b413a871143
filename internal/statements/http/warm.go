package statementshttp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meridian-fin/meridian-fin/internal/statements"
)

// Warm populates the response cache for one request scope with exactly the
// payloads the endpoints would store on a miss, so the first interactive
// request after a ledger import hits warm entries. Runs serially; the worker
// is the only caller.
func (c *Cache) Warm(ctx context.Context, svc StatementService, req statements.Request) error {
	loaders := []struct {
		kind string
		load func(context.Context) (interface{}, error)
	}{
		{"profit_loss", func(ctx context.Context) (interface{}, error) { return svc.GenerateProfitLoss(ctx, req) }},
		{"balance_sheet", func(ctx context.Context) (interface{}, error) { return svc.GenerateBalanceSheet(ctx, req) }},
		{"cash_flow", func(ctx context.Context) (interface{}, error) { return svc.GenerateCashFlow(ctx, req) }},
		{"equity_changes", func(ctx context.Context) (interface{}, error) { return svc.GenerateEquityChanges(ctx, req) }},
		{"trial_balance", func(ctx context.Context) (interface{}, error) { return svc.GenerateTrialBalance(ctx, req) }},
		{"package", func(ctx context.Context) (interface{}, error) { return svc.GeneratePackage(ctx, req) }},
	}
	for _, entry := range loaders {
		key, err := c.BuildKey(ctx, statementKeyParts(entry.kind, req)...)
		if err != nil {
			return err
		}
		var raw json.RawMessage
		if err := c.FetchJSON(ctx, key, &raw, entry.load); err != nil {
			return fmt.Errorf("warm %s: %w", entry.kind, err)
		}
	}
	return nil
}
