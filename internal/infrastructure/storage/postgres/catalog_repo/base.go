// Package catalog_repo provides read access to reference data owned by other
// services: the product catalog and store/business settings.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"supplyhub/internal/infrastructure/storage/postgres"
)

var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// reader runs single-row lookups through the transaction in ctx, if any.
type reader struct {
	txManager *postgres.TxManager
}

// findOne scans the first row of q into dest.
// It reports found=false instead of an error when no row matches.
func (r reader) findOne(ctx context.Context, dest any, q squirrel.SelectBuilder) (found bool, err error) {
	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), dest, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
