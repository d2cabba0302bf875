package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"supplyhub/internal/core/id"
	"supplyhub/internal/domain"
	"supplyhub/internal/domain/documents/supply"
	"supplyhub/internal/infrastructure/storage/postgres"
)

const (
	supplyOrdersTable     = "supply_orders"
	supplyOrderItemsTable = "supply_order_items"
)

var orderSortable = []string{"number", "supply_date", "created_at", "updated_at", "status", "total_amount"}

// SupplyOrderRepo implements supply.OrderRepository.
type SupplyOrderRepo struct {
	*BaseDocumentRepo[*supply.SupplyOrder]
	itemCols []string
	batch    *postgres.BatchExecutor
}

var _ supply.OrderRepository = (*SupplyOrderRepo)(nil)

// NewSupplyOrderRepo creates the repository.
func NewSupplyOrderRepo(txManager *postgres.TxManager) *SupplyOrderRepo {
	return &SupplyOrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			supply.AggregateOrder,
			supplyOrdersTable,
			postgres.ExtractDBColumns[supply.SupplyOrder](),
			func() *supply.SupplyOrder { return &supply.SupplyOrder{} },
		),
		itemCols: postgres.ExtractDBColumns[supply.SupplyOrderItem](),
		batch:    postgres.NewBatchExecutor(txManager),
	}
}

// Update writes the header and bumps order.Version on success.
func (r *SupplyOrderRepo) Update(ctx context.Context, order *supply.SupplyOrder) error {
	if err := r.BaseDocumentRepo.Update(ctx, order); err != nil {
		return err
	}
	order.Version++
	return nil
}

// DeleteCascade removes everything attached to the order in dependency order.
// The caller holds the order lock.
func (r *SupplyOrderRepo) DeleteCascade(ctx context.Context, orderID id.ID) error {
	affected, err := r.batch.ExecuteBatch(ctx, cascadeDeleteQueries(orderID))
	if err != nil {
		return fmt.Errorf("cascade delete: %w", err)
	}
	if affected[len(affected)-1] == 0 {
		return fmt.Errorf("cascade delete: order %s vanished under lock", orderID)
	}
	return nil
}

func cascadeDeleteQueries(orderID id.ID) []postgres.BatchQuery {
	return []postgres.BatchQuery{
		{SQL: `DELETE FROM supply_return_items WHERE supply_return_id IN (SELECT id FROM supply_returns WHERE supply_order_id = $1)`, Args: []any{orderID}},
		{SQL: `DELETE FROM supply_returns WHERE supply_order_id = $1`, Args: []any{orderID}},
		{SQL: `DELETE FROM supply_payments WHERE supply_order_id = $1`, Args: []any{orderID}},
		{SQL: `DELETE FROM supply_order_items WHERE supply_order_id = $1`, Args: []any{orderID}},
		{SQL: `DELETE FROM supply_orders WHERE id = $1`, Args: []any{orderID}},
	}
}

func (r *SupplyOrderRepo) itemsQuery(orderID id.ID) squirrel.SelectBuilder {
	return builder.
		Select(r.itemCols...).
		From(supplyOrderItemsTable).
		Where(squirrel.Eq{"supply_order_id": orderID}).
		OrderBy("line_no")
}

func (r *SupplyOrderRepo) selectItems(ctx context.Context, q squirrel.SelectBuilder) ([]supply.SupplyOrderItem, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}
	items := make([]supply.SupplyOrderItem, 0)
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	return items, nil
}

// GetItems returns the order lines ordered by line number.
func (r *SupplyOrderRepo) GetItems(ctx context.Context, orderID id.ID) ([]supply.SupplyOrderItem, error) {
	return r.selectItems(ctx, r.itemsQuery(orderID))
}

func (r *SupplyOrderRepo) itemsLockQuery(orderID id.ID) squirrel.SelectBuilder {
	return r.itemsQuery(orderID).Suffix("FOR UPDATE")
}

// GetItemsForUpdate locks the order lines.
func (r *SupplyOrderRepo) GetItemsForUpdate(ctx context.Context, orderID id.ID) ([]supply.SupplyOrderItem, error) {
	return r.selectItems(ctx, r.itemsLockQuery(orderID))
}

// SaveItems replaces all lines of the order.
func (r *SupplyOrderRepo) SaveItems(ctx context.Context, orderID id.ID, items []supply.SupplyOrderItem) error {
	if _, err := r.querier(ctx).Exec(ctx, `DELETE FROM supply_order_items WHERE supply_order_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	sql, args, err := insertRows(supplyOrderItemsTable, r.itemCols, items)
	if err != nil {
		return fmt.Errorf("build insert items: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}
	return nil
}

// UpdateItemCounters writes quantity_returned and quantity_accepted.
// The CHECK constraint on the table rejects counters above quantity_supplied.
func (r *SupplyOrderRepo) UpdateItemCounters(ctx context.Context, items []supply.SupplyOrderItem) error {
	queries := make([]postgres.BatchQuery, 0, len(items))
	for _, item := range items {
		sql, args, err := builder.
			Update(supplyOrderItemsTable).
			Set("quantity_returned", item.QuantityReturned).
			Set("quantity_accepted", item.QuantityAccepted).
			Where(squirrel.Eq{"id": item.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build counter update: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}

	if _, err := r.batch.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	return nil
}

// listQuery selects order headers with aggregated item counters.
func (r *SupplyOrderRepo) listQuery(filter supply.OrderListFilter) squirrel.SelectBuilder {
	cols := append(r.columns("o"),
		"COALESCE(SUM(i.quantity_supplied), 0) AS total_quantity_supplied",
		"COALESCE(SUM(i.quantity_returned), 0) AS total_quantity_returned",
		"COALESCE(SUM(i.quantity_accepted), 0) AS total_quantity_accepted",
	)

	q := builder.
		Select(cols...).
		From(supplyOrdersTable + " o").
		LeftJoin(supplyOrderItemsTable + " i ON i.supply_order_id = o.id").
		GroupBy("o.id")

	if filter.StoreID != nil {
		q = q.Where(squirrel.Eq{"o.store_id": *filter.StoreID})
	}
	if len(filter.StoreIDs) > 0 {
		q = q.Where(squirrel.Eq{"o.store_id": filter.StoreIDs})
	}
	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"o.customer_id": *filter.CustomerID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"o.status": *filter.Status})
	}
	return q
}

// List returns order summaries.
func (r *SupplyOrderRepo) List(ctx context.Context, filter supply.OrderListFilter) (domain.ListResult[*supply.OrderSummary], error) {
	orderBy, err := orderByClause(filter.OrderBy, orderSortable, "o.", "supply_date DESC, o.id DESC")
	if err != nil {
		return domain.ListResult[*supply.OrderSummary]{}, err
	}
	return list[*supply.OrderSummary](ctx, r.querier(ctx), r.listQuery(filter), orderBy, filter.ListFilter)
}
