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
	supplyReturnsTable     = "supply_returns"
	supplyReturnItemsTable = "supply_return_items"
)

var returnSortable = []string{"number", "return_date", "created_at", "status", "total_returned_amount"}

// SupplyReturnRepo implements supply.ReturnRepository.
type SupplyReturnRepo struct {
	*BaseDocumentRepo[*supply.SupplyReturn]
	itemCols []string
}

var _ supply.ReturnRepository = (*SupplyReturnRepo)(nil)

// NewSupplyReturnRepo creates the repository.
func NewSupplyReturnRepo(txManager *postgres.TxManager) *SupplyReturnRepo {
	return &SupplyReturnRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			supply.AggregateReturn,
			supplyReturnsTable,
			postgres.ExtractDBColumns[supply.SupplyReturn](),
			func() *supply.SupplyReturn { return &supply.SupplyReturn{} },
		),
		itemCols: postgres.ExtractDBColumns[supply.SupplyReturnItem](),
	}
}

// Create inserts the header and its items.
func (r *SupplyReturnRepo) Create(ctx context.Context, ret *supply.SupplyReturn) error {
	if err := r.BaseDocumentRepo.Create(ctx, ret); err != nil {
		return err
	}
	if len(ret.Items) == 0 {
		return nil
	}

	sql, args, err := insertRows(supplyReturnItemsTable, r.itemCols, ret.Items)
	if err != nil {
		return fmt.Errorf("build insert return items: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert return items: %w", err)
	}
	return nil
}

// GetByID returns the header with items.
func (r *SupplyReturnRepo) GetByID(ctx context.Context, returnID id.ID) (*supply.SupplyReturn, error) {
	ret, err := r.BaseDocumentRepo.GetByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, []*supply.SupplyReturn{ret}); err != nil {
		return nil, err
	}
	return ret, nil
}

// ListByOrder returns every return of the order, oldest first.
func (r *SupplyReturnRepo) ListByOrder(ctx context.Context, orderID id.ID) ([]*supply.SupplyReturn, error) {
	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"supply_order_id": orderID}).
		OrderBy("return_date", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	returns := make([]*supply.SupplyReturn, 0)
	if err := pgxscan.Select(ctx, r.querier(ctx), &returns, sql, args...); err != nil {
		return nil, fmt.Errorf("list returns by order: %w", err)
	}
	if err := r.attachItems(ctx, returns); err != nil {
		return nil, err
	}
	return returns, nil
}

func (r *SupplyReturnRepo) listQuery(filter supply.ReturnListFilter) squirrel.SelectBuilder {
	q := r.baseSelect()
	if filter.StoreID != nil {
		q = q.Where(squirrel.Eq{"store_id": *filter.StoreID})
	}
	if len(filter.StoreIDs) > 0 {
		q = q.Where(squirrel.Eq{"store_id": filter.StoreIDs})
	}
	if filter.SupplyOrderID != nil {
		q = q.Where(squirrel.Eq{"supply_order_id": *filter.SupplyOrderID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	return q
}

// List returns return headers with their items.
func (r *SupplyReturnRepo) List(ctx context.Context, filter supply.ReturnListFilter) (domain.ListResult[*supply.SupplyReturn], error) {
	orderBy, err := orderByClause(filter.OrderBy, returnSortable, "", "return_date DESC, id DESC")
	if err != nil {
		return domain.ListResult[*supply.SupplyReturn]{}, err
	}

	result, err := list[*supply.SupplyReturn](ctx, r.querier(ctx), r.listQuery(filter), orderBy, filter.ListFilter)
	if err != nil {
		return result, err
	}
	return result, r.attachItems(ctx, result.Items)
}

// attachItems loads items for all returns in one query.
func (r *SupplyReturnRepo) attachItems(ctx context.Context, returns []*supply.SupplyReturn) error {
	if len(returns) == 0 {
		return nil
	}
	ids := make([]id.ID, len(returns))
	byID := make(map[id.ID]*supply.SupplyReturn, len(returns))
	for i, ret := range returns {
		ids[i] = ret.ID
		byID[ret.ID] = ret
		ret.Items = make([]supply.SupplyReturnItem, 0)
	}

	sql, args, err := builder.
		Select(r.itemCols...).
		From(supplyReturnItemsTable).
		Where(squirrel.Eq{"supply_return_id": ids}).
		OrderBy("supply_return_id", "id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build return items query: %w", err)
	}

	var items []supply.SupplyReturnItem
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return fmt.Errorf("select return items: %w", err)
	}
	for _, item := range items {
		if ret, ok := byID[item.SupplyReturnID]; ok {
			ret.Items = append(ret.Items, item)
		}
	}
	return nil
}
