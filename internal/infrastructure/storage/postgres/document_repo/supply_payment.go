package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"supplyhub/internal/core/id"
	"supplyhub/internal/core/types"
	"supplyhub/internal/domain"
	"supplyhub/internal/domain/documents/supply"
	"supplyhub/internal/infrastructure/storage/postgres"
)

const supplyPaymentsTable = "supply_payments"

var paymentSortable = []string{"number", "payment_date", "created_at", "amount_paid", "payment_method"}

// SupplyPaymentRepo implements supply.PaymentRepository.
type SupplyPaymentRepo struct {
	*BaseDocumentRepo[*supply.SupplyPayment]
}

var _ supply.PaymentRepository = (*SupplyPaymentRepo)(nil)

// NewSupplyPaymentRepo creates the repository.
func NewSupplyPaymentRepo(txManager *postgres.TxManager) *SupplyPaymentRepo {
	return &SupplyPaymentRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			supply.AggregatePayment,
			supplyPaymentsTable,
			postgres.ExtractDBColumns[supply.SupplyPayment](),
			func() *supply.SupplyPayment { return &supply.SupplyPayment{} },
		),
	}
}

// ListByOrder returns every payment of the order, oldest first.
func (r *SupplyPaymentRepo) ListByOrder(ctx context.Context, orderID id.ID) ([]*supply.SupplyPayment, error) {
	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"supply_order_id": orderID}).
		OrderBy("payment_date", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	payments := make([]*supply.SupplyPayment, 0)
	if err := pgxscan.Select(ctx, r.querier(ctx), &payments, sql, args...); err != nil {
		return nil, fmt.Errorf("list payments by order: %w", err)
	}
	return payments, nil
}

func (r *SupplyPaymentRepo) listQuery(filter supply.PaymentListFilter) squirrel.SelectBuilder {
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
	return q
}

// List returns payments.
func (r *SupplyPaymentRepo) List(ctx context.Context, filter supply.PaymentListFilter) (domain.ListResult[*supply.SupplyPayment], error) {
	orderBy, err := orderByClause(filter.OrderBy, paymentSortable, "", "payment_date DESC, id DESC")
	if err != nil {
		return domain.ListResult[*supply.SupplyPayment]{}, err
	}
	return list[*supply.SupplyPayment](ctx, r.querier(ctx), r.listQuery(filter), orderBy, filter.ListFilter)
}

// SumByOrder returns Σ amount_paid for the order.
func (r *SupplyPaymentRepo) SumByOrder(ctx context.Context, orderID id.ID) (types.Money, error) {
	var sum types.Money
	err := r.querier(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_paid), 0) FROM supply_payments WHERE supply_order_id = $1`,
		orderID,
	).Scan(&sum)
	if err != nil {
		return types.Zero(), fmt.Errorf("sum payments: %w", err)
	}
	return sum, nil
}
