package supply

import (
	"context"
	"fmt"
	"time"

	"supplyhub/internal/core/apperror"
	"supplyhub/internal/core/id"
	"supplyhub/internal/domain"
	"supplyhub/pkg/logger"
)

// ReturnItemInput is one requested return line.
type ReturnItemInput struct {
	SupplyOrderItemID id.ID
	QuantityReturned  int64
	ReturnReason      string
	Condition         ItemCondition
}

// CreateReturnInput carries a batch return request.
type CreateReturnInput struct {
	SupplyOrderID id.ID
	Notes         string
	ReturnDate    *time.Time
	Items         []ReturnItemInput
}

// Validate checks the request shape before any lock is taken.
func (in CreateReturnInput) Validate() error {
	if id.IsNil(in.SupplyOrderID) {
		return apperror.NewValidation("supply order is required").WithDetail("field", "supply_order_id")
	}
	if len(in.Items) == 0 {
		return apperror.NewValidation("at least one item is required").WithDetail("field", "items")
	}
	for i, item := range in.Items {
		line := i + 1
		if id.IsNil(item.SupplyOrderItemID) {
			return apperror.NewValidation("supply order item is required").
				WithDetail("field", "items").WithDetail("line_no", line)
		}
		if item.QuantityReturned <= 0 {
			return apperror.NewValidation("quantity_returned must be positive").
				WithDetail("field", "items").WithDetail("line_no", line)
		}
		if !item.Condition.Valid() {
			return apperror.NewValidation("unknown condition").
				WithDetail("field", "items").WithDetail("line_no", line).
				WithDetail("condition", string(item.Condition))
		}
	}
	return nil
}

// ReturnProcessor records returns of supplied goods that are not yet paid for.
type ReturnProcessor struct {
	core
}

// NewReturnProcessor creates the processor.
func NewReturnProcessor(deps Deps) *ReturnProcessor {
	return &ReturnProcessor{core: newCore(deps)}
}

// CreateReturn validates the whole batch against the locked order, then
// stores the return and moves the returned quantities onto the order items.
// Nothing is written when any line fails.
func (p *ReturnProcessor) CreateReturn(ctx context.Context, in CreateReturnInput) (*SupplyReturn, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var (
		ret   *SupplyReturn
		order *SupplyOrder
	)
	err := p.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = p.lockOrder(ctx, in.SupplyOrderID)
		if err != nil {
			return err
		}

		// Any payment settles the consignment, so the lock wins over the
		// completed state.
		if order.TotalPaid.IsPositive() {
			return apperror.NewPaymentLock(order.TotalPaid.String())
		}
		status := DeriveStatus(order)
		if isClosed(status) {
			return apperror.NewInvalidState("returns are not accepted for this order", string(status))
		}

		requested, err := requestedQuantities(order, in.Items)
		if err != nil {
			return err
		}
		for itemID, qty := range requested {
			item := order.Item(itemID)
			if pending := item.Pending(); qty > pending {
				return apperror.NewInvalidQuantity(itemID.String(), qty, pending)
			}
		}

		returnDate := p.now()
		if in.ReturnDate != nil {
			returnDate = in.ReturnDate.UTC()
		}
		ret = newSupplyReturn(order, in.Notes, returnDate)
		for _, line := range in.Items {
			item := order.Item(line.SupplyOrderItemID)
			ret.addItem(item, line.QuantityReturned, line.ReturnReason, line.Condition)
			item.QuantityReturned += line.QuantityReturned
		}

		number, err := p.nextNumber(ctx, ReturnPrefix, returnDate)
		if err != nil {
			return err
		}
		ret.Number = number

		if err := p.Returns.Create(ctx, ret); err != nil {
			return fmt.Errorf("create return: %w", err)
		}
		if err := p.saveOrderState(ctx, order, true); err != nil {
			return err
		}
		if err := p.audit(ctx, AggregateOrder, order.ID, domain.AuditActionReturn, map[string]any{
			"supply_return_id":      ret.ID.String(),
			"number":                ret.Number,
			"total_returned_amount": ret.TotalReturnedAmount.String(),
			"status":                change(status, order.Status),
			"quantities":            order.Totals(),
		}); err != nil {
			return err
		}
		return p.publish(ctx, AggregateReturn, ret.ID, EventReturnCreated, returnEvent(ret, order))
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "supply return created",
		"id", ret.ID,
		"number", ret.Number,
		"supply_order_id", order.ID,
		"amount", ret.TotalReturnedAmount.String(),
		"order_status", order.Status,
	)
	return ret, nil
}

// requestedQuantities sums lines per order item and checks ownership.
func requestedQuantities(order *SupplyOrder, lines []ReturnItemInput) (map[id.ID]int64, error) {
	requested := make(map[id.ID]int64, len(lines))
	for _, line := range lines {
		if order.Item(line.SupplyOrderItemID) == nil {
			return nil, apperror.NewNotFound("supply_order_item", line.SupplyOrderItemID.String()).
				WithDetail("supply_order_id", order.ID.String())
		}
		requested[line.SupplyOrderItemID] += line.QuantityReturned
	}
	return requested, nil
}

// Get returns a return with its items.
func (p *ReturnProcessor) Get(ctx context.Context, returnID id.ID) (*SupplyReturn, error) {
	ret, err := p.Returns.GetByID(ctx, returnID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	if err := checkStoreAccess(ctx, ret.StoreID); err != nil {
		return nil, err
	}
	return ret, nil
}

// List returns supply returns.
func (p *ReturnProcessor) List(ctx context.Context, filter ReturnListFilter) (domain.ListResult[*SupplyReturn], error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return domain.ListResult[*SupplyReturn]{}, apperror.NewValidation("unknown status").
			WithDetail("status", string(*filter.Status))
	}
	scoped, err := scopeStores(ctx, filter.StoreID)
	if err != nil {
		return domain.ListResult[*SupplyReturn]{}, err
	}
	filter.StoreIDs = scoped
	filter.Normalize()

	result, err := p.Returns.List(ctx, filter)
	if err != nil {
		return result, apperror.Wrap(err)
	}
	return result, nil
}
