package supply

import (
	"context"
	"fmt"
	"time"

	"supplyhub/internal/core/apperror"
	"supplyhub/internal/core/id"
	"supplyhub/internal/core/types"
	"supplyhub/internal/domain"
	"supplyhub/pkg/logger"
)

// CreatePaymentInput carries a payment collected out-of-band.
type CreatePaymentInput struct {
	SupplyOrderID id.ID
	AmountPaid    types.Money
	PaymentMethod PaymentMethod
	PaymentDate   *time.Time
	Notes         string
}

// Validate checks the request shape before any lock is taken.
func (in CreatePaymentInput) Validate() error {
	if id.IsNil(in.SupplyOrderID) {
		return apperror.NewValidation("supply order is required").WithDetail("field", "supply_order_id")
	}
	if !in.AmountPaid.IsPositive() {
		return apperror.NewValidation("amount_paid must be positive").WithDetail("field", "amount_paid")
	}
	if !in.AmountPaid.Equal(types.Round(in.AmountPaid)) {
		return apperror.NewValidation("amount_paid has too many decimal places").
			WithDetail("field", "amount_paid").
			WithDetail("max_scale", types.MoneyScale)
	}
	if !in.PaymentMethod.Valid() {
		return apperror.NewValidation("unknown payment method").
			WithDetail("field", "payment_method").
			WithDetail("payment_method", string(in.PaymentMethod))
	}
	return nil
}

// PaymentProcessor records payments and completes fully paid orders.
type PaymentProcessor struct {
	core
}

// NewPaymentProcessor creates the processor.
func NewPaymentProcessor(deps Deps) *PaymentProcessor {
	return &PaymentProcessor{core: newCore(deps)}
}

// CreatePayment records a payment against the locked order. When the balance
// reaches zero the pending quantities become accepted and the order completes.
func (p *PaymentProcessor) CreatePayment(ctx context.Context, in CreatePaymentInput) (*SupplyPayment, *SupplyOrder, error) {
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		payment *SupplyPayment
		order   *SupplyOrder
	)
	err := p.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = p.lockOrder(ctx, in.SupplyOrderID)
		if err != nil {
			return err
		}

		status := DeriveStatus(order)
		if status == StatusCancelled {
			return apperror.NewInvalidState("payments are not accepted for a cancelled order", string(status))
		}

		remaining := order.Outstanding()
		if in.AmountPaid.GreaterThan(remaining) {
			return apperror.NewOverpayment(in.AmountPaid.String(), remaining.String())
		}

		paidAt := p.now()
		if in.PaymentDate != nil {
			paidAt = in.PaymentDate.UTC()
		}
		payment = newSupplyPayment(order, in.PaymentMethod, in.AmountPaid, in.Notes, paidAt)

		number, err := p.nextNumber(ctx, PaymentPrefix, paidAt)
		if err != nil {
			return err
		}
		payment.Number = number

		if err := p.Payments.Create(ctx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		order.TotalPaid = order.TotalPaid.Add(in.AmountPaid)
		completed := order.TotalPaid.GreaterThanOrEqual(order.TotalAmount)
		if completed {
			order.AcceptPending()
		}
		if err := p.saveOrderState(ctx, order, completed); err != nil {
			return err
		}

		if err := p.audit(ctx, AggregateOrder, order.ID, domain.AuditActionPay, map[string]any{
			"supply_payment_id": payment.ID.String(),
			"number":            payment.Number,
			"amount_paid":       payment.AmountPaid.String(),
			"total_paid":        order.TotalPaid.String(),
			"status":            change(status, order.Status),
		}); err != nil {
			return err
		}
		if err := p.publish(ctx, AggregatePayment, payment.ID, EventPaymentCreated, paymentEvent(payment, order)); err != nil {
			return err
		}
		if completed {
			return p.publish(ctx, AggregateOrder, order.ID, EventOrderCompleted, orderEvent(order))
		}
		return nil
	})
	if err != nil {
		return nil, nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "supply payment created",
		"id", payment.ID,
		"number", payment.Number,
		"supply_order_id", order.ID,
		"amount", payment.AmountPaid.String(),
		"order_status", order.Status,
	)
	return payment, order, nil
}

// Get returns a payment.
func (p *PaymentProcessor) Get(ctx context.Context, paymentID id.ID) (*SupplyPayment, error) {
	payment, err := p.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	if err := checkStoreAccess(ctx, payment.StoreID); err != nil {
		return nil, err
	}
	return payment, nil
}

// List returns supply payments.
func (p *PaymentProcessor) List(ctx context.Context, filter PaymentListFilter) (domain.ListResult[*SupplyPayment], error) {
	scoped, err := scopeStores(ctx, filter.StoreID)
	if err != nil {
		return domain.ListResult[*SupplyPayment]{}, err
	}
	filter.StoreIDs = scoped
	filter.Normalize()

	result, err := p.Payments.List(ctx, filter)
	if err != nil {
		return result, apperror.Wrap(err)
	}
	return result, nil
}
