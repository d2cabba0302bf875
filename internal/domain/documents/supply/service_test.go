package supply

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplyhub/internal/core/apperror"
	appctx "supplyhub/internal/core/context"
	"supplyhub/internal/core/id"
	"supplyhub/internal/core/numerator"
	"supplyhub/internal/core/types"
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memStore
	rec      *recorder
	numbers  *pausingNumbers
	orders   *OrderManager
	returns  *ReturnProcessor
	payments *PaymentProcessor

	storeID   id.ID
	productA  id.ID
	productB  id.ID
	customer  id.ID
	cashierID id.ID
}

func newFixture(t *testing.T, rate string) *fixture {
	t.Helper()

	f := &fixture{
		store:     newMemStore(),
		rec:       &recorder{},
		numbers:   &pausingNumbers{Generator: &numerator.MockGenerator{}},
		storeID:   id.New(),
		productA:  id.New(),
		productB:  id.New(),
		customer:  id.New(),
		cashierID: id.New(),
	}
	deps := Deps{
		Orders:         memOrders{f.store},
		Returns:        memReturns{f.store},
		Payments:       memPayments{f.store},
		TxManager:      f.store.txManager(),
		Numerator:      f.numbers,
		NumberStrategy: numerator.StrategyCached,
		Events:         f.rec,
		Audit:          f.rec,
		Now:            func() time.Time { return fixedNow },
	}
	products := catalog{f.productA: types.MustMoney("100"), f.productB: types.MustMoney("25.50")}

	f.orders = NewOrderManager(deps, products, FixedRate(types.MustMoney(rate)))
	f.returns = NewReturnProcessor(deps)
	f.payments = NewPaymentProcessor(deps)
	return f
}

func money(s string) *types.Money {
	m := types.MustMoney(s)
	return &m
}

func assertMoney(t *testing.T, want string, got types.Money) {
	t.Helper()
	assert.True(t, types.MustMoney(want).Equal(got), "want %s, got %s", want, got)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

// createTenOfA creates 10 × A at 100 with the fixture's discount rate.
func (f *fixture) createTenOfA(t *testing.T) *SupplyOrder {
	t.Helper()
	supplyDate := fixedNow
	order, err := f.orders.Create(context.Background(), CreateOrderInput{
		StoreID:    f.storeID,
		CustomerID: f.customer,
		CashierID:  f.cashierID,
		SupplyDate: &supplyDate,
		Items: []OrderItemInput{
			{ProductID: f.productA, QuantitySupplied: 10, UnitPrice: money("100")},
		},
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) returnQty(ctx context.Context, order *SupplyOrder, qty int64) (*SupplyReturn, error) {
	return f.returns.CreateReturn(ctx, CreateReturnInput{
		SupplyOrderID: order.ID,
		Items: []ReturnItemInput{
			{SupplyOrderItemID: order.Items[0].ID, QuantityReturned: qty, Condition: ConditionGood},
		},
	})
}

func (f *fixture) pay(ctx context.Context, order *SupplyOrder, amount string) (*SupplyPayment, *SupplyOrder, error) {
	return f.payments.CreatePayment(ctx, CreatePaymentInput{
		SupplyOrderID: order.ID,
		AmountPaid:    types.MustMoney(amount),
		PaymentMethod: PaymentCash,
	})
}

func TestReconciliationScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "10")

	order := f.createTenOfA(t)
	assertMoney(t, "1000", order.Subtotal)
	assertMoney(t, "100", order.DiscountAmount)
	assertMoney(t, "900", order.TotalAmount)
	assert.Equal(t, "SUP-000001-2026", order.Number)
	assert.Equal(t, StatusSupplied, order.Status)

	ret, err := f.returnQty(ctx, order, 4)
	require.NoError(t, err)
	assert.Equal(t, "RET-000001-2026", ret.Number)
	assert.Equal(t, ReturnPending, ret.Status)
	assertMoney(t, "400", ret.TotalReturnedAmount)

	stored, err := f.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stored.Items[0].QuantityReturned)
	assert.Equal(t, int64(6), stored.Items[0].Pending())
	assert.Equal(t, StatusPartiallyReturned, stored.Status)

	payment, paid, err := f.pay(ctx, order, "900")
	require.NoError(t, err)
	assert.Equal(t, "PAY-000001-2026", payment.Number)
	assert.Equal(t, StatusCompleted, paid.Status)
	assert.Equal(t, int64(6), paid.Items[0].QuantityAccepted)
	assert.Equal(t, int64(0), paid.Items[0].Pending())

	_, err = f.returnQty(ctx, order, 2)
	assertCode(t, err, apperror.CodePaymentLock)

	assert.Equal(t, []string{
		EventOrderCreated,
		EventReturnCreated,
		EventPaymentCreated,
		EventOrderCompleted,
	}, f.rec.eventTypes())
}

func TestOrderManager_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("missing customer is rejected before any write", func(t *testing.T) {
		f := newFixture(t, "0")
		_, err := f.orders.Create(ctx, CreateOrderInput{
			StoreID:   f.storeID,
			CashierID: f.cashierID,
			Items:     []OrderItemInput{{ProductID: f.productA, QuantitySupplied: 1}},
		})
		assertCode(t, err, apperror.CodeValidation)
		assert.Zero(t, f.store.writeCount())
	})

	t.Run("empty items", func(t *testing.T) {
		f := newFixture(t, "0")
		_, err := f.orders.Create(ctx, CreateOrderInput{StoreID: f.storeID, CustomerID: f.customer, CashierID: f.cashierID})
		assertCode(t, err, apperror.CodeValidation)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		f := newFixture(t, "0")
		_, err := f.orders.Create(ctx, CreateOrderInput{
			StoreID: f.storeID, CustomerID: f.customer, CashierID: f.cashierID,
			Items: []OrderItemInput{{ProductID: f.productA, QuantitySupplied: 0, UnitPrice: money("1")}},
		})
		assertCode(t, err, apperror.CodeValidation)
	})

	t.Run("negative price", func(t *testing.T) {
		f := newFixture(t, "0")
		_, err := f.orders.Create(ctx, CreateOrderInput{
			StoreID: f.storeID, CustomerID: f.customer, CashierID: f.cashierID,
			Items: []OrderItemInput{{ProductID: f.productA, QuantitySupplied: 1, UnitPrice: money("-1")}},
		})
		assertCode(t, err, apperror.CodeValidation)
	})

	t.Run("omitted price falls back to catalog", func(t *testing.T) {
		f := newFixture(t, "0")
		order, err := f.orders.Create(ctx, CreateOrderInput{
			StoreID: f.storeID, CustomerID: f.customer, CashierID: f.cashierID,
			Items: []OrderItemInput{{ProductID: f.productB, QuantitySupplied: 2}},
		})
		require.NoError(t, err)
		assertMoney(t, "25.50", order.Items[0].UnitPrice)
		assertMoney(t, "51", order.TotalAmount)
	})

	t.Run("unknown catalog product", func(t *testing.T) {
		f := newFixture(t, "0")
		_, err := f.orders.Create(ctx, CreateOrderInput{
			StoreID: f.storeID, CustomerID: f.customer, CashierID: f.cashierID,
			Items: []OrderItemInput{{ProductID: id.New(), QuantitySupplied: 2}},
		})
		assertCode(t, err, apperror.CodeNotFound)
	})

	t.Run("zero quantity is checked before the catalog", func(t *testing.T) {
		f := newFixture(t, "0")
		_, err := f.orders.Create(ctx, CreateOrderInput{
			StoreID: f.storeID, CustomerID: f.customer, CashierID: f.cashierID,
			Items: []OrderItemInput{{ProductID: id.New(), QuantitySupplied: 0}},
		})
		assertCode(t, err, apperror.CodeValidation)
		assert.Zero(t, f.store.writeCount())
	})

	t.Run("expected return date is stored in UTC", func(t *testing.T) {
		f := newFixture(t, "0")
		supplyDate := fixedNow
		due := time.Date(2026, 4, 1, 18, 0, 0, 0, time.FixedZone("MSK", 3*60*60))
		order, err := f.orders.Create(ctx, CreateOrderInput{
			StoreID: f.storeID, CustomerID: f.customer, CashierID: f.cashierID,
			SupplyDate:         &supplyDate,
			ExpectedReturnDate: &due,
			Items:              []OrderItemInput{{ProductID: f.productA, QuantitySupplied: 1, UnitPrice: money("1")}},
		})
		require.NoError(t, err)
		require.NotNil(t, order.ExpectedReturnDate)
		assert.Equal(t, time.UTC, order.ExpectedReturnDate.Location())
		assert.True(t, due.Equal(*order.ExpectedReturnDate))
	})

	t.Run("totals do not depend on item order", func(t *testing.T) {
		f := newFixture(t, "12.5")
		items := []OrderItemInput{
			{ProductID: f.productA, QuantitySupplied: 3, UnitPrice: money("19.99")},
			{ProductID: f.productB, QuantitySupplied: 7, UnitPrice: money("0.33")},
		}
		first, err := f.orders.Create(ctx, CreateOrderInput{StoreID: f.storeID, CustomerID: f.customer, CashierID: f.cashierID, Items: items})
		require.NoError(t, err)

		reversed := []OrderItemInput{items[1], items[0]}
		second, err := f.orders.Create(ctx, CreateOrderInput{StoreID: f.storeID, CustomerID: f.customer, CashierID: f.cashierID, Items: reversed})
		require.NoError(t, err)

		assert.True(t, first.TotalAmount.Equal(second.TotalAmount))
		for _, o := range []*SupplyOrder{first, second} {
			assert.True(t, o.TotalAmount.Equal(o.Subtotal.Sub(o.DiscountAmount).Add(o.TaxAmount)))
		}
		assert.Contains(t, second.Number, "SUP-000002-")
	})

	t.Run("store outside user scope", func(t *testing.T) {
		f := newFixture(t, "0")
		userCtx := appctx.WithUser(ctx, &appctx.UserContext{UserID: "u1", StoreIDs: []string{id.New().String()}})
		_, err := f.orders.Create(userCtx, CreateOrderInput{
			StoreID: f.storeID, CustomerID: f.customer, CashierID: f.cashierID,
			Items: []OrderItemInput{{ProductID: f.productA, QuantitySupplied: 1, UnitPrice: money("1")}},
		})
		assertCode(t, err, apperror.CodeForbidden)
	})
}

func TestReturnProcessor_CreateReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("quantity above pending rejects the whole batch", func(t *testing.T) {
		f := newFixture(t, "10")
		order := f.createTenOfA(t)
		_, err := f.returnQty(ctx, order, 4)
		require.NoError(t, err)
		writes := f.store.writeCount()

		_, err = f.returnQty(ctx, order, 7)
		assertCode(t, err, apperror.CodeInvalidQuantity)
		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, int64(6), appErr.Details["returnable"])

		assert.Equal(t, writes, f.store.writeCount())
		stored, err := f.orders.Get(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(4), stored.Items[0].QuantityReturned)
	})

	t.Run("duplicate lines are summed", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)
		line := ReturnItemInput{SupplyOrderItemID: order.Items[0].ID, QuantityReturned: 6, Condition: ConditionDamaged}

		_, err := f.returns.CreateReturn(ctx, CreateReturnInput{SupplyOrderID: order.ID, Items: []ReturnItemInput{line, line}})
		assertCode(t, err, apperror.CodeInvalidQuantity)
	})

	t.Run("full return", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)
		_, err := f.returnQty(ctx, order, 10)
		require.NoError(t, err)

		stored, err := f.orders.Get(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusFullyReturned, stored.Status)
	})

	t.Run("item of another order", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)
		other := f.createTenOfA(t)

		_, err := f.returns.CreateReturn(ctx, CreateReturnInput{
			SupplyOrderID: order.ID,
			Items:         []ReturnItemInput{{SupplyOrderItemID: other.Items[0].ID, QuantityReturned: 1, Condition: ConditionGood}},
		})
		assertCode(t, err, apperror.CodeNotFound)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newFixture(t, "0")
		_, err := f.returns.CreateReturn(ctx, CreateReturnInput{
			SupplyOrderID: id.New(),
			Items:         []ReturnItemInput{{SupplyOrderItemID: id.New(), QuantityReturned: 1, Condition: ConditionGood}},
		})
		assertCode(t, err, apperror.CodeNotFound)
	})

	t.Run("any payment locks returns", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)
		_, _, err := f.pay(ctx, order, "0.01")
		require.NoError(t, err)

		_, err = f.returnQty(ctx, order, 1)
		assertCode(t, err, apperror.CodePaymentLock)
	})

	t.Run("cancelled order", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)
		_, err := f.orders.Cancel(ctx, order.ID)
		require.NoError(t, err)

		_, err = f.returnQty(ctx, order, 1)
		assertCode(t, err, apperror.CodeInvalidState)
	})

	t.Run("invalid condition", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)
		_, err := f.returns.CreateReturn(ctx, CreateReturnInput{
			SupplyOrderID: order.ID,
			Items:         []ReturnItemInput{{SupplyOrderItemID: order.Items[0].ID, QuantityReturned: 1, Condition: "lost"}},
		})
		assertCode(t, err, apperror.CodeValidation)
	})
}

func TestPaymentProcessor_CreatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("overpayment leaves the balance unchanged", func(t *testing.T) {
		f := newFixture(t, "10")
		order := f.createTenOfA(t)

		_, _, err := f.pay(ctx, order, "950")
		assertCode(t, err, apperror.CodeOverpayment)

		sum, err := memPayments{f.store}.SumByOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.True(t, sum.IsZero())
	})

	t.Run("partial payments complete the order on the last one", func(t *testing.T) {
		f := newFixture(t, "10")
		order := f.createTenOfA(t)

		_, first, err := f.pay(ctx, order, "400")
		require.NoError(t, err)
		assert.Equal(t, StatusSupplied, first.Status)
		assert.Equal(t, int64(0), first.Items[0].QuantityAccepted)

		_, _, err2nd := f.payments.CreatePayment(ctx, CreatePaymentInput{
			SupplyOrderID: order.ID, AmountPaid: types.MustMoney("500.01"), PaymentMethod: PaymentCard,
		})
		assertCode(t, err2nd, apperror.CodeOverpayment)

		payment, last, err := f.pay(ctx, order, "500")
		require.NoError(t, err)
		assert.Equal(t, "PAY-000002-2026", payment.Number)
		assert.Equal(t, StatusCompleted, last.Status)
		assertMoney(t, "900", last.TotalPaid)
		assert.Equal(t, int64(10), last.Items[0].QuantityAccepted)
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)

		for _, in := range []CreatePaymentInput{
			{SupplyOrderID: order.ID, AmountPaid: types.Zero(), PaymentMethod: PaymentCash},
			{SupplyOrderID: order.ID, AmountPaid: types.MustMoney("-5"), PaymentMethod: PaymentCash},
			{SupplyOrderID: order.ID, AmountPaid: types.MustMoney("1.005"), PaymentMethod: PaymentCash},
			{SupplyOrderID: order.ID, AmountPaid: types.MustMoney("10"), PaymentMethod: "cheque"},
		} {
			_, _, err := f.payments.CreatePayment(ctx, in)
			assertCode(t, err, apperror.CodeValidation)
		}
		assert.Empty(t, f.store.payments)
	})

	t.Run("cancelled order", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)
		_, err := f.orders.Cancel(ctx, order.ID)
		require.NoError(t, err)

		_, _, err = f.pay(ctx, order, "10")
		assertCode(t, err, apperror.CodeInvalidState)
	})

	t.Run("repository failure becomes database error", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)
		f.store.failPaymentCreate = errors.New("connection reset")

		_, _, err := f.pay(ctx, order, "10")
		assertCode(t, err, apperror.CodeDatabase)
	})
}

// contend runs first until it pauses in numbering for prefix with the order
// lock held, then starts second and lets first finish once second is waiting
// on the same lock.
func (f *fixture) contend(t *testing.T, prefix string, first, second func() error) (firstErr, secondErr error) {
	t.Helper()

	attempts := make(chan id.ID, 4)
	paused := make(chan struct{})
	resume := make(chan struct{})
	var once sync.Once
	f.store.lockAttempts = attempts
	f.numbers.pause = func(p string) {
		if p != prefix {
			return
		}
		once.Do(func() {
			close(paused)
			select {
			case <-resume:
			case <-time.After(2 * time.Second):
			}
		})
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstErr = first()
	}()

	select {
	case <-paused:
	case <-time.After(2 * time.Second):
		t.Fatal("first transaction never reached numbering")
	}
	<-attempts

	wg.Add(1)
	go func() {
		defer wg.Done()
		secondErr = second()
	}()
	select {
	case <-attempts:
	case <-time.After(time.Second):
	}
	close(resume)
	wg.Wait()
	return firstErr, secondErr
}

func TestConcurrentMutationsSerializeOnOrderLock(t *testing.T) {
	ctx := context.Background()

	t.Run("two full payments: one wins, the other overpays", func(t *testing.T) {
		f := newFixture(t, "10")
		order := f.createTenOfA(t)
		payFull := func() error {
			_, _, err := f.pay(ctx, order, "900")
			return err
		}

		firstErr, secondErr := f.contend(t, PaymentPrefix, payFull, payFull)
		require.NoError(t, firstErr)
		assertCode(t, secondErr, apperror.CodeOverpayment)

		sum, err := memPayments{f.store}.SumByOrder(ctx, order.ID)
		require.NoError(t, err)
		assertMoney(t, "900", sum)
		assert.Len(t, f.store.payments, 1)

		stored, err := f.orders.Get(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, stored.Status)
	})

	t.Run("return waiting on a payment is locked out", func(t *testing.T) {
		f := newFixture(t, "10")
		order := f.createTenOfA(t)

		payErr, returnErr := f.contend(t, PaymentPrefix,
			func() error {
				_, _, err := f.pay(ctx, order, "900")
				return err
			},
			func() error {
				_, err := f.returnQty(ctx, order, 4)
				return err
			},
		)
		require.NoError(t, payErr)
		assertCode(t, returnErr, apperror.CodePaymentLock)
		assert.Empty(t, f.store.returns)

		stored, err := f.orders.Get(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stored.Items[0].QuantityReturned)
		assert.Equal(t, int64(10), stored.Items[0].QuantityAccepted)
	})

	t.Run("payment waiting on a return sees the returned lines", func(t *testing.T) {
		f := newFixture(t, "10")
		order := f.createTenOfA(t)

		returnErr, payErr := f.contend(t, ReturnPrefix,
			func() error {
				_, err := f.returnQty(ctx, order, 4)
				return err
			},
			func() error {
				_, _, err := f.pay(ctx, order, "900")
				return err
			},
		)
		require.NoError(t, returnErr)
		require.NoError(t, payErr)

		stored, err := f.orders.Get(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, stored.Status)
		assert.Equal(t, int64(4), stored.Items[0].QuantityReturned)
		assert.Equal(t, int64(6), stored.Items[0].QuantityAccepted)
	})
}

func TestOrderManager_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("completed order is kept", func(t *testing.T) {
		f := newFixture(t, "10")
		order := f.createTenOfA(t)
		_, _, err := f.pay(ctx, order, "900")
		require.NoError(t, err)
		writes := f.store.writeCount()

		err = f.orders.Delete(ctx, order.ID)
		assertCode(t, err, apperror.CodeInvalidState)
		assert.Equal(t, 400, apperror.GetHTTPStatus(err))
		assert.Equal(t, writes, f.store.writeCount())

		_, err = f.orders.Get(ctx, order.ID)
		require.NoError(t, err)
	})

	t.Run("cascade removes returns", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)
		ret, err := f.returnQty(ctx, order, 3)
		require.NoError(t, err)

		require.NoError(t, f.orders.Delete(ctx, order.ID))

		_, err = f.orders.Get(ctx, order.ID)
		assertCode(t, err, apperror.CodeNotFound)
		_, err = f.returns.Get(ctx, ret.ID)
		assertCode(t, err, apperror.CodeNotFound)
	})
}

func TestOrderManager_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("unpaid order", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)

		cancelled, err := f.orders.Cancel(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)
		require.NotNil(t, cancelled.CancelledAt)
		assert.Equal(t, fixedNow, *cancelled.CancelledAt)
		assert.Contains(t, f.rec.eventTypes(), EventOrderCancelled)

		_, err = f.orders.Cancel(ctx, order.ID)
		assertCode(t, err, apperror.CodeInvalidState)
	})

	t.Run("paid order", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)
		_, _, err := f.pay(ctx, order, "1")
		require.NoError(t, err)

		_, err = f.orders.Cancel(ctx, order.ID)
		assertCode(t, err, apperror.CodeInvalidState)
	})
}

func TestOrderManager_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("whitelisted fields", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)
		notes := "deliver to back door"
		customer := id.New()

		updated, err := f.orders.Update(ctx, order.ID, UpdateOrderInput{Notes: &notes, CustomerID: &customer})
		require.NoError(t, err)
		assert.Equal(t, notes, updated.Notes)
		assert.Equal(t, customer, updated.CustomerID)
		assert.Equal(t, order.Version+1, updated.Version)
	})

	t.Run("dates are normalised to UTC", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)
		due := time.Date(2026, 4, 1, 9, 30, 0, 0, time.FixedZone("EST", -5*60*60))

		updated, err := f.orders.Update(ctx, order.ID, UpdateOrderInput{ExpectedReturnDate: &due})
		require.NoError(t, err)
		require.NotNil(t, updated.ExpectedReturnDate)
		assert.Equal(t, time.UTC, updated.ExpectedReturnDate.Location())
		assert.True(t, due.Equal(*updated.ExpectedReturnDate))
		assert.Equal(t, order.Version+1, updated.Version)
	})

	t.Run("resending the same dates changes nothing", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)
		due := fixedNow.AddDate(0, 0, 14)
		current, err := f.orders.Update(ctx, order.ID, UpdateOrderInput{ExpectedReturnDate: &due})
		require.NoError(t, err)

		audits := len(f.rec.audits)
		writes := f.store.writeCount()
		// Same instants, different zone.
		zone := time.FixedZone("MSK", 3*60*60)
		supplyDate := current.SupplyDate.In(zone)
		sameDue := due.In(zone)

		updated, err := f.orders.Update(ctx, order.ID, UpdateOrderInput{SupplyDate: &supplyDate, ExpectedReturnDate: &sameDue})
		require.NoError(t, err)
		assert.Equal(t, current.Version, updated.Version)
		assert.Len(t, f.rec.audits, audits)
		assert.Equal(t, writes, f.store.writeCount())
	})

	t.Run("stale version", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)
		notes := "x"
		stale := order.Version + 5

		_, err := f.orders.Update(ctx, order.ID, UpdateOrderInput{Version: &stale, Notes: &notes})
		assertCode(t, err, apperror.CodeConcurrentModification)
	})

	t.Run("items replaced before any return", func(t *testing.T) {
		f := newFixture(t, "10")
		order := f.createTenOfA(t)

		updated, err := f.orders.Update(ctx, order.ID, UpdateOrderInput{
			Items: []OrderItemInput{{ProductID: f.productA, QuantitySupplied: 5, UnitPrice: money("100")}},
		})
		require.NoError(t, err)
		assertMoney(t, "450", updated.TotalAmount)
		assertMoney(t, "10", updated.DiscountRate)

		stored, err := f.orders.Get(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, stored.Items, 1)
		assert.Equal(t, int64(5), stored.Items[0].QuantitySupplied)
	})

	t.Run("items frozen after a return", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)
		_, err := f.returnQty(ctx, order, 1)
		require.NoError(t, err)

		_, err = f.orders.Update(ctx, order.ID, UpdateOrderInput{
			Items: []OrderItemInput{{ProductID: f.productA, QuantitySupplied: 5, UnitPrice: money("100")}},
		})
		assertCode(t, err, apperror.CodeInvalidState)
	})

	t.Run("completed order is frozen", func(t *testing.T) {
		f := newFixture(t, "0")
		order := f.createTenOfA(t)
		_, _, err := f.pay(ctx, order, "1000")
		require.NoError(t, err)
		notes := "late edit"

		_, err = f.orders.Update(ctx, order.ID, UpdateOrderInput{Notes: &notes})
		assertCode(t, err, apperror.CodeInvalidState)
	})
}

func TestOrderManager_ListAndDetails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "0")
	order := f.createTenOfA(t)
	_, err := f.returnQty(ctx, order, 2)
	require.NoError(t, err)
	_, _, err = f.pay(ctx, order, "100")
	require.NoError(t, err)

	details, err := f.orders.GetDetails(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, details.Returns, 1)
	assert.Len(t, details.Payments, 1)

	result, err := f.orders.List(ctx, OrderListFilter{StoreID: &f.storeID})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, int64(10), result.Items[0].Supplied)
	assert.Equal(t, int64(2), result.Items[0].Returned)
	assert.Equal(t, 50, result.Limit)

	bogus := OrderStatus("lost")
	_, err = f.orders.List(ctx, OrderListFilter{Status: &bogus})
	assertCode(t, err, apperror.CodeValidation)

	scoped := appctx.WithUser(ctx, &appctx.UserContext{UserID: "u2", StoreIDs: []string{id.New().String()}})
	result, err = f.orders.List(scoped, OrderListFilter{})
	require.NoError(t, err)
	assert.Empty(t, result.Items)

	_, err = f.orders.Get(scoped, order.ID)
	assertCode(t, err, apperror.CodeForbidden)

	returns, err := f.returns.List(ctx, ReturnListFilter{SupplyOrderID: &order.ID})
	require.NoError(t, err)
	assert.Len(t, returns.Items, 1)

	payments, err := f.payments.List(ctx, PaymentListFilter{SupplyOrderID: &order.ID})
	require.NoError(t, err)
	assert.Len(t, payments.Items, 1)
}
