package supply

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"supplyhub/internal/core/apperror"
	"supplyhub/internal/core/id"
	"supplyhub/internal/core/numerator"
	"supplyhub/internal/core/tx"
	"supplyhub/internal/core/types"
	"supplyhub/internal/domain"
)

// memStore is an in-memory backing store shared by the fake repositories.
// Values are copied on the way in and out so services cannot mutate it
// without going through a repository call.
type memStore struct {
	mu       sync.Mutex
	orders   map[id.ID]SupplyOrder
	items    map[id.ID][]SupplyOrderItem
	returns  map[id.ID]SupplyReturn
	payments map[id.ID]SupplyPayment
	writes   int

	// rowLocks stand in for SELECT ... FOR UPDATE on an order and its lines.
	rowLocks map[id.ID]*sync.Mutex
	// lockAttempts, when set, receives the order id before GetForUpdate blocks.
	lockAttempts chan id.ID

	failPaymentCreate error
}

func newMemStore() *memStore {
	return &memStore{
		orders:   make(map[id.ID]SupplyOrder),
		items:    make(map[id.ID][]SupplyOrderItem),
		returns:  make(map[id.ID]SupplyReturn),
		payments: make(map[id.ID]SupplyPayment),
		rowLocks: make(map[id.ID]*sync.Mutex),
	}
}

type heldLocksKey struct{}

// heldLocks are the row locks taken by one transaction.
type heldLocks struct {
	locks map[id.ID]*sync.Mutex
}

func (h *heldLocks) release() {
	for _, l := range h.locks {
		l.Unlock()
	}
}

// txManager runs fn as one transaction: row locks taken inside are released
// when fn returns. Nested calls join the outer transaction.
func (s *memStore) txManager() tx.Manager {
	return tx.Func(func(ctx context.Context, fn func(ctx context.Context) error) error {
		if _, ok := ctx.Value(heldLocksKey{}).(*heldLocks); ok {
			return fn(ctx)
		}
		held := &heldLocks{locks: make(map[id.ID]*sync.Mutex)}
		defer held.release()
		return fn(context.WithValue(ctx, heldLocksKey{}, held))
	})
}

func (s *memStore) rowLock(orderID id.ID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rowLocks[orderID]
	if !ok {
		l = &sync.Mutex{}
		s.rowLocks[orderID] = l
	}
	return l
}

var errNoTransaction = errors.New("row lock requested outside a transaction")

func (s *memStore) lockRow(ctx context.Context, orderID id.ID) error {
	held, ok := ctx.Value(heldLocksKey{}).(*heldLocks)
	if !ok {
		return errNoTransaction
	}
	if _, taken := held.locks[orderID]; taken {
		return nil
	}
	if s.lockAttempts != nil {
		select {
		case s.lockAttempts <- orderID:
		default:
		}
	}
	l := s.rowLock(orderID)
	l.Lock()
	held.locks[orderID] = l
	return nil
}

func (s *memStore) orderItems(orderID id.ID) []SupplyOrderItem {
	return append([]SupplyOrderItem(nil), s.items[orderID]...)
}

func (s *memStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type memOrders struct{ *memStore }

func (r memOrders) Create(_ context.Context, order *SupplyOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *order
	stored.Items = nil
	r.orders[order.ID] = stored
	r.writes++
	return nil
}

func (r memOrders) get(orderID id.ID) (*SupplyOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound(AggregateOrder, orderID.String())
	}
	return &stored, nil
}

func (r memOrders) GetByID(_ context.Context, orderID id.ID) (*SupplyOrder, error) {
	return r.get(orderID)
}

func (r memOrders) GetForUpdate(ctx context.Context, orderID id.ID) (*SupplyOrder, error) {
	if err := r.lockRow(ctx, orderID); err != nil {
		return nil, err
	}
	return r.get(orderID)
}

func (r memOrders) Update(_ context.Context, order *SupplyOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.ID]
	if !ok {
		return apperror.NewNotFound(AggregateOrder, order.ID.String())
	}
	if stored.Version != order.Version {
		return apperror.NewConcurrentModification(AggregateOrder, order.ID.String())
	}
	order.Version++
	next := *order
	next.Items = nil
	r.orders[order.ID] = next
	r.writes++
	return nil
}

func (r memOrders) DeleteCascade(_ context.Context, orderID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for retID, ret := range r.returns {
		if ret.SupplyOrderID == orderID {
			delete(r.returns, retID)
		}
	}
	for payID, p := range r.payments {
		if p.SupplyOrderID == orderID {
			delete(r.payments, payID)
		}
	}
	delete(r.items, orderID)
	delete(r.orders, orderID)
	r.writes++
	return nil
}

func (r memOrders) GetItems(_ context.Context, orderID id.ID) ([]SupplyOrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orderItems(orderID), nil
}

func (r memOrders) GetItemsForUpdate(ctx context.Context, orderID id.ID) ([]SupplyOrderItem, error) {
	if err := r.lockRow(ctx, orderID); err != nil {
		return nil, err
	}
	return r.GetItems(ctx, orderID)
}

func (r memOrders) SaveItems(_ context.Context, orderID id.ID, items []SupplyOrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[orderID] = append([]SupplyOrderItem(nil), items...)
	r.writes++
	return nil
}

func (r memOrders) UpdateItemCounters(_ context.Context, items []SupplyOrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		stored := r.items[item.SupplyOrderID]
		for i := range stored {
			if stored[i].ID == item.ID {
				stored[i].QuantityReturned = item.QuantityReturned
				stored[i].QuantityAccepted = item.QuantityAccepted
			}
		}
	}
	r.writes++
	return nil
}

func (r memOrders) List(_ context.Context, filter OrderListFilter) (domain.ListResult[*OrderSummary], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []*OrderSummary
	for _, o := range r.orders {
		if filter.StoreID != nil && o.StoreID != *filter.StoreID {
			continue
		}
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if len(filter.StoreIDs) > 0 && !containsID(filter.StoreIDs, o.StoreID) {
			continue
		}
		row := o
		row.Items = r.orderItems(o.ID)
		rows = append(rows, &OrderSummary{SupplyOrder: row, QuantityTotals: row.Totals()})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Number < rows[j].Number })
	return page(rows, filter.ListFilter), nil
}

type memReturns struct{ *memStore }

func (r memReturns) Create(_ context.Context, ret *SupplyReturn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *ret
	stored.Items = append([]SupplyReturnItem(nil), ret.Items...)
	r.returns[ret.ID] = stored
	r.writes++
	return nil
}

func (r memReturns) GetByID(_ context.Context, returnID id.ID) (*SupplyReturn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.returns[returnID]
	if !ok {
		return nil, apperror.NewNotFound(AggregateReturn, returnID.String())
	}
	return &stored, nil
}

func (r memReturns) ListByOrder(_ context.Context, orderID id.ID) ([]*SupplyReturn, error) {
	res, _ := r.List(context.Background(), ReturnListFilter{SupplyOrderID: &orderID, ListFilter: domain.ListFilter{Limit: domain.MaxLimit}})
	return res.Items, nil
}

func (r memReturns) List(_ context.Context, filter ReturnListFilter) (domain.ListResult[*SupplyReturn], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []*SupplyReturn
	for _, ret := range r.returns {
		if filter.StoreID != nil && ret.StoreID != *filter.StoreID {
			continue
		}
		if filter.SupplyOrderID != nil && ret.SupplyOrderID != *filter.SupplyOrderID {
			continue
		}
		if filter.Status != nil && ret.Status != *filter.Status {
			continue
		}
		if len(filter.StoreIDs) > 0 && !containsID(filter.StoreIDs, ret.StoreID) {
			continue
		}
		row := ret
		rows = append(rows, &row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Number < rows[j].Number })
	return page(rows, filter.ListFilter), nil
}

type memPayments struct{ *memStore }

func (r memPayments) Create(_ context.Context, payment *SupplyPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failPaymentCreate != nil {
		return r.failPaymentCreate
	}
	r.payments[payment.ID] = *payment
	r.writes++
	return nil
}

func (r memPayments) GetByID(_ context.Context, paymentID id.ID) (*SupplyPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.payments[paymentID]
	if !ok {
		return nil, apperror.NewNotFound(AggregatePayment, paymentID.String())
	}
	return &stored, nil
}

func (r memPayments) ListByOrder(_ context.Context, orderID id.ID) ([]*SupplyPayment, error) {
	res, _ := r.List(context.Background(), PaymentListFilter{SupplyOrderID: &orderID, ListFilter: domain.ListFilter{Limit: domain.MaxLimit}})
	return res.Items, nil
}

func (r memPayments) List(_ context.Context, filter PaymentListFilter) (domain.ListResult[*SupplyPayment], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []*SupplyPayment
	for _, p := range r.payments {
		if filter.StoreID != nil && p.StoreID != *filter.StoreID {
			continue
		}
		if filter.SupplyOrderID != nil && p.SupplyOrderID != *filter.SupplyOrderID {
			continue
		}
		if len(filter.StoreIDs) > 0 && !containsID(filter.StoreIDs, p.StoreID) {
			continue
		}
		row := p
		rows = append(rows, &row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Number < rows[j].Number })
	return page(rows, filter.ListFilter), nil
}

func (r memPayments) SumByOrder(_ context.Context, orderID id.ID) (types.Money, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := types.Zero()
	for _, p := range r.payments {
		if p.SupplyOrderID == orderID {
			sum = sum.Add(p.AmountPaid)
		}
	}
	return sum, nil
}

func containsID(ids []id.ID, target id.ID) bool {
	for _, v := range ids {
		if v == target {
			return true
		}
	}
	return false
}

func page[T any](rows []T, f domain.ListFilter) domain.ListResult[T] {
	total := len(rows)
	start := min(f.Offset, total)
	end := min(start+f.Limit, total)
	return domain.ListResult[T]{
		Items:      rows[start:end],
		TotalCount: int64(total),
		Limit:      f.Limit,
		Offset:     f.Offset,
	}
}

// pausingNumbers delegates to a Generator and calls pause first, while the
// caller still holds its row locks.
type pausingNumbers struct {
	numerator.Generator
	pause func(prefix string)
}

func (n *pausingNumbers) GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
	if n.pause != nil {
		n.pause(cfg.Prefix)
	}
	return n.Generator.GetNextNumber(ctx, cfg, opts, period)
}

// recorder captures outbox events and audit entries.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
	audits []domain.AuditAction
}

func (r *recorder) Publish(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) LogChange(_ context.Context, _ string, _ id.ID, action domain.AuditAction, _ map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, action)
	return nil
}

func (r *recorder) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

// catalog is a ProductStockLookup over a fixed price list.
type catalog map[id.ID]types.Money

func (c catalog) GetProduct(_ context.Context, productID, storeID id.ID) (*ProductSnapshot, error) {
	price, ok := c[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	return &ProductSnapshot{ProductID: productID, StoreID: storeID, Name: "product", Price: price, OnHand: 100}, nil
}
