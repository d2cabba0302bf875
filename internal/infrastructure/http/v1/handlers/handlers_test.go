package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplyhub/internal/core/apperror"
	"supplyhub/internal/core/id"
	"supplyhub/internal/core/types"
	"supplyhub/internal/domain"
	"supplyhub/internal/domain/documents/supply"
	"supplyhub/internal/infrastructure/http/v1/middleware"
	"supplyhub/internal/infrastructure/storage/postgres"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type fakeOrders struct {
	order     *supply.SupplyOrder
	createErr error
	created   supply.CreateOrderInput
	listed    supply.OrderListFilter
	deleted   []id.ID
}

func (f *fakeOrders) Create(_ context.Context, in supply.CreateOrderInput) (*supply.SupplyOrder, error) {
	f.created = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.order, nil
}

func (f *fakeOrders) Get(_ context.Context, orderID id.ID) (*supply.SupplyOrder, error) {
	if orderID != f.order.ID {
		return nil, apperror.NewNotFound("supply_order", orderID.String())
	}
	return f.order, nil
}

func (f *fakeOrders) GetDetails(ctx context.Context, orderID id.ID) (*supply.OrderDetails, error) {
	order, err := f.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &supply.OrderDetails{Order: order}, nil
}

func (f *fakeOrders) List(_ context.Context, filter supply.OrderListFilter) (domain.ListResult[*supply.OrderSummary], error) {
	f.listed = filter
	return domain.ListResult[*supply.OrderSummary]{
		Items:      []*supply.OrderSummary{{SupplyOrder: *f.order, QuantityTotals: f.order.Totals()}},
		TotalCount: 1,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

func (f *fakeOrders) Update(_ context.Context, _ id.ID, _ supply.UpdateOrderInput) (*supply.SupplyOrder, error) {
	return f.order, nil
}

func (f *fakeOrders) Delete(_ context.Context, orderID id.ID) error {
	if f.order.Status == supply.StatusCompleted {
		return apperror.NewInvalidState("completed orders cannot be deleted", string(f.order.Status))
	}
	f.deleted = append(f.deleted, orderID)
	return nil
}

func (f *fakeOrders) Cancel(_ context.Context, _ id.ID) (*supply.SupplyOrder, error) {
	return f.order, nil
}

type fakeHistory struct{}

func (fakeHistory) GetEntityHistory(_ context.Context, entityType string, entityID id.ID, _ int) ([]postgres.AuditEntry, error) {
	return []postgres.AuditEntry{{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     domain.AuditActionCreate,
		UserID:     "u-1",
		Changes:    json.RawMessage(`{"number":"SUP-000001-2026"}`),
	}}, nil
}

type fakePayments struct {
	order *supply.SupplyOrder
}

func (f *fakePayments) CreatePayment(_ context.Context, in supply.CreatePaymentInput) (*supply.SupplyPayment, *supply.SupplyOrder, error) {
	remaining := f.order.Outstanding()
	if in.AmountPaid.GreaterThan(remaining) {
		return nil, nil, apperror.NewOverpayment(in.AmountPaid.StringFixed(2), remaining.StringFixed(2))
	}
	f.order.TotalPaid = f.order.TotalPaid.Add(in.AmountPaid)
	f.order.Status = supply.DeriveStatus(f.order)
	return &supply.SupplyPayment{
		SupplyOrderID: f.order.ID,
		StoreID:       f.order.StoreID,
		PaymentMethod: in.PaymentMethod,
		AmountPaid:    in.AmountPaid,
	}, f.order, nil
}

func (f *fakePayments) Get(_ context.Context, paymentID id.ID) (*supply.SupplyPayment, error) {
	return nil, apperror.NewNotFound("supply_payment", paymentID.String())
}

func (f *fakePayments) List(_ context.Context, _ supply.PaymentListFilter) (domain.ListResult[*supply.SupplyPayment], error) {
	return domain.ListResult[*supply.SupplyPayment]{}, nil
}

func newOrder() *supply.SupplyOrder {
	order := supply.NewSupplyOrder(id.New(), id.New(), id.New())
	order.Number = "SUP-000001-2026"
	order.AddItem(id.New(), 10, types.MustMoney("100"))
	order.ApplyDiscountRate(types.MustMoney("10"))
	return order
}

func newRouter(orders OrderService, payments PaymentService) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	base := NewBaseHandler()
	NewSupplyOrderHandler(base, orders, fakeHistory{}).RegisterRoutes(r.Group("/supply-orders"))
	NewSupplyPaymentHandler(base, payments).RegisterRoutes(r.Group("/supply-payments"))
	return r
}

func do(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestSupplyOrderHandler_Create(t *testing.T) {
	orders := &fakeOrders{order: newOrder()}
	r := newRouter(orders, &fakePayments{})

	body := `{
		"store_id": "` + id.New().String() + `",
		"customer_id": "` + id.New().String() + `",
		"cashier_id": "` + id.New().String() + `",
		"items": [{"product_id": "` + id.New().String() + `", "quantity_supplied": 10, "unit_price": 100}]
	}`
	w, out := do(r, http.MethodPost, "/supply-orders", body)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, out["success"])
	order := out["supply_order"].(map[string]any)
	assert.Equal(t, "SUP-000001-2026", order["number"])
	assert.Equal(t, "900.00", order["total_amount"])
	require.Len(t, orders.created.Items, 1)
	assert.True(t, orders.created.Items[0].UnitPrice.Equal(types.MustMoney("100")))
}

func TestSupplyOrderHandler_CreateValidation(t *testing.T) {
	orders := &fakeOrders{order: newOrder()}
	r := newRouter(orders, &fakePayments{})

	w, out := do(r, http.MethodPost, "/supply-orders", `{"store_id":"nope","items":[]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, apperror.CodeValidation, out["code"])
	fields := out["details"].(map[string]any)["fields"].(map[string]any)
	assert.Equal(t, "uuid", fields["store_id"])
	assert.Equal(t, "required", fields["customer_id"])
}

func TestSupplyOrderHandler_GetAndList(t *testing.T) {
	orders := &fakeOrders{order: newOrder()}
	r := newRouter(orders, &fakePayments{})

	w, out := do(r, http.MethodGet, "/supply-orders/"+orders.order.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, orders.order.ID.String(), out["supply_order"].(map[string]any)["id"])

	w, out = do(r, http.MethodGet, "/supply-orders/"+id.New().String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperror.CodeNotFound, out["code"])

	w, _ = do(r, http.MethodGet, "/supply-orders/not-an-id", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	storeID := orders.order.StoreID.String()
	w, out = do(r, http.MethodGet, "/supply-orders?status=supplied&limit=5&store_id="+storeID, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rows := out["supply_orders"].([]any)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 10, rows[0].(map[string]any)["total_quantity_supplied"])
	assert.EqualValues(t, 1, out["pagination"].(map[string]any)["total"])
	require.NotNil(t, orders.listed.StoreID)
	assert.Equal(t, storeID, orders.listed.StoreID.String())
	assert.Equal(t, 5, orders.listed.Limit)
}

func TestSupplyOrderHandler_DeleteCompleted(t *testing.T) {
	orders := &fakeOrders{order: newOrder()}
	orders.order.Status = supply.StatusCompleted
	r := newRouter(orders, &fakePayments{})

	w, out := do(r, http.MethodDelete, "/supply-orders/"+orders.order.ID.String(), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeInvalidState, out["code"])
	assert.Empty(t, orders.deleted)
}

func TestSupplyOrderHandler_History(t *testing.T) {
	orders := &fakeOrders{order: newOrder()}
	r := newRouter(orders, &fakePayments{})

	w, out := do(r, http.MethodGet, "/supply-orders/"+orders.order.ID.String()+"/history", "")

	require.Equal(t, http.StatusOK, w.Code)
	history := out["history"].([]any)
	require.Len(t, history, 1)
	entry := history[0].(map[string]any)
	assert.Equal(t, "create", entry["action"])
	assert.Equal(t, "SUP-000001-2026", entry["changes"].(map[string]any)["number"])
}

func TestSupplyPaymentHandler_Create(t *testing.T) {
	order := newOrder()
	r := newRouter(&fakeOrders{order: order}, &fakePayments{order: order})

	payload := func(amount string) string {
		return `{"supply_order_id":"` + order.ID.String() + `","amount_paid":` + amount + `,"payment_method":"cash"}`
	}

	w, out := do(r, http.MethodPost, "/supply-payments", payload("950"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeOverpayment, out["code"])

	w, out = do(r, http.MethodPost, "/supply-payments", payload("900"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "900.00", out["supply_payment"].(map[string]any)["amount_paid"])
	assert.Equal(t, "completed", out["supply_order"].(map[string]any)["status"])

	w, out = do(r, http.MethodPost, "/supply-payments",
		`{"supply_order_id":"`+order.ID.String()+`","amount_paid":1,"payment_method":"barter"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "payment_method", out["details"].(map[string]any)["fields"].(map[string]any)["payment_method"])
}

type recordingFinisher struct {
	completed map[string]int
}

func (f *recordingFinisher) CompleteKey(_ context.Context, key string, statusCode int, _ string, _ any) error {
	f.completed[key] = statusCode
	return nil
}

func (f *recordingFinisher) FailKey(context.Context, string, int, string, any) error {
	return errors.New("unexpected")
}

func TestCompleteIdempotency(t *testing.T) {
	finisher := &recordingFinisher{completed: map[string]int{}}
	orders := &fakeOrders{order: newOrder()}

	r := gin.New()
	r.Use(middleware.ErrorHandler(), func(c *gin.Context) {
		c.Set(middleware.ContextIdempotencyKey, "k-9")
		c.Set(middleware.ContextIdempotencyStore, middleware.IdempotencyFinisher(finisher))
	})
	NewSupplyOrderHandler(NewBaseHandler(), orders, fakeHistory{}).RegisterRoutes(r.Group("/supply-orders"))

	w, _ := do(r, http.MethodPost, "/supply-orders/"+orders.order.ID.String()+"/cancel", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, finisher.completed["k-9"])
}
