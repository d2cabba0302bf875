package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplyhub/internal/core/id"
	"supplyhub/internal/core/types"
	"supplyhub/internal/domain/documents/supply"
)

func TestCreateSupplyOrderRequest_ToInput(t *testing.T) {
	userID := id.New().String()
	productID := id.New()
	price := types.MustMoney("12.50")

	req := CreateSupplyOrderRequest{
		StoreID:    id.New().String(),
		CustomerID: id.New().String(),
		Items: []SupplyOrderItemRequest{
			{ProductID: productID.String(), QuantitySupplied: 3, UnitPrice: &price},
			{ProductID: productID.String(), QuantitySupplied: 1},
		},
	}

	in := req.ToInput(userID)
	assert.Equal(t, userID, in.CashierID.String(), "cashier defaults to the caller")
	require.Len(t, in.Items, 2)
	assert.Equal(t, productID, in.Items[0].ProductID)
	assert.True(t, in.Items[0].UnitPrice.Equal(price))
	assert.Nil(t, in.Items[1].UnitPrice)
}

func TestCreateSupplyReturnRequest_DefaultsCondition(t *testing.T) {
	req := CreateSupplyReturnRequest{
		SupplyOrderID: id.New().String(),
		Items: []SupplyReturnItemRequest{
			{SupplyOrderItemID: id.New().String(), QuantityReturned: 2},
			{SupplyOrderItemID: id.New().String(), QuantityReturned: 1, Condition: "damaged"},
		},
	}

	in := req.ToInput()
	assert.Equal(t, supply.ConditionGood, in.Items[0].Condition)
	assert.Equal(t, supply.ConditionDamaged, in.Items[1].Condition)
}

func TestSupplyOrderListRequest_ToFilter(t *testing.T) {
	storeID := id.New()
	req := SupplyOrderListRequest{
		PaginationRequest: PaginationRequest{Limit: 10, Offset: 20},
		StoreID:           storeID.String(),
		Status:            "completed",
	}

	f := req.ToFilter()
	require.NotNil(t, f.StoreID)
	assert.Equal(t, storeID, *f.StoreID)
	assert.Nil(t, f.CustomerID)
	require.NotNil(t, f.Status)
	assert.Equal(t, supply.StatusCompleted, *f.Status)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 20, f.Offset)
}

func TestFromSupplyOrder_SnakeCaseMoney(t *testing.T) {
	order := supply.NewSupplyOrder(id.New(), id.New(), id.New())
	order.AddItem(id.New(), 10, types.MustMoney("100"))
	order.ApplyDiscountRate(types.MustMoney("10"))
	order.TotalPaid = types.MustMoney("400")

	data, err := json.Marshal(FromSupplyOrder(order))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "1000.00", got["subtotal"])
	assert.Equal(t, "100.00", got["discount_amount"])
	assert.Equal(t, "900.00", got["total_amount"])
	assert.Equal(t, "500.00", got["remaining_amount"])
	assert.Equal(t, "supplied", got["status"])

	items := got["items"].([]any)
	require.Len(t, items, 1)
	assert.EqualValues(t, 10, items[0].(map[string]any)["quantity_pending"])
}

func TestPaymentAmountAcceptsNumberAndString(t *testing.T) {
	for _, body := range []string{
		`{"supply_order_id":"x","amount_paid":400.5,"payment_method":"cash"}`,
		`{"supply_order_id":"x","amount_paid":"400.50","payment_method":"cash"}`,
	} {
		var req CreateSupplyPaymentRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))
		assert.True(t, req.AmountPaid.Equal(types.MustMoney("400.5")), body)
	}
}
