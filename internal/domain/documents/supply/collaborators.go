package supply

import (
	"context"

	"supplyhub/internal/core/id"
	"supplyhub/internal/core/types"
)

// ProductSnapshot is the catalog view of a product in a store.
type ProductSnapshot struct {
	ProductID id.ID       `db:"id"`
	StoreID   id.ID       `db:"store_id"`
	Name      string      `db:"name"`
	Price     types.Money `db:"price"`
	OnHand    int64       `db:"quantity_on_hand"`
}

// ProductStockLookup reads catalog prices. Supplying goods never changes stock.
type ProductStockLookup interface {
	// GetProduct returns NOT_FOUND when the product is not sold in the store.
	GetProduct(ctx context.Context, productID, storeID id.ID) (*ProductSnapshot, error)
}
