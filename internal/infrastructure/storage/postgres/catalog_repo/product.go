package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"supplyhub/internal/core/apperror"
	"supplyhub/internal/core/id"
	"supplyhub/internal/domain/documents/supply"
	"supplyhub/internal/infrastructure/storage/postgres"
)

const productTable = "products"

// ProductRepo implements supply.ProductStockLookup.
type ProductRepo struct {
	reader
}

var _ supply.ProductStockLookup = (*ProductRepo)(nil)

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{reader: reader{txManager: txManager}}
}

func productQuery(productID, storeID id.ID) squirrel.SelectBuilder {
	return builder.
		Select("id", "store_id", "name", "price", "quantity_on_hand").
		From(productTable).
		Where(squirrel.Eq{"id": productID, "store_id": storeID}).
		Where(squirrel.Eq{"deleted_at": nil})
}

// GetProduct returns the product as sold in the store.
func (r *ProductRepo) GetProduct(ctx context.Context, productID, storeID id.ID) (*supply.ProductSnapshot, error) {
	var p supply.ProductSnapshot
	found, err := r.findOne(ctx, &p, productQuery(productID, storeID))
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if !found {
		return nil, apperror.NewNotFound("product", productID.String()).
			WithDetail("store_id", storeID.String())
	}
	return &p, nil
}
