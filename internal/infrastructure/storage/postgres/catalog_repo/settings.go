package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"supplyhub/internal/core/id"
	"supplyhub/internal/domain/documents/supply"
	"supplyhub/internal/infrastructure/storage/postgres"
)

// SettingsRepo reads discount settings. It implements supply.SettingsSource.
type SettingsRepo struct {
	reader
}

var _ supply.SettingsSource = (*SettingsRepo)(nil)

// NewSettingsRepo creates a new settings repository.
func NewSettingsRepo(txManager *postgres.TxManager) *SettingsRepo {
	return &SettingsRepo{reader: reader{txManager: txManager}}
}

func storeDiscountQuery(storeID id.ID) squirrel.SelectBuilder {
	return builder.
		Select("discount_enabled", "discount_rate").
		From("store_settings").
		Where(squirrel.Eq{"store_id": storeID})
}

func businessDiscountQuery(storeID id.ID) squirrel.SelectBuilder {
	return builder.
		Select("b.discount_enabled", "b.discount_rate").
		From("business_settings b").
		Join("stores s ON s.business_id = b.business_id").
		Where(squirrel.Eq{"s.id": storeID})
}

// StoreDiscount returns nil when the store has no settings row.
func (r *SettingsRepo) StoreDiscount(ctx context.Context, storeID id.ID) (*supply.DiscountSetting, error) {
	return r.discount(ctx, storeDiscountQuery(storeID), "store")
}

// BusinessDiscount returns nil when the owning business has no settings row.
func (r *SettingsRepo) BusinessDiscount(ctx context.Context, storeID id.ID) (*supply.DiscountSetting, error) {
	return r.discount(ctx, businessDiscountQuery(storeID), "business")
}

func (r *SettingsRepo) discount(ctx context.Context, q squirrel.SelectBuilder, level string) (*supply.DiscountSetting, error) {
	var s supply.DiscountSetting
	found, err := r.findOne(ctx, &s, q)
	if err != nil {
		return nil, fmt.Errorf("%s discount settings: %w", level, err)
	}
	if !found {
		return nil, nil
	}
	return &s, nil
}
