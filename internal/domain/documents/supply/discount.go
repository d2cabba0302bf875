package supply

import (
	"context"
	"fmt"

	"supplyhub/internal/core/apperror"
	"supplyhub/internal/core/id"
	"supplyhub/internal/core/types"
)

// DiscountSetting is one level of discount configuration.
type DiscountSetting struct {
	Enabled bool        `db:"discount_enabled" json:"enabled"`
	Rate    types.Money `db:"discount_rate" json:"rate"`
}

// SettingsSource reads discount settings owned by the settings service.
// A nil setting with a nil error means "not configured at this level".
type SettingsSource interface {
	StoreDiscount(ctx context.Context, storeID id.ID) (*DiscountSetting, error)
	// BusinessDiscount returns the setting of the business that owns the store.
	BusinessDiscount(ctx context.Context, storeID id.ID) (*DiscountSetting, error)
}

// RateResolver yields the discount percentage applied to new orders.
type RateResolver interface {
	Resolve(ctx context.Context, storeID id.ID) (types.Money, error)
}

// DiscountRateResolver prefers the store setting over the business setting.
// A configured store setting wins even when it disables discounting.
type DiscountRateResolver struct {
	source SettingsSource
}

// NewDiscountRateResolver creates a resolver over source.
func NewDiscountRateResolver(source SettingsSource) *DiscountRateResolver {
	return &DiscountRateResolver{source: source}
}

// Resolve implements RateResolver.
func (r *DiscountRateResolver) Resolve(ctx context.Context, storeID id.ID) (types.Money, error) {
	setting, err := r.source.StoreDiscount(ctx, storeID)
	if err != nil {
		return types.Zero(), fmt.Errorf("store discount: %w", err)
	}
	if setting == nil {
		setting, err = r.source.BusinessDiscount(ctx, storeID)
		if err != nil {
			return types.Zero(), fmt.Errorf("business discount: %w", err)
		}
	}
	return effectiveRate(setting)
}

func effectiveRate(setting *DiscountSetting) (types.Money, error) {
	if setting == nil || !setting.Enabled {
		return types.Zero(), nil
	}
	if !types.ValidRate(setting.Rate) {
		return types.Zero(), apperror.NewInternal(fmt.Errorf("discount rate %s out of range", setting.Rate)).
			WithDetail("rate", setting.Rate.String())
	}
	return setting.Rate, nil
}

// FixedRate is a RateResolver returning the same rate for every store.
type FixedRate types.Money

// Resolve implements RateResolver.
func (f FixedRate) Resolve(context.Context, id.ID) (types.Money, error) {
	return types.Money(f), nil
}
