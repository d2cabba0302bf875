// Package context provides request-scoped values extraction.
package context

import (
	"context"
	"slices"
)

// UserContext contains the authenticated cashier or manager.
type UserContext struct {
	UserID     string
	BusinessID string
	Email      string
	Roles      []string
	StoreIDs   []string // Stores the user may act on; empty for admins
	IsAdmin    bool
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// GetBusinessID returns business ID from context or empty string.
func GetBusinessID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.BusinessID
	}
	return ""
}

// HasRole checks if user has specific role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	return slices.Contains(u.Roles, role)
}

// HasStoreAccess checks if the user may operate on the store.
// Requests without a user (internal calls, tests) are not restricted.
func HasStoreAccess(ctx context.Context, storeID string) bool {
	u := GetUser(ctx)
	if u == nil || u.IsAdmin {
		return true
	}
	return slices.Contains(u.StoreIDs, storeID)
}
