package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKeyType string

const (
	customerIDKey contextKeyType = "customer_id"
	storeIDKey    contextKeyType = "store_id"
)

// Identity headers set by the gateway in front of the storefront.
const (
	HeaderCustomerID = "X-User-ID"
	HeaderStoreID    = "X-Store-ID"
)

// Identity copies the storefront customer and store identifiers from the
// gateway headers into the request context. Requests without a store header
// are attributed to defaultStoreID. Anonymous requests carry no customer ID.
func Identity(defaultStoreID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if id := strings.TrimSpace(r.Header.Get(HeaderCustomerID)); id != "" {
				ctx = context.WithValue(ctx, customerIDKey, id)
			}

			storeID := strings.TrimSpace(r.Header.Get(HeaderStoreID))
			if storeID == "" {
				storeID = defaultStoreID
			}
			if storeID != "" {
				ctx = context.WithValue(ctx, storeIDKey, storeID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CustomerIDFromContext extracts the customer ID from the request context.
func CustomerIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(customerIDKey).(string); ok {
		return id
	}
	return ""
}

// StoreIDFromContext extracts the store ID from the request context.
func StoreIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(storeIDKey).(string); ok {
		return id
	}
	return ""
}
