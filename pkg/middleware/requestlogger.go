package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront-search/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// correlation_id, customer_id, store_id, trace_id and span_id. Handlers
// retrieve it with logger.FromContext.
//
// Mount it after RequestLogging, Tracing and Identity so those fields are set.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if id := CustomerIDFromContext(ctx); id != "" {
				ctx = logger.WithCustomerID(ctx, id)
			}
			if id := StoreIDFromContext(ctx); id != "" {
				ctx = logger.WithStoreID(ctx, id)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
