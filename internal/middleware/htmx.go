package middleware

import (
	"net/http"
)

// HTMX marks requests coming from htmx so handlers/middlewares can adapt responses.
// History restores (HX-History-Restore-Request) need the full page and are
// treated as regular requests.
func HTMX(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		is := r.Header.Get("HX-Request") == "true" && r.Header.Get("HX-History-Restore-Request") != "true"
		ctx := WithHTMX(r.Context(), is)
		if is {
			ctx = WithHXTarget(ctx, r.Header.Get("HX-Target"))
		}
		// partial and full responses differ for the same URL
		w.Header().Add("Vary", "HX-Request")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
