// Package middleware provides HTTP middleware for the stub assessment API.
package middleware

import "net/http"

// CORS returns middleware that lets browser-based dev clients talk to the
// stub backend directly. Origins are matched exactly; "*" permits any
// origin but never with credentials, since echoing arbitrary origins
// alongside Allow-Credentials enables CSRF.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	exact := make(map[string]struct{}, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		exact[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			_, trusted := exact[origin]

			if origin != "" && (trusted || wildcard) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				if trusted {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
