package middleware

import "net/http"

const hstsValue = "max-age=31536000; includeSubDomains"

// SecurityHeaders sets the response headers every API answer carries.
// Responses hold order and payment data, so nothing is cached, framed or
// sniffed. HSTS is only sent when hsts is set, which production does and
// local development over plain HTTP does not.
func SecurityHeaders(hsts bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Cache-Control", "no-store")
			if hsts {
				h.Set("Strict-Transport-Security", hstsValue)
			}
			next.ServeHTTP(w, r)
		})
	}
}
