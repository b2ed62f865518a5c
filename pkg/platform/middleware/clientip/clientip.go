// Package clientip extracts the observed client network address from a
// request, looking through the usual proxy headers before falling back to the
// socket peer.
package clientip

import (
	"net"
	"net/http"
	"strings"

	"checkpoint/internal/ipaddr"
	"checkpoint/pkg/requestcontext"
)

// Checked in order. X-Forwarded-For may carry a chain; the first hop is the
// client.
var proxyHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"Proxy-Client-IP",
	"WL-Proxy-Client-IP",
}

// Extract returns the best available client address, normalized. When nothing
// usable is present it degrades to the unknown sentinel rather than failing.
func Extract(r *http.Request) string {
	for _, header := range proxyHeaders {
		value := strings.TrimSpace(r.Header.Get(header))
		if value == "" || strings.EqualFold(value, "unknown") {
			continue
		}
		if header == "X-Forwarded-For" {
			if i := strings.Index(value, ","); i >= 0 {
				value = strings.TrimSpace(value[:i])
			}
		}
		if ipaddr.IsValid(value) {
			return ipaddr.Format(value)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ipaddr.IsValid(host) {
		return ipaddr.Format(host)
	}
	return ipaddr.Unknown
}

// Middleware stores the extracted address in the request context. With
// tracking disabled, every request carries the unknown sentinel and no real
// address reaches downstream code.
func Middleware(trackingEnabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := ipaddr.Unknown
			if trackingEnabled {
				addr = Extract(r)
			}
			ctx := requestcontext.WithClientAddr(r.Context(), addr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
