package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

const ctxClientIP contextKey = "client_ip"

// ClientAddress resolves the caller address once per request. trustedHops is
// the number of proxies in front of the API that append to X-Forwarded-For;
// entries to the left of the last trusted hop are caller supplied and ignored.
// With zero hops the forwarding headers are never read.
func ClientAddress(trustedHops int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClientIP(r, trustedHops)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxClientIP, ip)))
		})
	}
}

// ClientIP returns the address resolved by ClientAddress, or the socket peer
// when the middleware is not mounted.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ip := stringValue(r.Context(), ctxClientIP); ip != "" {
		return ip
	}
	return remoteHost(r)
}

func resolveClientIP(r *http.Request, trustedHops int) string {
	if trustedHops <= 0 {
		return remoteHost(r)
	}
	var hops []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		for _, part := range strings.Split(header, ",") {
			if part = strings.TrimSpace(part); part != "" {
				hops = append(hops, part)
			}
		}
	}
	if len(hops) >= trustedHops {
		if ip := net.ParseIP(hops[len(hops)-trustedHops]); ip != nil {
			return ip.String()
		}
		return remoteHost(r)
	}
	if len(hops) == 0 && trustedHops == 1 {
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip.String()
		}
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
