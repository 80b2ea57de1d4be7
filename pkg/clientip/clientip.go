// Package clientip extracts the originating client IP address from HTTP
// requests behind common proxy and CDN setups.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// GetIP returns the client's IP address from an HTTP request.
// Priority order:
//  1. CF-Connecting-IP (Cloudflare)
//  2. X-Forwarded-For (standard proxy header, first valid IP)
//  3. X-Real-IP (Nginx reverse proxy)
//  4. RemoteAddr (direct connection fallback)
func GetIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if parsed := parseIP(ip); parsed != "" {
			return parsed
		}
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for ip := range strings.SplitSeq(forwarded, ",") {
			if parsed := parseIP(strings.TrimSpace(ip)); parsed != "" {
				return parsed
			}
		}
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if parsed := parseIP(ip); parsed != "" {
			return parsed
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// If SplitHostPort fails, assume it's already just an IP
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

// parseIP validates and normalizes an IP address string.
// Returns empty string if the IP is invalid.
func parseIP(ipStr string) string {
	ipStr = strings.TrimSpace(ipStr)
	if ipStr == "" {
		return ""
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}
	return ip.String()
}
