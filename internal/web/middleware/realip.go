package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/JonMunkholm/brokerstatements/internal/logging"
)

// ParseTrustedProxies turns TRUSTED_PROXIES entries into prefixes. An entry
// is a CIDR range ("10.0.0.0/8", "fd00::/8") or a single address. Invalid
// entries are logged and skipped.
func ParseTrustedProxies(entries []string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy", "entry", e, "error", err)
			continue
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes
}

// TrustedRealIP resolves the client address of each request and stores it
// in the request context, where logging.FromContext picks it up as
// "client_ip". RemoteAddr is rewritten to the resolved address.
//
// Forwarding headers are read only when the connection comes from a trusted
// proxy. X-Real-IP wins; otherwise X-Forwarded-For is walked from the right
// and the first hop that is not itself a trusted proxy is the client.
func TrustedRealIP(trusted []string) func(http.Handler) http.Handler {
	prefixes := ParseTrustedProxies(trusted)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddr(r, prefixes)
			if client.IsValid() {
				r.RemoteAddr = client.String()
				r = r.WithContext(logging.WithClientIP(r.Context(), client.String()))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request, trusted []netip.Prefix) netip.Addr {
	remote := parseAddr(r.RemoteAddr)
	if !isTrusted(remote, trusted) {
		return remote
	}

	if rip := parseAddr(r.Header.Get("X-Real-IP")); rip.IsValid() {
		return rip
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := parseAddr(hops[i])
		if !hop.IsValid() {
			// a malformed hop ends the chain we can vouch for
			break
		}
		if !isTrusted(hop, trusted) || i == 0 {
			return hop
		}
	}
	return remote
}

// parseAddr reads "host:port", "[v6]:port" or a bare address.
func parseAddr(s string) netip.Addr {
	s = strings.TrimSpace(s)
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}
	}
	return addr.Unmap()
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	if !addr.IsValid() {
		return false
	}
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
