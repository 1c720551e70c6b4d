package metadata

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"issuehub/pkg/requestcontext"
)

// ClientMetadata stores the caller's address and a short description of
// their client in the context; audit events read both back.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), DescribeClient(r.Header.Get("User-Agent")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest prefers proxy headers over the socket address.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// maxClientLen bounds what an arbitrary header can put into audit rows.
const maxClientLen = 120

// DescribeClient condenses a User-Agent header to "Browser version (OS)",
// e.g. "Firefox 121.0 (Linux x86_64)". Unparseable agents such as curl keep
// their product token.
func DescribeClient(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	var b strings.Builder
	if ua.Bot() {
		b.WriteString("bot: ")
	}
	b.WriteString(strings.TrimSpace(name + " " + version))
	if os := ua.OS(); os != "" {
		b.WriteString(" (" + os + ")")
	}
	if ua.Mobile() {
		b.WriteString(" mobile")
	}
	out := b.String()
	if out == "" {
		out = raw
	}
	if len(out) > maxClientLen {
		out = out[:maxClientLen]
	}
	return out
}
