package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"healthportal/backend/internal/config"
)

// RequestInfo is the client metadata attached to request-scoped audit rows.
type RequestInfo struct {
	IP        string
	UserAgent string
	Query     string
}

// NewRequestInfo captures r, truncating every field to its column budget.
func NewRequestInfo(r *http.Request) RequestInfo {
	return RequestInfo{
		IP:        ClientIP(r),
		UserAgent: Truncate(r.UserAgent(), config.MaxAuditUserAgentLength),
		Query:     Truncate(r.URL.RawQuery, config.MaxAuditQueryLength),
	}
}

// Meta returns the ip/ua/query pairs for FormatMeta.
func (ri RequestInfo) Meta() []string {
	return []string{"ip", ri.IP, "ua", ri.UserAgent, "query", ri.Query}
}

// ClientIP prefers the first X-Forwarded-For hop and falls back to the peer
// address.
func ClientIP(r *http.Request) string {
	ip := ""
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if ip == "" {
		ip = r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		}
	}
	return Truncate(ip, config.MaxAuditIPLength)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

type requestKey struct{}

func WithRequest(ctx context.Context, ri RequestInfo) context.Context {
	return context.WithValue(ctx, requestKey{}, ri)
}

func RequestFrom(ctx context.Context) RequestInfo {
	if ctx == nil {
		return RequestInfo{}
	}
	ri, _ := ctx.Value(requestKey{}).(RequestInfo)
	return ri
}
