package middleware

import (
	"net/http"
	"strings"

	"github.com/labforge/labportal/internal/util"
)

// sensitiveHeaders are never written to logs; a login portal's request dumps
// would otherwise leak session cookies and credentials.
var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"cookie":              {},
	"set-cookie":          {},
	"proxy-authorization": {},
	"x-auth-token":        {},
}

// SanitizeHeaders returns header values safe for logging: sensitive headers
// redacted, the rest stripped of control characters and truncated.
func SanitizeHeaders(h http.Header) map[string][]string {
	if h == nil {
		return nil
	}
	out := make(map[string][]string, len(h))
	for k, vals := range h {
		if _, ok := sensitiveHeaders[strings.ToLower(k)]; ok {
			out[k] = []string{"<redacted>"}
			continue
		}
		cleaned := make([]string, 0, len(vals))
		for _, v := range vals {
			cleaned = append(cleaned, util.SanitizeForLog(v))
		}
		out[k] = cleaned
	}
	return out
}

// SanitizePath prepares a request path for safe logging. Query parameters are
// dropped entirely.
func SanitizePath(p string) string {
	if i := strings.Index(p, "?"); i != -1 {
		p = p[:i]
	}
	return util.SanitizeForLog(p)
}
