package middleware

import (
	"net"
	"net/http"
	"strings"
)

const hstsValue = "max-age=31536000; includeSubDomains"

// Secure is applied when the API terminates TLS itself. It sets HSTS and the
// usual hardening headers and upgrades every cookie the handler sets.
func Secure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Strict-Transport-Security", hstsValue)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(&cookieWriter{ResponseWriter: w}, r)
	})
}

// cookieWriter rewrites Set-Cookie headers right before they are sent.
type cookieWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *cookieWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	h := w.ResponseWriter.Header()
	if raw := h.Values("Set-Cookie"); len(raw) > 0 {
		h.Del("Set-Cookie")
		for _, line := range raw {
			h.Add("Set-Cookie", hardenCookie(line))
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *cookieWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *cookieWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// hardenCookie forces Secure and HttpOnly and defaults SameSite to Lax.
// Lines that do not parse are passed through untouched.
func hardenCookie(line string) string {
	c, err := http.ParseSetCookie(line)
	if err != nil {
		return line
	}
	c.Secure = true
	c.HttpOnly = true
	if c.SameSite == http.SameSiteDefaultMode {
		c.SameSite = http.SameSiteLaxMode
	}
	return c.String()
}

// IsHostAllowed reports whether host names one of allowedHosts. Ports are
// ignored on both sides. An empty list allows every host.
func IsHostAllowed(host string, allowedHosts []string) bool {
	if len(allowedHosts) == 0 {
		return true
	}

	want := hostname(host)
	for _, allowed := range allowedHosts {
		if hostname(allowed) == want {
			return true
		}
	}
	return false
}

// hostname lowercases h and strips any port and IPv6 brackets.
func hostname(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if name, _, err := net.SplitHostPort(h); err == nil {
		return name
	}
	return strings.TrimSuffix(strings.TrimPrefix(h, "["), "]")
}
