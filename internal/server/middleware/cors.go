package middleware

import (
	"net/http"
	"strings"
)

const (
	allowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	allowHeaders = "Origin, X-Requested-With, Content-Type, Accept, Authorization"
)

// CorsAnnotator attaches CORS headers to every response, including rejections
// produced by inner admission stages. It is the outermost stage so it sees
// every response on the way back out.
type CorsAnnotator struct {
	// SelfHost is the operator's console domain. The sentinel "*" allows
	// every origin.
	SelfHost string

	// Allowlist holds exact domains and "*.suffix" wildcard entries.
	Allowlist []string
}

// NewCorsAnnotator builds the annotator from the configured self-host domain
// and extra allowed origins.
func NewCorsAnnotator(selfHost string, allowlist []string) *CorsAnnotator {
	return &CorsAnnotator{
		SelfHost:  strings.TrimSpace(selfHost),
		Allowlist: allowlist,
	}
}

// Middleware implements the stage. OPTIONS preflights short-circuit with a
// bare 200; everything else runs the inner chain first and is annotated on
// the way back.
func (c *CorsAnnotator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if r.Method == http.MethodOptions {
			c.setHeaders(w.Header(), origin)
			w.WriteHeader(http.StatusOK)
			return
		}

		// Headers must be set before the inner chain writes its status
		// line; after WriteHeader they would be silently dropped.
		c.setHeaders(w.Header(), origin)
		next.ServeHTTP(w, r)
	})
}

func (c *CorsAnnotator) setHeaders(h http.Header, origin string) {
	switch {
	case origin != "":
		if c.SelfHost == "*" || c.originAllowed(origin) {
			h.Set("Access-Control-Allow-Origin", origin)
		}
	case c.SelfHost == "*":
		// Allow all if configured, even without an Origin header.
		h.Set("Access-Control-Allow-Origin", "*")
	}

	h.Set("Access-Control-Allow-Methods", allowMethods)
	h.Set("Access-Control-Allow-Headers", allowHeaders)
}

// originAllowed checks the origin against the allowlist and the self-host
// domain. A "*.suffix" entry matches any origin ending in suffix but not
// equal to it.
func (c *CorsAnnotator) originAllowed(origin string) bool {
	candidates := c.Allowlist
	if c.SelfHost != "" && c.SelfHost != "*" {
		candidates = append(candidates[:len(candidates):len(candidates)], c.SelfHost)
	}

	for _, allowed := range candidates {
		if base, ok := strings.CutPrefix(allowed, "*."); ok {
			if strings.HasSuffix(origin, base) && origin != base {
				return true
			}
			continue
		}
		if allowed == origin {
			return true
		}
	}
	return false
}
