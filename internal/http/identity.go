package http

import (
	"net/http"

	"budgetly/internal/middleware/security"
	"budgetly/internal/wizard"
)

// identityResolver reads the signed-in user from the header set by the
// authenticating proxy. The header is only believed when the request comes
// from a trusted proxy; devUser stands in for local development.
type identityResolver struct {
	header   string
	devUser  string
	detector *security.Detector
}

func (ir identityResolver) resolve(r *http.Request) wizard.Identity {
	if ir.header != "" && ir.detector.FromTrustedProxy(r) {
		if id := sanitizeUserID(r.Header.Get(ir.header)); id != "" {
			return wizard.Identity{UserID: id}
		}
	}
	return wizard.Identity{UserID: ir.devUser}
}

// rateKey keys the rate limiter by user, falling back to client address.
func (s *Server) rateKey(r *http.Request) string {
	if id := s.identity.resolve(r); id.Authenticated() {
		return "user:" + id.UserID
	}
	return "ip:" + s.detector.ExtractClientIP(r)
}
