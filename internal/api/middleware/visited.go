package middleware

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	VisitedCookieName = "visited"
	visitedMaxAge     = 30 * 24 * time.Hour
	visitedIssuer     = "archivesearch"
	visitedSubject    = "visited"
)

// VisitedGate tracks first-time visitors with a signed HS256 token cookie.
type VisitedGate struct {
	secret []byte
	now    func() time.Time
}

// NewVisitedGate creates a gate that signs cookies with secret
func NewVisitedGate(secret string) *VisitedGate {
	return &VisitedGate{secret: []byte(secret), now: time.Now}
}

// HasVisited reports whether the request carries an unexpired visited token
// signed with this gate's secret.
func (g *VisitedGate) HasVisited(r *http.Request) bool {
	cookie, err := r.Cookie(VisitedCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims,
		func(*jwt.Token) (any, error) { return g.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(visitedIssuer),
		jwt.WithSubject(visitedSubject),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(g.now),
	)
	return err == nil && token.Valid
}

// MarkVisited sets the visited token cookie on the response
func (g *VisitedGate) MarkVisited(w http.ResponseWriter, r *http.Request) error {
	now := g.now().UTC()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    visitedIssuer,
		Subject:   visitedSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(visitedMaxAge)),
	}).SignedString(g.secret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     VisitedCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(visitedMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// RequireVisit redirects first-time visitors to target after marking them
// as visited. Returning visitors reach next.
func RequireVisit(gate *VisitedGate, target string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate.HasVisited(r) {
				next.ServeHTTP(w, r)
				return
			}

			if err := gate.MarkVisited(w, r); err != nil {
				next.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, target, http.StatusFound)
		})
	}
}
