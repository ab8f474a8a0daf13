package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"stk-crm/internal/auth"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// TokenParser verifies bearer access tokens.
type TokenParser interface {
	ParseAccess(token string) (*auth.Principal, error)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth rejects requests without a valid access token and stores the
// caller's principal in the request context.
func RequireAuth(next http.HandlerFunc, tokens TokenParser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		p, err := tokens.ParseAccess(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		ctx := context.WithValue(r.Context(), PrincipalKey, p)
		next(w, r.WithContext(ctx))
	}
}

// GetPrincipal returns the authenticated caller, nil outside RequireAuth.
func GetPrincipal(r *http.Request) *auth.Principal {
	if val, ok := r.Context().Value(PrincipalKey).(*auth.Principal); ok {
		return val
	}
	return nil
}

// WithPrincipal attaches p to ctx. Tests use it to skip token parsing.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// RequireRole ensures the user has one of the specified roles
func RequireRole(allowedRoles []string, tokens TokenParser) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
			role := GetPrincipal(r).Role
			for _, allowed := range allowedRoles {
				if role == allowed {
					next(w, r)
					return
				}
			}
			writeDetail(w, http.StatusForbidden, "Access denied for role "+role)
		}, tokens)
	}
}
