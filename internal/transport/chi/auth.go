package chi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/skillswap/voicesearch/internal/domain"
)

type identityKey struct{}

// IdentityFromContext extracts the verified caller from the request context.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	ident, ok := ctx.Value(identityKey{}).(domain.Identity)
	return ident, ok
}

// exemptPaths are routes that bypass authentication (banner, health, metrics).
var exemptPaths = map[string]struct{}{
	"/":        {},
	"/health":  {},
	"/metrics": {},
}

// AuthMiddleware verifies the bearer JWT and stores the caller identity in
// the context. The raw token is kept on the identity so it can be forwarded
// to downstream services. An empty secret disables signature verification
// (development mode, matching the upstream gateway contract); the token is
// still parsed and must carry an "id" claim.
func AuthMiddleware(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, codeUnauthorized,
					"authorization header must use Bearer scheme")
				return
			}

			token := auth[len(bearerPrefix):]
			ident, err := verifyToken(token, secret)
			if err != nil {
				logger.Warn("Token verification failed", zap.Error(err))
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verifyToken(token, secret string) (domain.Identity, error) {
	var (
		claims jwt.MapClaims
		err    error
	)
	if secret == "" {
		claims = jwt.MapClaims{}
		_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	} else {
		var parsed *jwt.Token
		parsed, err = jwt.Parse(token, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err == nil {
			claims, _ = parsed.Claims.(jwt.MapClaims)
		}
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("parse token: %w", err)
	}

	id, _ := claims["id"].(string)
	if id == "" {
		return domain.Identity{}, fmt.Errorf("token payload missing id claim: %w", domain.ErrUnauthorized)
	}

	return domain.Identity{UserID: id, Token: token}, nil
}
