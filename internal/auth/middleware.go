package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type identityKey struct{}

// AccessTokenVerifier turns a raw bearer token into the identity it asserts.
type AccessTokenVerifier interface {
	VerifyAccessToken(raw string) (Identity, error)
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}

// Middleware rejects requests without a valid access token and attaches the
// verified identity to the request context otherwise.
func Middleware(verifier AccessTokenVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerToken(r.Header.Get("Authorization"))
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, ErrAccessTokenMissing.Message)
			return
		}

		identity, err := verifier.VerifyAccessToken(tokenStr)
		if err != nil {
			if errors.Is(err, ErrAccessTokenExpired) {
				writeError(w, http.StatusUnauthorized, ErrAccessTokenExpired.Message)
				return
			}
			writeError(w, http.StatusUnauthorized, ErrAccessTokenInvalid.Message)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
