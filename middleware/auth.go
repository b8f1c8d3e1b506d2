package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/Diamondrubix/ScrapBook/handlers/auth"
)

type contextKey string

const ClaimsContextKey = contextKey("claims")

var (
	errMissingHeader = errors.New("Authorization header is required")
	errHeaderFormat  = errors.New("Authorization header format must be Bearer {token}")
)

// bearerToken extracts the token of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive and extra spaces are tolerated.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if strings.TrimSpace(header) == "" {
		return "", errMissingHeader
	}
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "bearer") {
		return "", errHeaderFormat
	}
	return fields[1], nil
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{"error": msg})
}

// AuthJWT admits requests carrying a valid bearer token and stores its
// claims on the request context for Claims and UserID.
func AuthJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			unauthorized(w, r, err.Error())
			return
		}
		claims, err := auth.ParseJWT(token)
		if err != nil {
			unauthorized(w, r, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// Claims returns the claims AuthJWT stored on the request context.
func Claims(ctx context.Context) (*auth.AppClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*auth.AppClaims)
	return claims, ok
}

// UserID is the authenticated editor, or "" outside AuthJWT.
func UserID(ctx context.Context) string {
	if claims, ok := Claims(ctx); ok {
		return claims.Subject
	}
	return ""
}

func WithClaims(ctx context.Context, claims *auth.AppClaims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}
