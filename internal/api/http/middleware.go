package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/vadimbarashkov/linkhub/pkg/response"
)

type ctxKey int

const userIDKey ctxKey = 0

// userIDFrom returns the authenticated user id stored in the request
// context, if any.
func userIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

func parseBearerToken(r *http.Request, secret []byte) (int64, bool) {
	header := r.Header.Get("Authorization")

	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return 0, false
	}

	claims := new(jwt.RegisteredClaims)

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil || !token.Valid {
		return 0, false
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, false
	}

	return userID, true
}

// authenticate requires a valid bearer token and stores the caller's user id
// in the request context.
func authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := parseBearerToken(r, secret)
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.AuthenticationRequiredResponse)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// identify stores the caller's user id in the request context when a valid
// bearer token is present, but lets anonymous requests through. Used on the
// shorten route, which serves both audiences.
func identify(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, ok := parseBearerToken(r, secret); ok {
				ctx := context.WithValue(r.Context(), userIDKey, userID)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}
