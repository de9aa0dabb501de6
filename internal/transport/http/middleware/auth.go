package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/avoronova/go-contacts-api/internal/models"
	"github.com/avoronova/go-contacts-api/internal/service"
	"github.com/avoronova/go-contacts-api/internal/transport/http/httperr"
)

// CtxAuthToken — ключ контекста с "сырым" Bearer-токеном.
const CtxAuthToken ctxKey = "auth_token"

// ctxUserKey — ключ контекста с аутентифицированным пользователем.
const ctxUserKey ctxKey = "auth_user"

// UserResolver резолвит access-токен в профиль пользователя.
type UserResolver interface {
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

// AuthBearer извлекает Bearer-токен из Authorization и кладёт "сырой" токен
// в контекст по ключу CtxAuthToken. Сам по себе доступ не ограничивает.
func AuthBearer() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")

			if auth != "" {
				const prefix = "Bearer "
				if strings.HasPrefix(auth, prefix) && len(auth) > len(prefix) {
					token := strings.TrimSpace(auth[len(prefix):])

					if token != "" {
						ctx := context.WithValue(r.Context(), CtxAuthToken, token)
						r = r.WithContext(ctx)
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth требует валидный access-токен: резолвит его в пользователя
// и кладёт профиль в контекст. Без токена или с невалидным токеном — 401.
func RequireAuth(resolver UserResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromContext(r.Context())
			if token == "" {
				httperr.WriteError(w, r, service.ErrInvalidToken)
				return
			}

			user, err := resolver.CurrentUser(r.Context(), token)
			if err != nil {
				httperr.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromContext возвращает "сырой" Bearer-токен или пустую строку.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(CtxAuthToken).(string)
	return token
}

// UserFromContext возвращает аутентифицированного пользователя или nil.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(ctxUserKey).(*models.User)
	return user
}
