// http собирает REST-маршруты contacts-api поверх chi:
// публичные auth-эндпойнты, защищённые группы /contacts и /users
// и служебные /utils-эндпойнты.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avoronova/go-contacts-api/internal/service"
	"github.com/avoronova/go-contacts-api/internal/transport/http/handlers"
	"github.com/avoronova/go-contacts-api/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
	Metrics  *middleware.HTTPMetrics
	CORS     middleware.CORSConfig
	Version  string
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, db handlers.Pinger, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Metrics != nil {
		root.Use(middleware.Metrics(opts.Metrics))
	}
	if len(opts.CORS.AllowedOrigins) > 0 {
		root.Use(middleware.CORS(opts.CORS))
	}
	root.Use(middleware.AuthBearer()) // вынимаем Bearer токен в контекст
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	// Зависимости хендлеров.
	h := handlers.New(svc, db, opts.Version)

	// Регистрация маршрутов.
	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, svc)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, svc)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, svc *service.Service) {
	// auth — публичные эндпойнты.
	r.Post("/auth/register", h.RegisterUser)
	r.Post("/auth/login", h.LoginUser)
	r.Post("/auth/refresh", h.RefreshToken)
	r.Post("/auth/reset-password/request", h.RequestPasswordReset)
	r.Post("/auth/reset-password/confirm", h.ConfirmPasswordReset)

	// utils — служебные эндпойнты, без аутентификации.
	r.Get("/utils/healthcheck", h.Healthcheck)
	r.Get("/utils/version", h.Version)

	// Защищённые группы: RequireAuth резолвит текущего пользователя в контекст.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(svc))

		r.Post("/auth/logout", h.Logout)

		// contacts
		r.Get("/contacts", h.ListContacts)
		r.Post("/contacts", h.CreateContact)
		r.Get("/contacts/birthdays", h.UpcomingBirthdays)
		r.Get("/contacts/{id}", h.ContactByID)
		r.Put("/contacts/{id}", h.UpdateContact)
		r.Delete("/contacts/{id}", h.DeleteContact)

		// users
		r.Get("/users/me", h.Me)
		r.Post("/users/me/avatar/presign", h.AvatarPresign)
		r.Post("/users/me/avatar/confirm", h.AvatarConfirm)
		r.Get("/users", h.ListUsers)
		r.Get("/users/{id}", h.UserByID)
		r.Put("/users/{id}/role", h.ChangeUserRole)
		r.Delete("/users/{id}", h.DeleteUser)
	})
}
