// service содержит бизнес-логику contacts-api:
// регистрацию/аутентификацию пользователей, выпуск/проверку токенов,
// CRUD контактов с контролем владения и операции над профилями —
// всё через интерфейсы из пакетов storage и cache.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданные хранилище и кэш потокобезопасны.
//   - Ошибки возвращаются и далее маппятся транспортом
//     на HTTP-статусы (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"

	"github.com/avoronova/go-contacts-api/internal/cache"
	"github.com/avoronova/go-contacts-api/internal/config"
	"github.com/avoronova/go-contacts-api/internal/storage"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь не найден.
	// Транспорт: HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен (access/refresh/reset) некорректен по формату/подписи
	// или отсутствует в хранилище. Транспорт: HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. Транспорт: HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — токен отозван (logout/rotation/compromise) и недействителен
	// независимо от срока. Транспорт: HTTP 401.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrEmailTaken — e-mail уже занят другим пользователем. Транспорт: HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrUsernameTaken — username уже занят другим пользователем. Транспорт: HTTP 409.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrRefreshTokenCollision — исчерпаны попытки сгенерировать уникальный refresh-токен
	// (редкий случай коллизий при сохранении хэша в БД после нескольких ретраев).
	// Транспорт: HTTP 500.
	ErrRefreshTokenCollision = errors.New("refresh token collision")

	// ErrInvalidEmail — e-mail имеет некорректный формат или не проходит политику валидации.
	// Транспорт: HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidUsername — username пуст, короче 3 или длиннее 150 символов.
	// Транспорт: HTTP 400.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrWeakPassword — пароль не удовлетворяет политикам сложности. Транспорт: HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. Транспорт: HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrInvalidArgument — входные данные не проходят доменную валидацию
	// (поля контакта, роль, параметры аватара). Транспорт: HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound — запрошенная сущность не существует либо принадлежит
	// другому пользователю (владение не раскрываем). Транспорт: HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied — операция требует административной роли. Транспорт: HTTP 403.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrAvatarsDisabled — объектное хранилище аватаров не сконфигурировано.
	// Транспорт: HTTP 400.
	ErrAvatarsDisabled = errors.New("avatar storage is not configured")
)

// Service описывает бизнес-логику contacts-api.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	cache   cache.Cache            // может быть nil, если кэш не сконфигурирован
	avatars storage.AvatarsStorage // может быть nil, если S3 не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
	}
}

// SetCache устанавливает Redis-кэш (опционально).
func (s *Service) SetCache(c cache.Cache) {
	s.cache = c
}

// SetAvatars устанавливает хранилище аватаров (опционально).
func (s *Service) SetAvatars(a storage.AvatarsStorage) {
	s.avatars = a
}
