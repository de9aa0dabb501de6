// storage задаёт контракты доступа к данным contacts-api и их сентинельные ошибки.
// Конкретные реализации: internal/storage/postgres (БД) и internal/storage/minio (аватары).
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/avoronova/go-contacts-api/internal/models"
)

//go:generate mockgen -source=storage.go -destination=../../mocks/mock_storage.go -package=mocks

var (
	// ErrNotFound — запись не найдена (пользователь/контакт/токен).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/username/refresh-token).
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidArgument — аргумент не проходит проверку на уровне хранилища
	// (недопустимый content-type/размер аватара, чужой ключ объекта).
	ErrInvalidArgument = errors.New("invalid argument")
)

// ListOptions — параметры выборки списков (контакты, пользователи).
// Query применяется только к контактам: подстрочный регистронезависимый
// поиск по имени, фамилии и email.
type ListOptions struct {
	Limit  int
	Offset int
	Query  string
}

// ContactUpdate — частичное обновление контакта: записываются только
// поля с ненулевыми указателями. ClearBirthday=true обнуляет дату рождения
// независимо от поля Birthday.
type ContactUpdate struct {
	FirstName     *string
	LastName      *string
	Phone         *string
	Email         *string
	Birthday      *time.Time
	ClearBirthday bool
	Notes         *string
}

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создаёт нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email (регистронезависимо).
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByUsername находит пользователя по username (регистронезависимо).
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// ListUsers возвращает страницу пользователей (created_at ASC, id ASC).
	ListUsers(ctx context.Context, opts ListOptions) ([]models.User, error)
	// UpdateUserPassword заменяет хэш пароля и сдвигает updated_at.
	UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	// UpdateUserRole меняет роль пользователя.
	UpdateUserRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error)
	// UpdateAvatarURL фиксирует URL аватара после подтверждённой загрузки.
	UpdateAvatarURL(ctx context.Context, id uuid.UUID, avatarURL string) (*models.User, error)
	// DeleteUser удаляет пользователя; контакты и refresh-токены
	// каскадируются на уровне схемы (FK ON DELETE CASCADE).
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// ContactStorage выполняет операции над контактами.
// Все методы принимают userID владельца и обязаны ограничивать выборку им:
// чужой контакт неотличим от отсутствующего (ErrNotFound).
type ContactStorage interface {
	// SaveContact создаёт новый контакт.
	SaveContact(ctx context.Context, contact *models.Contact) error
	// ContactByID находит контакт владельца по ID.
	ContactByID(ctx context.Context, userID, id uuid.UUID) (*models.Contact, error)
	// ListContacts возвращает страницу контактов владельца
	// (created_at DESC, id DESC) с опциональным поиском.
	ListContacts(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]models.Contact, error)
	// UpdateContact применяет частичное обновление и возвращает свежую запись.
	UpdateContact(ctx context.Context, userID, id uuid.UUID, update ContactUpdate) (*models.Contact, error)
	// DeleteContact удаляет контакт владельца и возвращает удалённую запись.
	DeleteContact(ctx context.Context, userID, id uuid.UUID) (*models.Contact, error)
	// UpcomingBirthdays возвращает контакты владельца, чья годовщина рождения
	// попадает в окно [сегодня; сегодня+days] с учётом перехода через конец года.
	UpcomingBirthdays(ctx context.Context, userID uuid.UUID, days int) ([]models.Contact, error)
}

// RefreshTokenStorage выполняет операции над refresh-токенами.
type RefreshTokenStorage interface {
	// SaveRefreshToken сохраняет новый refresh-токен в БД.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshTokenByHash находит refresh-токен по его хэшу.
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	// RevokeRefreshToken пытается отозвать refresh-токен.
	// Возвращает false, если токен уже был отозван.
	RevokeRefreshToken(ctx context.Context, hash string) (bool, error)
	// RevokeAllUserTokens отзывает все активные refresh-токены пользователя
	// (смена пароля, компрометация).
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
	// DeleteExpiredTokens удаляет все просроченные токены.
	DeleteExpiredTokens(ctx context.Context, now time.Time) error
}

// Storage задаёт совокупный контракт работы с БД.
type Storage interface {
	UserStorage
	ContactStorage
	RefreshTokenStorage
	Close()
}

// UploadInfo — результат выдачи presigned-ссылки на загрузку аватара.
type UploadInfo struct {
	UploadURL string
	AvatarKey string
	Expires   time.Duration
	// RequiredHeader — заголовки, которые клиент обязан передать при PUT.
	RequiredHeader map[string]string
}

// AvatarsStorage — операции с объектным хранилищем аватаров.
type AvatarsStorage interface {
	// AvatarUploadURL генерирует presigned PUT URL для загрузки аватара.
	AvatarUploadURL(ctx context.Context, userID uuid.UUID, contentType string, contentLength int64) (*UploadInfo, error)
	// CheckAvatarUpload подтверждает факт загрузки по ключу и возвращает публичный URL.
	CheckAvatarUpload(ctx context.Context, userID uuid.UUID, key string) (string, error)
}
