package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/avoronova/go-contacts-api/internal/models"
)

// UserCache — кэш профилей пользователей по ID.
// Заполняется при логине и при промахе в auth-мидлваре;
// инвалидируется при любом изменении профиля (пароль, роль, аватар, удаление).
type UserCache interface {
	// GetUser возвращает пользователя и признак его наличия в кэше.
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, bool, error)
	// SetUser сохраняет пользователя с настроенным TTL.
	SetUser(ctx context.Context, user *models.User) error
	// DeleteUser удаляет пользователя из кэша.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// cachedUser — JSON-представление пользователя в Redis.
// PasswordHash намеренно не кэшируется: сверка пароля всегда идёт в БД.
type cachedUser struct {
	ID        uuid.UUID   `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	AvatarURL string      `json:"avatar_url"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (c *redisCache) userKey(id uuid.UUID) string { return c.prefix + "user:" + id.String() }

func (c *redisCache) GetUser(ctx context.Context, id uuid.UUID) (*models.User, bool, error) {
	raw, err := c.rdb.Get(ctx, c.userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, err
	}

	var cu cachedUser
	if err := json.Unmarshal(raw, &cu); err != nil {
		// Битую запись выбрасываем и считаем промахом.
		_ = c.rdb.Del(ctx, c.userKey(id)).Err()
		return nil, false, nil
	}

	return &models.User{
		ID:        cu.ID,
		Username:  cu.Username,
		Email:     cu.Email,
		AvatarURL: cu.AvatarURL,
		Role:      cu.Role,
		CreatedAt: cu.CreatedAt,
		UpdatedAt: cu.UpdatedAt,
	}, true, nil
}

func (c *redisCache) SetUser(ctx context.Context, user *models.User) error {
	raw, err := json.Marshal(cachedUser{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, c.userKey(user.ID), raw, c.userTTL).Err()
}

func (c *redisCache) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return c.rdb.Del(ctx, c.userKey(id)).Err()
}
