package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	logctx "github.com/avoronova/go-contacts-api/internal/pkg/log"

	"github.com/avoronova/go-contacts-api/internal/models"
	"github.com/avoronova/go-contacts-api/internal/storage"
)

const (
	defaultUserLimit = 50
	maxUserLimit     = 100
)

// UserByID возвращает профиль пользователя по ID.
// Доступен любому аутентифицированному пользователю: профиль публичный,
// чувствительные поля отсекаются на транспортном уровне.
func (s *Service) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "service.users.UserByID"

	if user := s.cachedUser(ctx, id); user != nil {
		return user, nil
	}

	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.cacheUser(ctx, user)

	return user, nil
}

// ListUsers возвращает страницу пользователей. Только для администраторов.
func (s *Service) ListUsers(ctx context.Context, actor *models.User, opts storage.ListOptions) ([]models.User, error) {
	const op = "service.users.ListUsers"

	if err := requireAdmin(actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if opts.Limit <= 0 {
		opts.Limit = defaultUserLimit
	}
	if opts.Limit > maxUserLimit {
		opts.Limit = maxUserLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	opts.Query = ""

	users, err := s.storage.ListUsers(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

// ChangeUserRole меняет роль пользователя. Только для администраторов.
// Администратор не может снять роль с самого себя: иначе инстанс
// рискует остаться без администраторов.
func (s *Service) ChangeUserRole(ctx context.Context, actor *models.User, id uuid.UUID, role models.Role) (*models.User, error) {
	const op = "service.users.ChangeUserRole"

	if err := requireAdmin(actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !role.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if actor.ID == id && role != models.RoleAdmin {
		return nil, fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}

	user, err := s.storage.UpdateUserRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.dropUserCache(ctx, id)

	logctx.From(ctx).Info("user_role_changed",
		slog.String("user_id", id.String()),
		slog.String("role", string(role)),
		slog.String("actor_id", actor.ID.String()),
	)

	return user, nil
}

// DeleteUser удаляет пользователя вместе с его контактами и refresh-токенами
// (каскад на уровне схемы). Только для администраторов; самоудаление запрещено.
func (s *Service) DeleteUser(ctx context.Context, actor *models.User, id uuid.UUID) error {
	const op = "service.users.DeleteUser"

	if err := requireAdmin(actor); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if actor.ID == id {
		return fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}

	if err := s.storage.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	s.dropUserCache(ctx, id)

	logctx.From(ctx).Info("user_deleted",
		slog.String("user_id", id.String()),
		slog.String("actor_id", actor.ID.String()),
	)

	return nil
}

// AvatarUploadURL выдаёт presigned-ссылку на загрузку аватара пользователя.
// Если объектное хранилище не сконфигурировано — ErrAvatarsDisabled.
func (s *Service) AvatarUploadURL(ctx context.Context, userID uuid.UUID, contentType string, contentLength int64) (*storage.UploadInfo, error) {
	const op = "service.users.AvatarUploadURL"

	if s.avatars == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrAvatarsDisabled)
	}

	info, err := s.avatars.AvatarUploadURL(ctx, userID, contentType, contentLength)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidArgument) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return info, nil
}

// ConfirmAvatarUpload проверяет, что объект действительно загружен,
// и фиксирует публичный URL аватара в профиле пользователя.
func (s *Service) ConfirmAvatarUpload(ctx context.Context, userID uuid.UUID, key string) (*models.User, error) {
	const op = "service.users.ConfirmAvatarUpload"

	if s.avatars == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrAvatarsDisabled)
	}

	avatarURL, err := s.avatars.CheckAvatarUpload(ctx, userID, key)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		case errors.Is(err, storage.ErrInvalidArgument):
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UpdateAvatarURL(ctx, userID, avatarURL)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.dropUserCache(ctx, userID)

	logctx.From(ctx).Info("avatar_confirmed",
		slog.String("user_id", userID.String()),
		slog.String("avatar_key", key),
	)

	return user, nil
}

func requireAdmin(actor *models.User) error {
	if actor == nil || !actor.IsAdmin() {
		return ErrPermissionDenied
	}

	return nil
}
