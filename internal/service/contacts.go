package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	logctx "github.com/avoronova/go-contacts-api/internal/pkg/log"

	"github.com/avoronova/go-contacts-api/internal/models"
	"github.com/avoronova/go-contacts-api/internal/storage"
)

// Ограничения полей контакта; согласованы со схемой (см. миграции).
const (
	maxNameLen  = 50
	maxPhoneLen = 20
	maxEmailLen = 100
	maxNotesLen = 2000

	defaultContactLimit = 100
	maxContactLimit     = 100

	defaultBirthdayDays = 7
	maxBirthdayDays     = 365
)

// ContactInput — входные данные создания контакта.
type ContactInput struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Birthday  *time.Time
	Notes     string
}

// ContactPatch — частичное обновление контакта; nil-поля не трогаются.
// ClearBirthday=true сбрасывает дату рождения.
type ContactPatch struct {
	FirstName     *string
	LastName      *string
	Phone         *string
	Email         *string
	Birthday      *time.Time
	ClearBirthday bool
	Notes         *string
}

// CreateContact создаёт новый контакт для владельца userID.
func (s *Service) CreateContact(ctx context.Context, userID uuid.UUID, input ContactInput) (*models.Contact, error) {
	const op = "service.contacts.CreateContact"

	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Email = strings.TrimSpace(input.Email)

	if err := validateContactInput(input); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	contact := &models.Contact{
		ID:        uuid.New(),
		UserID:    userID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		Email:     strings.ToLower(input.Email),
		Birthday:  normalizeBirthday(input.Birthday),
		Notes:     input.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.storage.SaveContact(ctx, contact); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("contact_created",
		slog.String("contact_id", contact.ID.String()),
		slog.String("user_id", userID.String()),
	)

	return contact, nil
}

// ContactByID возвращает контакт владельца.
// Чужой или несуществующий контакт — ErrNotFound (владение не раскрываем).
func (s *Service) ContactByID(ctx context.Context, userID, id uuid.UUID) (*models.Contact, error) {
	const op = "service.contacts.ContactByID"

	contact, err := s.storage.ContactByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return contact, nil
}

// ListContacts возвращает страницу контактов владельца.
// Limit приводится к диапазону [1; 100], пустой limit — 100.
func (s *Service) ListContacts(ctx context.Context, userID uuid.UUID, opts storage.ListOptions) ([]models.Contact, error) {
	const op = "service.contacts.ListContacts"

	if opts.Limit <= 0 {
		opts.Limit = defaultContactLimit
	}
	if opts.Limit > maxContactLimit {
		opts.Limit = maxContactLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	opts.Query = strings.TrimSpace(opts.Query)

	contacts, err := s.storage.ListContacts(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return contacts, nil
}

// UpdateContact применяет частичное обновление контакта владельца.
func (s *Service) UpdateContact(ctx context.Context, userID, id uuid.UUID, patch ContactPatch) (*models.Contact, error) {
	const op = "service.contacts.UpdateContact"

	update, err := validateContactPatch(patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	contact, err := s.storage.UpdateContact(ctx, userID, id, update)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return contact, nil
}

// DeleteContact удаляет контакт владельца и возвращает удалённую запись.
// Удаление жёсткое: запись исчезает из БД, восстановление не предусмотрено.
func (s *Service) DeleteContact(ctx context.Context, userID, id uuid.UUID) (*models.Contact, error) {
	const op = "service.contacts.DeleteContact"

	contact, err := s.storage.DeleteContact(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("contact_deleted",
		slog.String("contact_id", id.String()),
		slog.String("user_id", userID.String()),
	)

	return contact, nil
}

// UpcomingBirthdays возвращает контакты владельца с годовщиной рождения
// в ближайшие days дней. days <= 0 трактуется как 7 (значение по умолчанию);
// days > 365 отклоняется с ErrInvalidArgument.
func (s *Service) UpcomingBirthdays(ctx context.Context, userID uuid.UUID, days int) ([]models.Contact, error) {
	const op = "service.contacts.UpcomingBirthdays"

	if days <= 0 {
		days = defaultBirthdayDays
	}
	if days > maxBirthdayDays {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	contacts, err := s.storage.UpcomingBirthdays(ctx, userID, days)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return contacts, nil
}

// validateContactInput проверяет обязательные поля создаваемого контакта.
func validateContactInput(input ContactInput) error {
	if input.FirstName == "" || len([]rune(input.FirstName)) > maxNameLen {
		return ErrInvalidArgument
	}

	if input.LastName == "" || len([]rune(input.LastName)) > maxNameLen {
		return ErrInvalidArgument
	}

	if input.Phone == "" || len([]rune(input.Phone)) > maxPhoneLen {
		return ErrInvalidArgument
	}

	if err := validateContactEmail(input.Email); err != nil {
		return err
	}

	if err := validateBirthday(input.Birthday); err != nil {
		return err
	}

	if len([]rune(input.Notes)) > maxNotesLen {
		return ErrInvalidArgument
	}

	return nil
}

// validateContactPatch нормализует patch и переводит его в storage.ContactUpdate.
func validateContactPatch(patch ContactPatch) (storage.ContactUpdate, error) {
	var update storage.ContactUpdate

	if patch.FirstName != nil {
		v := strings.TrimSpace(*patch.FirstName)
		if v == "" || len([]rune(v)) > maxNameLen {
			return update, ErrInvalidArgument
		}
		update.FirstName = &v
	}

	if patch.LastName != nil {
		v := strings.TrimSpace(*patch.LastName)
		if v == "" || len([]rune(v)) > maxNameLen {
			return update, ErrInvalidArgument
		}
		update.LastName = &v
	}

	if patch.Phone != nil {
		v := strings.TrimSpace(*patch.Phone)
		if v == "" || len([]rune(v)) > maxPhoneLen {
			return update, ErrInvalidArgument
		}
		update.Phone = &v
	}

	if patch.Email != nil {
		v := strings.TrimSpace(*patch.Email)
		if err := validateContactEmail(v); err != nil {
			return update, err
		}
		v = strings.ToLower(v)
		update.Email = &v
	}

	if patch.ClearBirthday {
		update.ClearBirthday = true
	} else if patch.Birthday != nil {
		if err := validateBirthday(patch.Birthday); err != nil {
			return update, err
		}
		update.Birthday = normalizeBirthday(patch.Birthday)
	}

	if patch.Notes != nil {
		if len([]rune(*patch.Notes)) > maxNotesLen {
			return update, ErrInvalidArgument
		}
		update.Notes = patch.Notes
	}

	return update, nil
}

func validateContactEmail(email string) error {
	if email == "" || len([]rune(email)) > maxEmailLen {
		return ErrInvalidArgument
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidArgument
	}

	return nil
}

// validateBirthday отклоняет даты рождения из будущего.
func validateBirthday(birthday *time.Time) error {
	if birthday == nil {
		return nil
	}

	if birthday.After(time.Now().UTC()) {
		return ErrInvalidArgument
	}

	return nil
}

// normalizeBirthday обрезает время до полуночи UTC (в БД хранится DATE).
func normalizeBirthday(birthday *time.Time) *time.Time {
	if birthday == nil {
		return nil
	}

	d := time.Date(birthday.Year(), birthday.Month(), birthday.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}
