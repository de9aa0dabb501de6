package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avoronova/go-contacts-api/internal/models"
	"github.com/avoronova/go-contacts-api/internal/storage"
)

// contactColumns — единый список колонок таблицы contacts,
// используемый в SELECT/RETURNING, чтобы гарантировать одинаковый порядок сканирования.
const contactColumns = `
id, user_id, first_name, last_name, phone, email, birthday, notes, created_at, updated_at
`

// scanContact сканирует одну строку контакта в доменную модель.
func scanContact(row pgx.Row) (*models.Contact, error) {
	var contact models.Contact

	if err := row.Scan(
		&contact.ID,
		&contact.UserID,
		&contact.FirstName,
		&contact.LastName,
		&contact.Phone,
		&contact.Email,
		&contact.Birthday,
		&contact.Notes,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &contact, nil
}

// SaveContact создаёт новый контакт.
func (s *Storage) SaveContact(ctx context.Context, contact *models.Contact) error {
	const op = "storage.postgres.SaveContact"

	query := `
		INSERT INTO contacts(id, user_id, first_name, last_name, phone, email, birthday, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.Exec(ctx, query,
		contact.ID,
		contact.UserID,
		contact.FirstName,
		contact.LastName,
		contact.Phone,
		contact.Email,
		contact.Birthday,
		contact.Notes,
		contact.CreatedAt,
		contact.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ContactByID находит контакт владельца по ID.
// Выборка всегда ограничена user_id: чужой контакт -> storage.ErrNotFound.
func (s *Storage) ContactByID(ctx context.Context, userID, id uuid.UUID) (*models.Contact, error) {
	const op = "storage.postgres.ContactByID"

	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1 AND id = $2`

	contact, err := scanContact(s.db.QueryRow(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return contact, nil
}

// ListContacts возвращает страницу контактов владельца.
// Сортировка фиксирована: created_at DESC, id DESC.
// Query — регистронезависимый подстрочный поиск по имени/фамилии/email.
func (s *Storage) ListContacts(ctx context.Context, userID uuid.UUID, opts storage.ListOptions) ([]models.Contact, error) {
	const op = "storage.postgres.ListContacts"

	limit := opts.Limit
	if limit <= 0 {
		// Защита от нуля/отрицательного значения.
		limit = 1
	}

	var rows pgx.Rows
	var err error

	if opts.Query == "" {
		rows, err = s.db.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
		`, userID, limit, opts.Offset)
	} else {
		pattern := "%" + escapeLike(opts.Query) + "%"
		rows, err = s.db.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = $1
		  AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
		`, userID, pattern, limit, opts.Offset)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		contact, scanErr := scanContact(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, scanErr)
		}

		contacts = append(contacts, *contact)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, rows.Err())
	}

	return contacts, nil
}

// UpdateContact выполняет частичный апдейт: обновляет только поля,
// указанные непустыми pointer-полями, и всегда сдвигает updated_at = now().
// Ошибки: storage.ErrNotFound при отсутствии записи у владельца.
func (s *Storage) UpdateContact(ctx context.Context, userID, id uuid.UUID, update storage.ContactUpdate) (*models.Contact, error) {
	const op = "storage.postgres.UpdateContact"

	sets := []string{"updated_at = now()"}
	args := []any{userID, id}
	count := 2

	add := func(col string, val any) {
		count++
		sets = append(sets, fmt.Sprintf("%s = $%d", col, count))
		args = append(args, val)
	}

	if update.FirstName != nil {
		add("first_name", *update.FirstName)
	}

	if update.LastName != nil {
		add("last_name", *update.LastName)
	}

	if update.Phone != nil {
		add("phone", *update.Phone)
	}

	if update.Email != nil {
		add("email", *update.Email)
	}

	if update.ClearBirthday {
		sets = append(sets, "birthday = NULL")
	} else if update.Birthday != nil {
		add("birthday", *update.Birthday)
	}

	if update.Notes != nil {
		add("notes", *update.Notes)
	}

	query := fmt.Sprintf(`UPDATE contacts SET %s WHERE user_id = $1 AND id = $2 RETURNING %s`,
		strings.Join(sets, ", "), contactColumns)

	contact, err := scanContact(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return contact, nil
}

// DeleteContact удаляет контакт владельца и возвращает удалённую запись.
func (s *Storage) DeleteContact(ctx context.Context, userID, id uuid.UUID) (*models.Contact, error) {
	const op = "storage.postgres.DeleteContact"

	query := `DELETE FROM contacts WHERE user_id = $1 AND id = $2 RETURNING ` + contactColumns

	contact, err := scanContact(s.db.QueryRow(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return contact, nil
}

// UpcomingBirthdays возвращает контакты владельца, чья годовщина рождения
// попадает в окно [сегодня; сегодня+days]. Годовщина вычисляется прибавлением
// полных лет к дате рождения; вторая ветка покрывает переход через конец года.
func (s *Storage) UpcomingBirthdays(ctx context.Context, userID uuid.UUID, days int) ([]models.Contact, error) {
	const op = "storage.postgres.UpcomingBirthdays"

	query := `
	SELECT ` + contactColumns + `
	FROM contacts
	WHERE user_id = $1
	  AND birthday IS NOT NULL
	  AND (
	    (birthday + make_interval(years => date_part('year', age(current_date, birthday))::int))
	      BETWEEN current_date AND current_date + $2::int
	    OR
	    (birthday + make_interval(years => date_part('year', age(current_date, birthday))::int + 1))
	      BETWEEN current_date AND current_date + $2::int
	  )
	ORDER BY (birthday + make_interval(years => date_part('year', age(current_date, birthday))::int)), id
	`

	rows, err := s.db.Query(ctx, query, userID, days)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		contact, scanErr := scanContact(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, scanErr)
		}

		contacts = append(contacts, *contact)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, rows.Err())
	}

	return contacts, nil
}

// escapeLike экранирует спецсимволы шаблона LIKE во входной строке поиска.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
