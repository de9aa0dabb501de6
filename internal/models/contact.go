package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact — запись о человеке, принадлежащая ровно одному пользователю.
// Инвариант владения: читать и изменять контакт может только его владелец (UserID);
// все запросы хранилища обязаны фильтровать по user_id.
type Contact struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	FirstName string
	LastName  string
	Phone     string
	Email     string
	// Birthday — дата рождения; nil, если не указана. Хранится как DATE (без времени).
	Birthday  *time.Time
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
