package handlers

import (
	"net/http"
	"time"

	"github.com/avoronova/go-contacts-api/internal/service"
	"github.com/avoronova/go-contacts-api/internal/storage"
	"github.com/avoronova/go-contacts-api/internal/transport/http/httperr"
	"github.com/avoronova/go-contacts-api/internal/transport/http/middleware"
)

type contactCreateRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Birthday  string `json:"birthday,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// contactUpdateRequest — частичное обновление: отсутствующие поля не трогаются.
// "birthday": "" сбрасывает дату рождения.
type contactUpdateRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	Birthday  *string `json:"birthday,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type contactListResponse struct {
	Contacts []contactResponse `json:"contacts"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

func (h *Handlers) CreateContact(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var in contactCreateRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.WriteError(w, r, httperr.ErrBadRequest)
		return
	}

	input := service.ContactInput{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Email:     in.Email,
		Notes:     in.Notes,
	}
	if in.Birthday != "" {
		birthday, err := time.Parse(dateLayout, in.Birthday)
		if err != nil {
			httperr.WriteError(w, r, httperr.ErrBadRequest)
			return
		}
		input.Birthday = &birthday
	}

	contact, err := h.svc.CreateContact(r.Context(), user.ID, input)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, contactToResponse(contact))
}

func (h *Handlers) ContactByID(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	id, err := uuidParam(r, "id")
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	contact, err := h.svc.ContactByID(r.Context(), user.ID, id)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, contactToResponse(contact))
}

func (h *Handlers) ListContacts(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	opts := storage.ListOptions{
		Limit:  limit,
		Offset: offset,
		Query:  r.URL.Query().Get("q"),
	}

	contacts, err := h.svc.ListContacts(r.Context(), user.ID, opts)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, contactListResponse{
		Contacts: contactsToResponse(contacts),
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	})
}

func (h *Handlers) UpdateContact(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	id, err := uuidParam(r, "id")
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	var in contactUpdateRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.WriteError(w, r, httperr.ErrBadRequest)
		return
	}

	patch := service.ContactPatch{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Email:     in.Email,
		Notes:     in.Notes,
	}
	if in.Birthday != nil {
		if *in.Birthday == "" {
			patch.ClearBirthday = true
		} else {
			birthday, perr := time.Parse(dateLayout, *in.Birthday)
			if perr != nil {
				httperr.WriteError(w, r, httperr.ErrBadRequest)
				return
			}
			patch.Birthday = &birthday
		}
	}

	contact, err := h.svc.UpdateContact(r.Context(), user.ID, id, patch)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, contactToResponse(contact))
}

// DeleteContact удаляет контакт и возвращает удалённую запись в теле ответа.
func (h *Handlers) DeleteContact(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	id, err := uuidParam(r, "id")
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	contact, err := h.svc.DeleteContact(r.Context(), user.ID, id)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, contactToResponse(contact))
}

func (h *Handlers) UpcomingBirthdays(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	days, err := queryInt(r, "days", 0)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	contacts, err := h.svc.UpcomingBirthdays(r.Context(), user.ID, days)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"contacts": contactsToResponse(contacts),
	})
}
