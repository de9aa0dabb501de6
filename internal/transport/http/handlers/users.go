package handlers

import (
	"net/http"

	"github.com/avoronova/go-contacts-api/internal/models"
	"github.com/avoronova/go-contacts-api/internal/storage"
	"github.com/avoronova/go-contacts-api/internal/transport/http/httperr"
	"github.com/avoronova/go-contacts-api/internal/transport/http/middleware"
)

type roleUpdateRequest struct {
	Role string `json:"role"`
}

type avatarPresignRequest struct {
	ContentType   string `json:"content_type"`
	ContentLength int64  `json:"content_length"`
}

type avatarPresignResponse struct {
	UploadURL      string            `json:"upload_url"`
	AvatarKey      string            `json:"avatar_key"`
	ExpiresSeconds int               `json:"expires_seconds"`
	RequiredHeader map[string]string `json:"required_header,omitempty"`
}

type avatarConfirmRequest struct {
	AvatarKey string `json:"avatar_key"`
}

type userListResponse struct {
	Users  []userResponse `json:"users"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func (h *Handlers) UserByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	user, err := h.svc.UserByID(r.Context(), id)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userToResponse(user))
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor := middleware.UserFromContext(r.Context())

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

	opts := storage.ListOptions{Limit: limit, Offset: offset}

	users, err := h.svc.ListUsers(r.Context(), actor, opts)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, userToResponse(&users[i]))
	}

	writeJSON(w, http.StatusOK, userListResponse{
		Users:  out,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

func (h *Handlers) ChangeUserRole(w http.ResponseWriter, r *http.Request) {
	actor := middleware.UserFromContext(r.Context())

	id, err := uuidParam(r, "id")
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	var in roleUpdateRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.WriteError(w, r, httperr.ErrBadRequest)
		return
	}

	user, err := h.svc.ChangeUserRole(r.Context(), actor, id, models.Role(in.Role))
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userToResponse(user))
}

func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.UserFromContext(r.Context())

	id, err := uuidParam(r, "id")
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteUser(r.Context(), actor, id); err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AvatarPresign выдаёт presigned PUT URL для загрузки аватара текущего пользователя.
func (h *Handlers) AvatarPresign(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var in avatarPresignRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.WriteError(w, r, httperr.ErrBadRequest)
		return
	}

	info, err := h.svc.AvatarUploadURL(r.Context(), user.ID, in.ContentType, in.ContentLength)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, avatarPresignResponse{
		UploadURL:      info.UploadURL,
		AvatarKey:      info.AvatarKey,
		ExpiresSeconds: int(info.Expires.Seconds()),
		RequiredHeader: info.RequiredHeader,
	})
}

// AvatarConfirm фиксирует загруженный аватар в профиле текущего пользователя.
func (h *Handlers) AvatarConfirm(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var in avatarConfirmRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.WriteError(w, r, httperr.ErrBadRequest)
		return
	}

	updated, err := h.svc.ConfirmAvatarUpload(r.Context(), user.ID, in.AvatarKey)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userToResponse(updated))
}
