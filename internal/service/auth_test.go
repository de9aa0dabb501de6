package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/avoronova/go-contacts-api/internal/config"
	"github.com/avoronova/go-contacts-api/internal/models"
	"github.com/avoronova/go-contacts-api/internal/storage"
	"github.com/avoronova/go-contacts-api/mocks"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "unit-secret",
		AccessTokenTTL:  30 * time.Second,
		RefreshTokenTTL: 24 * time.Hour,
		ResetTokenTTL:   10 * time.Minute,
		Issuer:          "contacts-api",
		Audience:        []string{"contacts-api"},
	}
}

func newSvc(t *testing.T) (*Service, *mocks.MockStorage, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testCfg())
	return svc, st, ctrl
}

func mustHashPW(t *testing.T, pw string) string {
	t.Helper()
	h, err := hashPassword(pw)
	require.NoError(t, err)
	return h
}

func TestRegisterUser_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	email := "User@Example.com"
	norm := "user@example.com"
	username := "new_user"
	pw := "Abcdef1!"

	// Сначала проверки уникальности, потом SaveUser, потом generateRefreshToken → SaveRefreshToken.
	st.EXPECT().UserByEmail(gomock.Any(), norm).Return(nil, storage.ErrNotFound)
	st.EXPECT().UserByUsername(gomock.Any(), username).Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, u *models.User) error {
			require.Equal(t, norm, u.Email)
			require.Equal(t, username, u.Username)
			require.Equal(t, models.RoleUser, u.Role)
			require.NotEqual(t, pw, u.PasswordHash)
			return nil
		})
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	tp, uid, err := svc.RegisterUser(ctx, email, username, pw)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, uid)
	require.NotEmpty(t, tp.AccessToken)
	require.NotEmpty(t, tp.RefreshToken)

	require.WithinDuration(t, time.Now().Add(svc.cfg.AccessTokenTTL), tp.AccessExpiresAt, 2*time.Second)
}

func TestRegisterUser_InvalidEmail(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, _, err := svc.RegisterUser(context.Background(), "not-an-email", "user", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidEmail)
}

func TestRegisterUser_InvalidUsername(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, _, err := svc.RegisterUser(context.Background(), "u@e.com", "ab", "Abcdef1!")
	require.ErrorIs(t, err, ErrInvalidUsername)

	_, _, err = svc.RegisterUser(context.Background(), "u@e.com", "bad name!", "Abcdef1!")
	require.ErrorIs(t, err, ErrInvalidUsername)
}

func TestRegisterUser_WeakOrEmptyPassword(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, _, err := svc.RegisterUser(context.Background(), "u@e.com", "user123", "")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmptyPassword)

	_, _, err = svc.RegisterUser(context.Background(), "u@e.com", "user123", "short")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrWeakPassword)

	// Длинный, но без спецсимволов/заглавных.
	_, _, err = svc.RegisterUser(context.Background(), "u@e.com", "user123", "abcdefg1")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegisterUser_EmailTaken_OnLookup(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Если UserByEmail вернул пользователя (err == nil) - считается занятым email.
	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(&models.User{ID: uuid.New(), Email: "user@example.com"}, nil)

	_, _, err := svc.RegisterUser(context.Background(), "user@example.com", "user123", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterUser_UsernameTaken_OnLookup(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, storage.ErrNotFound)
	st.EXPECT().UserByUsername(gomock.Any(), "user123").
		Return(&models.User{ID: uuid.New(), Username: "user123"}, nil)

	_, _, err := svc.RegisterUser(context.Background(), "user@example.com", "user123", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterUser_SaveUserAlreadyExists_MapsToEmailTaken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Гонка: обе проверки прошли, но уникальный индекс сработал на вставке.
	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, storage.ErrNotFound)
	st.EXPECT().UserByUsername(gomock.Any(), "user123").Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists)

	_, _, err := svc.RegisterUser(context.Background(), "user@example.com", "user123", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginUser_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	pw := "Abcdef1!"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		Username:     "user123",
		PasswordHash: mustHashPW(t, pw),
		Role:         models.RoleUser,
	}

	st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	tp, uid, err := svc.LoginUser(context.Background(), "User@Example.com", pw)
	require.NoError(t, err)
	require.Equal(t, user.ID, uid)
	require.NotEmpty(t, tp.AccessToken)
	require.NotEmpty(t, tp.RefreshToken)
}

func TestLoginUser_WrongPassword(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := &models.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: mustHashPW(t, "Abcdef1!"),
	}

	st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)

	_, _, err := svc.LoginUser(context.Background(), user.Email, "Wrong-password1")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUser_UnknownEmail_MapsToInvalidCredentials(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, storage.ErrNotFound)

	_, _, err := svc.LoginUser(context.Background(), "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUser_BadEmailFormat_NoStorageCall(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, _, err := svc.LoginUser(context.Background(), "not-an-email", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshToken_OK_RotatesOldToken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := &models.User{ID: uuid.New(), Email: "user@example.com"}
	plain := "refresh-secret"
	hash := hashToken(plain)

	st.EXPECT().RefreshTokenByHash(gomock.Any(), hash).Return(&models.RefreshToken{
		RefreshTokenHash: hash,
		UserID:           user.ID,
		ExpiresAt:        time.Now().UTC().Add(time.Hour),
	}, nil)
	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	st.EXPECT().RevokeRefreshToken(gomock.Any(), hash).Return(true, nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	tp, uid, err := svc.RefreshToken(context.Background(), plain)
	require.NoError(t, err)
	require.Equal(t, user.ID, uid)
	require.NotEmpty(t, tp.AccessToken)
	require.NotEqual(t, plain, tp.RefreshToken)
}

func TestRefreshToken_Expired(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	plain := "refresh-secret"
	st.EXPECT().RefreshTokenByHash(gomock.Any(), hashToken(plain)).Return(&models.RefreshToken{
		RefreshTokenHash: hashToken(plain),
		UserID:           uuid.New(),
		ExpiresAt:        time.Now().UTC().Add(-time.Minute),
	}, nil)

	_, _, err := svc.RefreshToken(context.Background(), plain)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshToken_Revoked(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	plain := "refresh-secret"
	st.EXPECT().RefreshTokenByHash(gomock.Any(), hashToken(plain)).Return(&models.RefreshToken{
		RefreshTokenHash: hashToken(plain),
		UserID:           uuid.New(),
		ExpiresAt:        time.Now().UTC().Add(time.Hour),
		Revoked:          true,
	}, nil)

	_, _, err := svc.RefreshToken(context.Background(), plain)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefreshToken_Unknown(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().RefreshTokenByHash(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)

	_, _, err := svc.RefreshToken(context.Background(), "unknown")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevokeToken_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	plain := "refresh-secret"
	st.EXPECT().RevokeRefreshToken(gomock.Any(), hashToken(plain)).Return(true, nil)

	require.NoError(t, svc.RevokeToken(context.Background(), plain))
}

func TestRevokeToken_AlreadyRevoked(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().RevokeRefreshToken(gomock.Any(), gomock.Any()).Return(false, nil)

	err := svc.RevokeToken(context.Background(), "refresh-secret")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRevokeToken_Unknown(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().RevokeRefreshToken(gomock.Any(), gomock.Any()).Return(false, storage.ErrNotFound)

	err := svc.RevokeToken(context.Background(), "refresh-secret")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCurrentUser_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := &models.User{ID: uuid.New(), Email: "user@example.com", Role: models.RoleUser}

	access, err := svc.generateAccessToken(context.Background(), user.ID, user.Email, time.Now().UTC())
	require.NoError(t, err)

	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)

	got, err := svc.CurrentUser(context.Background(), access)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
}

func TestCurrentUser_DeletedUser_MapsToInvalidToken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	uid := uuid.New()
	access, err := svc.generateAccessToken(context.Background(), uid, "user@example.com", time.Now().UTC())
	require.NoError(t, err)

	st.EXPECT().UserByID(gomock.Any(), uid).Return(nil, storage.ErrNotFound)

	_, err = svc.CurrentUser(context.Background(), access)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequestPasswordReset_UnknownEmail_SilentOK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, storage.ErrNotFound)

	token, err := svc.RequestPasswordReset(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.Empty(t, token)
}

func TestRequestPasswordReset_BadEmail_SilentOK(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	token, err := svc.RequestPasswordReset(context.Background(), "not-an-email")
	require.NoError(t, err)
	require.Empty(t, token)
}

func TestConfirmPasswordReset_OK_RevokesAllTokens(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := &models.User{ID: uuid.New(), Email: "user@example.com"}

	st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil).Times(2)

	token, err := svc.RequestPasswordReset(context.Background(), user.Email)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	st.EXPECT().UpdateUserPassword(gomock.Any(), user.ID, gomock.Any()).Return(nil)
	st.EXPECT().RevokeAllUserTokens(gomock.Any(), user.ID).Return(nil)

	require.NoError(t, svc.ConfirmPasswordReset(context.Background(), token, "NewPass1!"))
}

func TestConfirmPasswordReset_AccessTokenRejected(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Access-токен не несёт purpose=password_reset и не должен подходить.
	access, err := svc.generateAccessToken(context.Background(), uuid.New(), "user@example.com", time.Now().UTC())
	require.NoError(t, err)

	err = svc.ConfirmPasswordReset(context.Background(), access, "NewPass1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestConfirmPasswordReset_WeakNewPassword(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := &models.User{ID: uuid.New(), Email: "user@example.com"}
	st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)

	token, err := svc.RequestPasswordReset(context.Background(), user.Email)
	require.NoError(t, err)

	err = svc.ConfirmPasswordReset(context.Background(), token, "weak")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestValidateToken_Garbage(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, _, err := svc.ValidateToken(context.Background(), "garbage")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	other := New(mocks.NewMockStorage(ctrl), config.AuthConfig{
		JWTSecret:      "another-secret",
		AccessTokenTTL: time.Minute,
		Issuer:         "contacts-api",
		Audience:       []string{"contacts-api"},
	})

	token, err := other.generateAccessToken(context.Background(), uuid.New(), "u@e.com", time.Now().UTC())
	require.NoError(t, err)

	_, _, err = svc.ValidateToken(context.Background(), token)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegisterUser_StorageLookupError_Propagated(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(nil, errors.New("db down"))

	_, _, err := svc.RegisterUser(context.Background(), "user@example.com", "user123", "Abcdef1!")
	require.Error(t, err)
}
