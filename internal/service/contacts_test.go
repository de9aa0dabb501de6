package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/avoronova/go-contacts-api/internal/models"
	"github.com/avoronova/go-contacts-api/internal/storage"
	"github.com/avoronova/go-contacts-api/mocks"
)

func validContactInput() ContactInput {
	return ContactInput{
		FirstName: "Ivan",
		LastName:  "Petrov",
		Phone:     "+7 900 123-45-67",
		Email:     "Ivan.Petrov@Example.com",
		Notes:     "met at conference",
	}
}

func TestCreateContact_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	userID := uuid.New()

	st.EXPECT().SaveContact(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *models.Contact) error {
			require.Equal(t, userID, c.UserID)
			require.NotEqual(t, uuid.Nil, c.ID)
			// Email нормализуется к нижнему регистру.
			require.Equal(t, "ivan.petrov@example.com", c.Email)
			return nil
		})

	contact, err := svc.CreateContact(context.Background(), userID, validContactInput())
	require.NoError(t, err)
	require.Equal(t, "Ivan", contact.FirstName)
}

func TestCreateContact_NormalizesBirthday(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	bday := time.Date(1990, 5, 12, 15, 30, 0, 0, time.Local)
	in := validContactInput()
	in.Birthday = &bday

	st.EXPECT().SaveContact(gomock.Any(), gomock.Any()).Return(nil)

	contact, err := svc.CreateContact(context.Background(), uuid.New(), in)
	require.NoError(t, err)
	require.NotNil(t, contact.Birthday)
	// Дата хранится как полночь UTC.
	require.Equal(t, time.Date(1990, 5, 12, 0, 0, 0, 0, time.UTC), *contact.Birthday)
}

func TestCreateContact_Validation(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	userID := uuid.New()
	long := func(n int) string {
		b := make([]rune, n)
		for i := range b {
			b[i] = 'a'
		}
		return string(b)
	}
	future := time.Now().UTC().Add(48 * time.Hour)

	cases := []struct {
		name   string
		mutate func(*ContactInput)
	}{
		{"empty_first_name", func(in *ContactInput) { in.FirstName = "  " }},
		{"long_first_name", func(in *ContactInput) { in.FirstName = long(51) }},
		{"empty_last_name", func(in *ContactInput) { in.LastName = "" }},
		{"long_last_name", func(in *ContactInput) { in.LastName = long(51) }},
		{"empty_phone", func(in *ContactInput) { in.Phone = "" }},
		{"long_phone", func(in *ContactInput) { in.Phone = long(21) }},
		{"bad_email", func(in *ContactInput) { in.Email = "not-an-email" }},
		{"empty_email", func(in *ContactInput) { in.Email = "" }},
		{"future_birthday", func(in *ContactInput) { in.Birthday = &future }},
		{"long_notes", func(in *ContactInput) { in.Notes = long(2001) }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			in := validContactInput()
			tc.mutate(&in)

			_, err := svc.CreateContact(context.Background(), userID, in)
			require.Error(t, err)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestContactByID_NotFound(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	userID, id := uuid.New(), uuid.New()
	st.EXPECT().ContactByID(gomock.Any(), userID, id).Return(nil, storage.ErrNotFound)

	_, err := svc.ContactByID(context.Background(), userID, id)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListContacts_ClampsLimit(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	userID := uuid.New()

	// limit=0 → 100, limit=1000 → 100, offset<0 → 0.
	st.EXPECT().ListContacts(gomock.Any(), userID, storage.ListOptions{Limit: 100}).
		Return(nil, nil)
	_, err := svc.ListContacts(context.Background(), userID, storage.ListOptions{})
	require.NoError(t, err)

	st.EXPECT().ListContacts(gomock.Any(), userID, storage.ListOptions{Limit: 100}).
		Return(nil, nil)
	_, err = svc.ListContacts(context.Background(), userID, storage.ListOptions{Limit: 1000, Offset: -5})
	require.NoError(t, err)
}

func TestListContacts_PassesQuery(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	userID := uuid.New()
	st.EXPECT().ListContacts(gomock.Any(), userID, storage.ListOptions{Limit: 10, Query: "petr"}).
		Return([]models.Contact{{ID: uuid.New()}}, nil)

	contacts, err := svc.ListContacts(context.Background(), userID, storage.ListOptions{Limit: 10, Query: " petr "})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
}

func TestUpdateContact_PartialPatch(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	userID, id := uuid.New(), uuid.New()
	phone := "+7 999 000-00-00"

	st.EXPECT().UpdateContact(gomock.Any(), userID, id, gomock.Any()).DoAndReturn(
		func(_ context.Context, _, _ uuid.UUID, upd storage.ContactUpdate) (*models.Contact, error) {
			require.Nil(t, upd.FirstName)
			require.NotNil(t, upd.Phone)
			require.Equal(t, phone, *upd.Phone)
			return &models.Contact{ID: id, UserID: userID, Phone: phone}, nil
		})

	contact, err := svc.UpdateContact(context.Background(), userID, id, ContactPatch{Phone: &phone})
	require.NoError(t, err)
	require.Equal(t, phone, contact.Phone)
}

func TestUpdateContact_ClearBirthday(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	userID, id := uuid.New(), uuid.New()

	st.EXPECT().UpdateContact(gomock.Any(), userID, id, gomock.Any()).DoAndReturn(
		func(_ context.Context, _, _ uuid.UUID, upd storage.ContactUpdate) (*models.Contact, error) {
			require.True(t, upd.ClearBirthday)
			require.Nil(t, upd.Birthday)
			return &models.Contact{ID: id, UserID: userID}, nil
		})

	_, err := svc.UpdateContact(context.Background(), userID, id, ContactPatch{ClearBirthday: true})
	require.NoError(t, err)
}

func TestUpdateContact_InvalidPatch(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	empty := ""
	_, err := svc.UpdateContact(context.Background(), uuid.New(), uuid.New(), ContactPatch{FirstName: &empty})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestUpdateContact_ForeignContact_NotFound(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Чужой контакт для хранилища неотличим от несуществующего.
	st.EXPECT().UpdateContact(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, storage.ErrNotFound)

	_, err := svc.UpdateContact(context.Background(), uuid.New(), uuid.New(), ContactPatch{})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteContact_ReturnsDeleted(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	userID, id := uuid.New(), uuid.New()
	st.EXPECT().DeleteContact(gomock.Any(), userID, id).
		Return(&models.Contact{ID: id, UserID: userID, FirstName: "Ivan"}, nil)

	contact, err := svc.DeleteContact(context.Background(), userID, id)
	require.NoError(t, err)
	require.Equal(t, id, contact.ID)
}

func TestUpcomingBirthdays_DefaultsAndBounds(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	userID := uuid.New()

	st.EXPECT().UpcomingBirthdays(gomock.Any(), userID, 7).Return(nil, nil)
	_, err := svc.UpcomingBirthdays(context.Background(), userID, 0)
	require.NoError(t, err)

	_, err = svc.UpcomingBirthdays(context.Background(), userID, 366)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func newSvcWithMocks(t *testing.T) (*Service, *mocks.MockStorage, *mocks.MockAvatarsStorage, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	av := mocks.NewMockAvatarsStorage(ctrl)
	svc := New(st, testCfg())
	svc.SetAvatars(av)
	return svc, st, av, ctrl
}
