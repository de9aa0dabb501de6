package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/avoronova/go-contacts-api/internal/models"
)

// Интеграционные тесты Redis-кэша: поднимают redis:7-alpine через
// testcontainers-go и проверяют refresh- и user-кэш на реальном клиенте.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/cache -v -race -count=1

func startRedis(t *testing.T) (Cache, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "6379/tcp")
	url := fmt.Sprintf("redis://%s:%s/0", host, port.Port())

	cache, err := New(url, "test:", time.Minute)
	require.NoError(t, err)

	cleanup := func() {
		_ = cache.Close()
		_ = c.Terminate(context.Background())
	}
	return cache, cleanup
}

func TestIntegration_Refresh_RoundTrip(t *testing.T) {
	cache, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()
	hash := "refresh-hash-1"
	entry := &RefreshEntry{
		UserID:    uuid.New(),
		Revoked:   false,
		ExpiresAt: time.Now().UTC().Add(time.Hour).Truncate(time.Second),
	}

	// Промах до записи.
	_, ok, err := cache.GetRefresh(ctx, hash)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.SetRefresh(ctx, hash, entry, time.Hour))

	got, ok, err := cache.GetRefresh(ctx, hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry.UserID, got.UserID)
	require.False(t, got.Revoked)
	require.Equal(t, entry.ExpiresAt.Unix(), got.ExpiresAt.Unix())
}

func TestIntegration_Refresh_MarkRevoked(t *testing.T) {
	cache, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()
	hash := "refresh-hash-2"
	entry := &RefreshEntry{
		UserID:    uuid.New(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}

	require.NoError(t, cache.SetRefresh(ctx, hash, entry, time.Hour))
	require.NoError(t, cache.MarkRevoked(ctx, hash))

	got, ok, err := cache.GetRefresh(ctx, hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Revoked)
}

func TestIntegration_Refresh_TTLExpiry(t *testing.T) {
	cache, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()
	hash := "refresh-hash-3"
	entry := &RefreshEntry{
		UserID:    uuid.New(),
		ExpiresAt: time.Now().UTC().Add(time.Second),
	}

	require.NoError(t, cache.SetRefresh(ctx, hash, entry, time.Second))
	time.Sleep(1500 * time.Millisecond)

	_, ok, err := cache.GetRefresh(ctx, hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIntegration_User_RoundTripAndDelete(t *testing.T) {
	cache, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()
	user := &models.User{
		ID:           uuid.New(),
		Username:     "some_user",
		Email:        "user@example.com",
		PasswordHash: "secret-hash",
		Role:         models.RoleUser,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
		UpdatedAt:    time.Now().UTC().Truncate(time.Second),
	}

	_, ok, err := cache.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.SetUser(ctx, user))

	got, ok, err := cache.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, user.Email, got.Email)
	// Хэш пароля в кэш не попадает.
	require.Empty(t, got.PasswordHash)

	require.NoError(t, cache.DeleteUser(ctx, user.ID))

	_, ok, err = cache.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, ok)
}
