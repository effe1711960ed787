package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/franciscosanchezn/tg-game-api/internal/models"
	"github.com/franciscosanchezn/tg-game-api/internal/telegram"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Player{})
	require.NoError(t, err)

	return db
}

func TestFindOrCreate_CreatesOnFirstLogin(t *testing.T) {
	svc := NewPlayerService(setupTestDB(t), nil)

	player, err := svc.FindOrCreate(context.Background(), telegram.Identity{
		ID: 42, Username: "alice", FirstName: "Alice", LastName: "Liddell",
	})
	require.NoError(t, err)

	assert.NotZero(t, player.ID)
	assert.Equal(t, int64(42), player.TelegramID)
	assert.Equal(t, "alice", player.Username)
	assert.Equal(t, "Alice Liddell", player.DisplayName)
	assert.Equal(t, models.RolePlayer, player.Role)
	assert.False(t, player.LastLoginAt.IsZero())
}

func TestFindOrCreate_ReturnsSamePlayer(t *testing.T) {
	svc := NewPlayerService(setupTestDB(t), nil)
	ctx := context.Background()

	first, err := svc.FindOrCreate(ctx, telegram.Identity{ID: 42, Username: "alice", FirstName: "Alice"})
	require.NoError(t, err)

	// Code-relay logins only know the username; the display name must survive.
	second, err := svc.FindOrCreate(ctx, telegram.Identity{ID: 42, Username: "alice_new"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	reloaded, err := svc.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice_new", reloaded.Username)
	assert.Equal(t, "Alice", reloaded.DisplayName)
}

func TestFindOrCreate_AdminRole(t *testing.T) {
	svc := NewPlayerService(setupTestDB(t), []int64{7})

	admin, err := svc.FindOrCreate(context.Background(), telegram.Identity{ID: 7})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	player, err := svc.FindOrCreate(context.Background(), telegram.Identity{ID: 8})
	require.NoError(t, err)
	assert.Equal(t, models.RolePlayer, player.Role)
}

func TestFindOrCreate_MissingID(t *testing.T) {
	svc := NewPlayerService(setupTestDB(t), nil)

	_, err := svc.FindOrCreate(context.Background(), telegram.Identity{Username: "ghost"})
	assert.Error(t, err)
}

func TestGetByID_NotFound(t *testing.T) {
	svc := NewPlayerService(setupTestDB(t), nil)

	_, err := svc.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}
