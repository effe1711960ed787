package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/franciscosanchezn/tg-game-api/internal/models"
	"github.com/franciscosanchezn/tg-game-api/internal/telegram"
)

// ErrPlayerNotFound is returned by lookups that match no player.
var ErrPlayerNotFound = errors.New("player not found")

// PlayerService resolves Telegram identities to local players
type PlayerService interface {
	// FindOrCreate returns the player bound to identity.ID, creating it on first login
	// and refreshing username and display name otherwise
	FindOrCreate(ctx context.Context, identity telegram.Identity) (*models.Player, error)
	// GetByID loads a player by surrogate key
	GetByID(ctx context.Context, id uint) (*models.Player, error)
}

type playerService struct {
	db     *gorm.DB
	admins map[int64]bool
	now    func() time.Time
}

// NewPlayerService creates a PlayerService. Players whose Telegram id is in adminIDs
// get the admin role when created.
func NewPlayerService(db *gorm.DB, adminIDs []int64) PlayerService {
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &playerService{db: db, admins: admins, now: time.Now}
}

func (s *playerService) FindOrCreate(ctx context.Context, identity telegram.Identity) (*models.Player, error) {
	if identity.ID == 0 {
		return nil, fmt.Errorf("find or create player: missing telegram id")
	}

	now := s.now().UTC()
	db := s.db.WithContext(ctx)

	var player models.Player
	err := db.Where("telegram_id = ?", identity.ID).First(&player).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		player = models.Player{
			TelegramID:  identity.ID,
			Username:    identity.Username,
			DisplayName: identity.DisplayName(),
			Role:        s.roleFor(identity.ID),
			LastLoginAt: now,
		}
		if err := db.Create(&player).Error; err != nil {
			// A concurrent first login may have won the unique index.
			if findErr := db.Where("telegram_id = ?", identity.ID).First(&player).Error; findErr != nil {
				return nil, fmt.Errorf("create player: %w", err)
			}
		}
		return &player, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}

	player.LastLoginAt = now
	if identity.Username != "" {
		player.Username = identity.Username
	}
	if name := identity.DisplayName(); name != "" {
		player.DisplayName = name
	}
	err = db.Model(&player).Updates(map[string]interface{}{
		"last_login_at": player.LastLoginAt,
		"username":      player.Username,
		"display_name":  player.DisplayName,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update player: %w", err)
	}
	return &player, nil
}

func (s *playerService) GetByID(ctx context.Context, id uint) (*models.Player, error) {
	var player models.Player
	err := s.db.WithContext(ctx).First(&player, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	return &player, nil
}

func (s *playerService) roleFor(telegramID int64) string {
	if s.admins[telegramID] {
		return models.RoleAdmin
	}
	return models.RolePlayer
}
