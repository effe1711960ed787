package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/franciscosanchezn/tg-game-api/internal/models"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidToken hides why a token was rejected.
var ErrInvalidToken = errors.New("invalid token")

// Claims carried by both session tokens. Subject is the player surrogate key as a
// decimal string.
type Claims struct {
	PlayerID   uint   `json:"uid"`
	TelegramID int64  `json:"tg_id"`
	Role       string `json:"role,omitempty"`
	Type       string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is what a successful login returns.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// TokenIssuer signs access and refresh tokens with independent secrets and lifetimes
type TokenIssuer struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	method     jwt.SigningMethod
	issuer     string
	now        func() time.Time
}

// NewTokenIssuer creates a TokenIssuer using HS256. The two secrets must differ so a
// refresh token can never pass as an access token.
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("token issuer: access and refresh secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("token issuer: access and refresh secrets must differ")
	}
	return &TokenIssuer{
		accessKey:  []byte(accessSecret),
		refreshKey: []byte(refreshSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		method:     jwt.SigningMethodHS256,
		issuer:     "tg-game-api",
		now:        time.Now,
	}, nil
}

// Issue mints a fresh pair for player
func (g *TokenIssuer) Issue(player *models.Player) (TokenPair, error) {
	if player == nil || player.ID == 0 {
		return TokenPair{}, fmt.Errorf("cannot generate token: no player id available")
	}

	now := g.now()
	accessExp := now.Add(g.accessTTL)
	refreshExp := now.Add(g.refreshTTL)

	access, err := g.sign(player, TokenTypeAccess, now, accessExp, g.accessKey)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := g.sign(player, TokenTypeRefresh, now, refreshExp, g.refreshKey)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresIn:        int64(g.accessTTL.Seconds()),
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (g *TokenIssuer) sign(player *models.Player, typ string, now, exp time.Time, key []byte) (string, error) {
	claims := Claims{
		PlayerID:   player.ID,
		TelegramID: player.TelegramID,
		Role:       player.Role,
		Type:       typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    g.issuer,
			Subject:   strconv.FormatUint(uint64(player.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(g.method, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// ParseAccess validates an access token
func (g *TokenIssuer) ParseAccess(token string) (*Claims, error) {
	return g.parse(token, TokenTypeAccess, g.accessKey)
}

// ParseRefresh validates a refresh token
func (g *TokenIssuer) ParseRefresh(token string) (*Claims, error) {
	return g.parse(token, TokenTypeRefresh, g.refreshKey)
}

func (g *TokenIssuer) parse(token, typ string, key []byte) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return key, nil },
		// Pinning the algorithm prevents alg-confusion attacks.
		jwt.WithValidMethods([]string{g.method.Alg()}),
		jwt.WithIssuer(g.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != typ || claims.PlayerID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
