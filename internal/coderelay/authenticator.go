// Package coderelay logs a web session in through the Telegram bot: the browser names a
// username, the bot hands that user a six digit code, and the browser trades the code
// for the user's Telegram id.
//
// Attach is the trust boundary. It takes the platform id on faith and must only be
// called from the bot webhook, which Telegram authenticates with the webhook secret
// token. Never expose Attach through a public endpoint.
package coderelay

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/franciscosanchezn/tg-game-api/internal/logging"
	"github.com/franciscosanchezn/tg-game-api/internal/models"
)

// DefaultTTL is how long a pending login stays valid after Initiate.
const DefaultTTL = 5 * time.Minute

// DefaultMaxAttempts wrong codes burn a pending login. Client IPs are cheap, so the
// budget is kept per username.
const DefaultMaxAttempts = 5

const codeDigits = 6

// ErrEmptyUsername is returned when a username is empty after normalization.
var ErrEmptyUsername = errors.New("coderelay: empty username")

var log = logging.New()

// Authenticator brokers the rendezvous between the web client and the bot.
type Authenticator struct {
	store       Store
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	newCode     func() (string, error)
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(a *Authenticator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(a *Authenticator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.now = now
	}
}

// WithCodeGenerator replaces the crypto/rand code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(a *Authenticator) {
		a.newCode = gen
	}
}

// NewAuthenticator creates an Authenticator over store.
func NewAuthenticator(store Store, opts ...Option) *Authenticator {
	a := &Authenticator{
		store:       store,
		ttl:         DefaultTTL,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		newCode:     RandomCode,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TTL is the validity window applied by Initiate.
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

// NormalizeUsername strips one leading "@" and folds case, as Telegram usernames are
// case-insensitive.
func NormalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
}

// Initiate opens (or restarts) the login window for rawUsername.
func (a *Authenticator) Initiate(ctx context.Context, rawUsername string) error {
	username := NormalizeUsername(rawUsername)
	if username == "" {
		return ErrEmptyUsername
	}

	rec := models.PendingAuthentication{
		Username:  username,
		ExpiresAt: a.now().Add(a.ttl),
	}
	if err := a.store.Put(ctx, rec, a.ttl); err != nil {
		return fmt.Errorf("initiate login: %w", err)
	}

	log.WithField("username", username).Debug("Pending login opened")
	return nil
}

// Attach generates a code for rawUsername and binds platformID to the pending login.
// pending is false when no login is waiting; the code is then useless and the caller
// should tell its user to start from the website. The caller is trusted to have
// authenticated platformID already.
func (a *Authenticator) Attach(ctx context.Context, rawUsername string, platformID int64) (code string, pending bool, err error) {
	username := NormalizeUsername(rawUsername)
	if username == "" {
		return "", false, ErrEmptyUsername
	}

	code, err = a.newCode()
	if err != nil {
		return "", false, fmt.Errorf("generate login code: %w", err)
	}

	pending, err = a.store.Attach(ctx, username, code, platformID)
	if err != nil {
		return "", false, fmt.Errorf("attach login code: %w", err)
	}

	if !pending {
		log.WithFields(logrus.Fields{
			"username":    username,
			"platform_id": platformID,
		}).Debug("Bot login request without a pending web login")
	}
	return code, pending, nil
}

// VerifyCode consumes the pending login when suppliedCode matches and the window is
// still open. Every wrong code counts against the record, which is dropped after
// maxAttempts of them. ok is false for every expected failure; err only reports store
// trouble.
func (a *Authenticator) VerifyCode(ctx context.Context, rawUsername, suppliedCode string) (platformID int64, ok bool, err error) {
	username := NormalizeUsername(rawUsername)
	if username == "" || suppliedCode == "" {
		return 0, false, nil
	}

	rec, err := a.store.Get(ctx, username)
	if err != nil {
		return 0, false, fmt.Errorf("verify login code: %w", err)
	}
	if rec == nil {
		return 0, false, nil
	}

	if rec.Expired(a.now()) || rec.Attempts >= a.maxAttempts {
		if _, err := a.store.DeleteIfMatches(ctx, username, rec.Code, rec.ExpiresAt); err != nil {
			log.WithError(err).Warn("Failed to drop dead pending login")
		}
		return 0, false, nil
	}

	if !rec.HasCode() || rec.Code != suppliedCode {
		if err := a.recordFailure(ctx, rec); err != nil {
			return 0, false, err
		}
		return 0, false, nil
	}

	consumed, err := a.store.DeleteIfMatches(ctx, username, rec.Code, rec.ExpiresAt)
	if err != nil {
		return 0, false, fmt.Errorf("consume login code: %w", err)
	}
	if consumed == nil {
		// Lost a race with another verify, attach or initiate.
		return 0, false, nil
	}
	return consumed.PlatformID, true, nil
}

// recordFailure charges a wrong code to rec and drops rec once its budget is spent.
func (a *Authenticator) recordFailure(ctx context.Context, rec *models.PendingAuthentication) error {
	n, err := a.store.RecordFailure(ctx, rec.Username, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("count wrong login code: %w", err)
	}
	if n < a.maxAttempts {
		return nil
	}

	// A concurrent attach changes the code and turns this into a no-op; the next
	// failure sees Attempts over budget and drops the record anyway.
	if _, err := a.store.DeleteIfMatches(ctx, rec.Username, rec.Code, rec.ExpiresAt); err != nil {
		return fmt.Errorf("drop pending login: %w", err)
	}
	log.WithFields(logrus.Fields{
		"username": rec.Username,
		"attempts": n,
	}).Warn("Pending login dropped after too many wrong codes")
	return nil
}

// Pending counts live pending logins.
func (a *Authenticator) Pending(ctx context.Context) (int, error) {
	return a.store.Len(ctx)
}

// RandomCode returns a uniformly distributed, zero-padded six digit code.
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
