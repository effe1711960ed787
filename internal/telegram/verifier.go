package telegram

import (
	"errors"
	"net/url"
	"strconv"
	"time"
)

var (
	// ErrPlatformAuthUnavailable means no bot token is configured, so nothing signed by
	// Telegram can be checked. It is an operator problem, not a client one.
	ErrPlatformAuthUnavailable = errors.New("telegram: bot token not configured")

	// ErrInvalidInitData covers every rejection of a client payload: bad signature,
	// stale auth_date, missing user. The reasons are deliberately not distinguished.
	ErrInvalidInitData = errors.New("telegram: invalid init data")
)

// Verifier binds the bot token and freshness policy used for WebApp logins.
type Verifier struct {
	botToken string
	maxAge   time.Duration
	now      func() time.Time
}

// NewVerifier returns ErrPlatformAuthUnavailable when botToken is empty. A zero maxAge
// disables the auth_date check.
func NewVerifier(botToken string, maxAge time.Duration) (*Verifier, error) {
	if botToken == "" {
		return nil, ErrPlatformAuthUnavailable
	}
	return &Verifier{botToken: botToken, maxAge: maxAge, now: time.Now}, nil
}

// Authenticate verifies the signature and auth_date of initData and returns the user.
func (v *Verifier) Authenticate(initData string) (Identity, error) {
	if !VerifyInitData(initData, v.botToken) {
		return Identity{}, ErrInvalidInitData
	}
	if v.maxAge > 0 && !v.fresh(initData) {
		return Identity{}, ErrInvalidInitData
	}

	identity, ok := ExtractIdentity(initData)
	if !ok {
		return Identity{}, ErrInvalidInitData
	}
	return identity, nil
}

func (v *Verifier) fresh(initData string) bool {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return false
	}
	unix, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil || unix <= 0 {
		return false
	}
	return v.now().Sub(time.Unix(unix, 0)) <= v.maxAge
}
