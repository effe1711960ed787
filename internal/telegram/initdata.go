package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
)

// webAppDataLabel is the HMAC key Telegram uses to derive the initData signing key
// from the bot token.
const webAppDataLabel = "WebAppData"

// Identity is the Telegram user carried in the "user" field of initData.
type Identity struct {
	ID           int64  `json:"id"`
	Username     string `json:"username,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
}

// DisplayName joins first and last name the way the Telegram client shows them.
func (i Identity) DisplayName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// VerifyInitData reports whether payload carries a valid Telegram WebApp signature for
// the given bot token. It never panics and never says why a payload was rejected.
func VerifyInitData(payload, secret string) bool {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return false
	}

	values, err := url.ParseQuery(payload)
	if err != nil {
		return false
	}
	// Telegram never repeats a key; a second value would ride along unsigned.
	for _, vs := range values {
		if len(vs) != 1 {
			return false
		}
	}

	provided := values.Get("hash")
	if provided == "" {
		return false
	}
	values.Del("hash")

	expected := SignInitData(values, secret)
	return hmac.Equal([]byte(expected), []byte(provided))
}

// SignInitData computes the hex hash Telegram would attach to values. A "hash" key in
// values is ignored.
func SignInitData(values url.Values, secret string) string {
	derived := hmac.New(sha256.New, []byte(webAppDataLabel))
	derived.Write([]byte(secret))

	mac := hmac.New(sha256.New, derived.Sum(nil))
	mac.Write([]byte(dataCheckString(values)))
	return hex.EncodeToString(mac.Sum(nil))
}

// dataCheckString builds the canonical form: keys sorted byte-wise, one key=value per
// line, no trailing newline.
func dataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	return strings.Join(lines, "\n")
}

// ExtractIdentity decodes the JSON "user" claim. It does not check the signature, so
// callers must run VerifyInitData first.
func ExtractIdentity(payload string) (Identity, bool) {
	values, err := url.ParseQuery(strings.TrimSpace(payload))
	if err != nil {
		return Identity{}, false
	}

	raw := values.Get("user")
	if raw == "" {
		return Identity{}, false
	}

	var identity Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return Identity{}, false
	}
	if identity.ID == 0 {
		return Identity{}, false
	}
	return identity, true
}
