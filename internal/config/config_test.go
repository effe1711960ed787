package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configVars = []string{
	"APP_PORT", "APP_HOST", "LOG_LEVEL", "JWT_ACCESS_SECRET", "JWT_REFRESH_SECRET",
	"ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_WEBHOOK_SECRET",
	"TELEGRAM_INIT_DATA_MAX_AGE", "LOGIN_CODE_TTL", "PENDING_STORE", "ADMIN_TELEGRAM_IDS",
	"REDIS_ADDR", "REDIS_DB", "DB_DRIVER", "DB_PATH", "TRUSTED_PROXIES", "LOGIN_CODE_MAX_ATTEMPTS",
}

func cleanupTestEnv() {
	for _, v := range configVars {
		os.Unsetenv(v)
	}
}

func TestGetEnvWithDefault(t *testing.T) {
	testCases := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		expected     string
	}{
		{
			name:         "should return env value when set",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "from_env",
			expected:     "from_env",
		},
		{
			name:         "should return default when env not set",
			key:          "MISSING_KEY",
			defaultValue: "default_value",
			envValue:     "",
			expected:     "default_value",
		},
		{
			name:         "should return empty string default",
			key:          "EMPTY_KEY",
			defaultValue: "",
			envValue:     "",
			expected:     "",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			} else {
				os.Unsetenv(tt.key)
			}

			assert.Equal(t, tt.expected, GetEnvWithDefault(tt.key, tt.defaultValue))
		})
	}
}

func TestGetEnvAsType(t *testing.T) {
	t.Setenv("TYPED_INT", "7")
	t.Setenv("TYPED_BOOL", "true")
	t.Setenv("TYPED_DURATION", "90s")
	t.Setenv("TYPED_BAD_INT", "seven")

	assert.Equal(t, 7, GetEnvAsType("TYPED_INT", 0))
	assert.True(t, GetEnvAsType("TYPED_BOOL", false))
	assert.Equal(t, 90*time.Second, GetEnvAsType("TYPED_DURATION", time.Second))
	assert.Equal(t, 3, GetEnvAsType("TYPED_BAD_INT", 3))
	assert.Equal(t, "fallback", GetEnvAsType("TYPED_MISSING", "fallback"))
}

func TestLoadConfig(t *testing.T) {
	t.Run("successful config load with all env vars", func(t *testing.T) {
		cleanupTestEnv()
		defer cleanupTestEnv()
		os.Setenv("APP_PORT", "9000")
		os.Setenv("APP_HOST", "0.0.0.0")
		os.Setenv("LOG_LEVEL", "debug")
		os.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
		os.Setenv("TELEGRAM_WEBHOOK_SECRET", "hook-secret")
		os.Setenv("LOGIN_CODE_TTL", "2m")
		os.Setenv("PENDING_STORE", "Redis")
		os.Setenv("ADMIN_TELEGRAM_IDS", "1, 2,3")
		os.Setenv("REDIS_DB", "4")
		os.Setenv("TRUSTED_PROXIES", "10.0.0.1, 172.16.0.0/12,")
		os.Setenv("LOGIN_CODE_MAX_ATTEMPTS", "3")

		config, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, 9000, config.Port)
		assert.Equal(t, "0.0.0.0", config.Host)
		assert.Equal(t, "debug", config.LogLevel)
		assert.True(t, config.PlatformAuthEnabled())
		assert.Equal(t, 2*time.Minute, config.LoginCodeTTL)
		assert.Equal(t, PendingStoreRedis, config.PendingStore)
		assert.Equal(t, []int64{1, 2, 3}, config.AdminTelegramIDs)
		assert.Equal(t, 4, config.RedisDB)
		assert.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, config.TrustedProxies)
		assert.Equal(t, 3, config.LoginCodeMaxAttempts)
	})

	t.Run("should use defaults when optional env vars not set", func(t *testing.T) {
		cleanupTestEnv()
		defer cleanupTestEnv()

		config, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, 8080, config.Port)
		assert.Equal(t, "localhost", config.Host)
		assert.Equal(t, "info", config.LogLevel)
		assert.Equal(t, 5*time.Minute, config.LoginCodeTTL)
		assert.Equal(t, 15*time.Minute, config.AccessTokenTTL)
		assert.Equal(t, 30*24*time.Hour, config.RefreshTokenTTL)
		assert.Equal(t, PendingStoreMemory, config.PendingStore)
		assert.Equal(t, "sqlite", config.Database.Driver)
		assert.False(t, config.PlatformAuthEnabled())
		assert.Empty(t, config.AdminTelegramIDs)
		assert.Empty(t, config.TrustedProxies)
		assert.Equal(t, 5, config.LoginCodeMaxAttempts)
	})

	failures := []struct {
		name string
		env  map[string]string
	}{
		{name: "invalid port", env: map[string]string{"APP_PORT": "not_a_number"}},
		{name: "invalid duration", env: map[string]string{"LOGIN_CODE_TTL": "soon"}},
		{name: "negative duration", env: map[string]string{"ACCESS_TOKEN_TTL": "-1m"}},
		{name: "unknown pending store", env: map[string]string{"PENDING_STORE": "memcached"}},
		{name: "bad admin ids", env: map[string]string{"ADMIN_TELEGRAM_IDS": "1,x"}},
		{name: "zero max attempts", env: map[string]string{"LOGIN_CODE_MAX_ATTEMPTS": "0"}},
		{name: "non numeric max attempts", env: map[string]string{"LOGIN_CODE_MAX_ATTEMPTS": "many"}},
		{name: "bot token without webhook secret", env: map[string]string{"TELEGRAM_BOT_TOKEN": "123:abc"}},
	}
	for _, tt := range failures {
		t.Run("should fail with "+tt.name, func(t *testing.T) {
			cleanupTestEnv()
			defer cleanupTestEnv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			config, err := LoadConfig()
			assert.Error(t, err)
			assert.Nil(t, config)
		})
	}
}

func TestConfigStringRedactsSecrets(t *testing.T) {
	cfg := &Config{
		JWTAccessSecret:  "access-value",
		JWTRefreshSecret: "refresh-value",
		TelegramBotToken: "123:bot-token-value",
		RedisPassword:    "redis-pass",
	}
	out := cfg.String()

	for _, secret := range []string{"access-value", "refresh-value", "bot-token-value", "redis-pass"} {
		assert.NotContains(t, out, secret)
	}
	assert.Contains(t, out, "TelegramWebhookSecret: [NOT SET]")
}

// Benchmark tests (optional but good practice)
func BenchmarkGetEnvWithDefault(b *testing.B) {
	os.Setenv("BENCH_KEY", "test_value")
	defer os.Unsetenv("BENCH_KEY")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GetEnvWithDefault("BENCH_KEY", "default")
	}
}
