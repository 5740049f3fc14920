package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.Equal(t, "development", cfg.App.Env)
	require.False(t, cfg.IsProduction())
	require.Equal(t, 5000, cfg.Server.Port)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, 10, cfg.Security.Password.BcryptCost)
	require.Equal(t, time.Hour, cfg.Security.Tokens.SessionTTL)
	require.Equal(t, 5*time.Minute, cfg.Security.Tokens.PreAuthTTL)
	require.Equal(t, "WhiskersWonderland", cfg.TwoFactor.Issuer)
	require.Equal(t, uint(30), cfg.TwoFactor.Period)
	require.Equal(t, uint(1), cfg.TwoFactor.Skew)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
}

func TestValidate(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		cfg := Default()
		require.Error(t, cfg.Validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := Default()
		cfg.Security.Tokens.Secret = "s3cret"
		cfg.Database.Driver = "mysql"
		require.Error(t, cfg.Validate())
	})

	t.Run("zero ttl", func(t *testing.T) {
		cfg := Default()
		cfg.Security.Tokens.Secret = "s3cret"
		cfg.Security.Tokens.PreAuthTTL = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("zero skew", func(t *testing.T) {
		cfg := Default()
		cfg.Security.Tokens.Secret = "s3cret"
		cfg.TwoFactor.Skew = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("bad trusted proxy", func(t *testing.T) {
		cfg := Default()
		cfg.Security.Tokens.Secret = "s3cret"
		cfg.Server.TrustedProxies = []string{"10.0.0.0/8", "proxy.local"}
		require.Error(t, cfg.Validate())
	})

	t.Run("ok", func(t *testing.T) {
		cfg := Default()
		cfg.Security.Tokens.Secret = "s3cret"
		require.NoError(t, cfg.Validate())
	})
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WHISKERS_APP_ENV", "production")
	t.Setenv("WHISKERS_SECURITY_TOKENS_SECRET", "from-env")
	t.Setenv("WHISKERS_DATABASE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, "from-env", cfg.Security.Tokens.Secret)
	require.Equal(t, "memory", cfg.Database.Driver)
	require.NoError(t, cfg.Validate())
}

func TestLoadValidatedRejectsUnknownDriver(t *testing.T) {
	t.Setenv("WHISKERS_SECURITY_TOKENS_SECRET", "from-env")
	t.Setenv("WHISKERS_DATABASE_DRIVER", "mysql")

	_, err := LoadValidated()
	require.ErrorContains(t, err, "mysql")

	t.Setenv("WHISKERS_DATABASE_DRIVER", "memory")
	cfg, err := LoadValidated()
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Database.Driver)
}

func TestParseProxy(t *testing.T) {
	p, err := ParseProxy("10.1.2.3/8")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.0/8", p.String())

	p, err = ParseProxy("192.0.2.7")
	require.NoError(t, err)
	require.Equal(t, "192.0.2.7/32", p.String())
}

func TestAddrs(t *testing.T) {
	cfg := Default()
	require.Equal(t, "0.0.0.0:5000", cfg.Server.Addr())
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Contains(t, cfg.Database.DSN(), "dbname=whiskers")
}
