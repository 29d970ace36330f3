package config

import (
	"encoding/hex"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ApplyEnvOverrides_Cases(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		initial  Config
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name: "token env set on empty config",
			env:  map[string]string{EnvAuthToken: "my-token"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Server.AuthToken != "my-token" {
					t.Errorf("AuthToken = %q, want my-token", cfg.Server.AuthToken)
				}
			},
		},
		{
			name:    "token env overrides existing token",
			env:     map[string]string{EnvAuthToken: "new"},
			initial: Config{Server: ServerConfig{AuthToken: "old"}},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Server.AuthToken != "new" {
					t.Errorf("AuthToken = %q, want new", cfg.Server.AuthToken)
				}
			},
		},
		{
			name:    "empty env does not override existing values",
			env:     map[string]string{EnvAuthToken: "", EnvTransport: "", EnvAllowWrite: ""},
			initial: Config{Server: ServerConfig{AuthToken: "existing", Transport: TransportHTTP}, Access: AccessConfig{AllowWrite: true}},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Server.AuthToken != "existing" || cfg.Server.Transport != TransportHTTP || !cfg.Access.AllowWrite {
					t.Errorf("config changed: %+v", cfg)
				}
			},
		},
		{
			name: "allow write accepts boolean spellings",
			env:  map[string]string{EnvAllowWrite: "1"},
			validate: func(t *testing.T, cfg *Config) {
				if !cfg.Access.AllowWrite {
					t.Error("AllowWrite = false, want true")
				}
			},
		},
		{
			name:    "allow write false disables writes",
			env:     map[string]string{EnvAllowWrite: "false"},
			initial: Config{Access: AccessConfig{AllowWrite: true}},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Access.AllowWrite {
					t.Error("AllowWrite = true, want false")
				}
			},
		},
		{
			name:    "allow write garbage is ignored",
			env:     map[string]string{EnvAllowWrite: "sometimes"},
			initial: Config{Access: AccessConfig{AllowWrite: true}},
			validate: func(t *testing.T, cfg *Config) {
				if !cfg.Access.AllowWrite {
					t.Error("AllowWrite = false, want unchanged true")
				}
			},
		},
		{
			name: "transport log level and ssh key",
			env:  map[string]string{EnvTransport: "HTTP", EnvLogLevel: "warn", EnvSSHKey: "/keys/id"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Server.Transport != TransportHTTP {
					t.Errorf("Transport = %q, want http", cfg.Server.Transport)
				}
				if cfg.Logging.Level != "warn" {
					t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
				}
				if cfg.SSH.KeyPath != "/keys/id" {
					t.Errorf("SSH.KeyPath = %q, want /keys/id", cfg.SSH.KeyPath)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{EnvAuthToken, EnvAllowWrite, EnvTransport, EnvLogLevel, EnvSSHKey} {
				// Register cleanup via t.Setenv, then remove the variable so
				// only the case's own values are visible.
				t.Setenv(key, "")
				os.Unsetenv(key)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			ApplyEnvOverrides(&cfg)
			tt.validate(t, &cfg)
		})
	}
}

func Test_EnsureAuthToken_Cases(t *testing.T) {
	t.Run("existing token is kept", func(t *testing.T) {
		cfg := &Config{Server: ServerConfig{AuthToken: "pre-set"}}
		token, err := EnsureAuthToken(cfg)
		require.NoError(t, err)
		assert.Equal(t, "pre-set", token)
		assert.Equal(t, "pre-set", cfg.Server.AuthToken)
	})

	t.Run("empty token is generated and stored", func(t *testing.T) {
		cfg := &Config{}
		token, err := EnsureAuthToken(cfg)
		require.NoError(t, err)
		assert.Len(t, token, 32)
		assert.Equal(t, token, cfg.Server.AuthToken)

		other := &Config{}
		token2, err := EnsureAuthToken(other)
		require.NoError(t, err)
		assert.NotEqual(t, token, token2)
	})
}

func Test_GenerateRandomToken_Concurrent(t *testing.T) {
	const goroutines = 64

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		tokens = make(map[string]struct{}, goroutines)
	)
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			token, err := GenerateRandomToken()
			assert.NoError(t, err)
			decoded, err := hex.DecodeString(token)
			assert.NoError(t, err)
			assert.Len(t, decoded, 16)

			mu.Lock()
			tokens[token] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, tokens, goroutines)
}
