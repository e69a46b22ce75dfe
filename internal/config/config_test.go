package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad_DefaultsFillMissingValues(t *testing.T) {
	path := writeConfig(t, `
[program]
id = "LootBazaarProgram1111"

[auth]
jwt_secret = "secret"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "lootbazaar", cfg.Database.Database)
	assert.Equal(t, uint16(500), cfg.Rewards.RoyaltyBps)
	assert.Equal(t, "LootBazaar", cfg.Rewards.Collection)
	assert.Equal(t, "LOOT", cfg.Issuance.MintID)
	assert.Equal(t, uint64(1), cfg.Staking.MinAmount)
	assert.True(t, cfg.P2P.EnableTCP)
	assert.True(t, cfg.P2P.EnableQUIC)
	assert.Equal(t, "data/api-identity.key", cfg.P2P.IdentityKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 9000

[program]
id = "from-file"
`)
	t.Setenv("LOOTBAZAAR_PROGRAM_ID", "from-env")
	t.Setenv("LOOTBAZAAR_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("LOOTBAZAAR_RATE_LIMIT_BURST", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Program.ID)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 7, cfg.RateLimit.Burst)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "jwt secret is required")

	cfg.Auth.JWTSecret = "secret"
	assert.Error(t, cfg.Validate(), "program id is required")

	cfg.Program.ID = "program"
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Password = "pw"
	assert.Equal(t, "postgres://postgres:pw@localhost:5432/lootbazaar?sslmode=disable", cfg.Database.DatabaseURL())
}

func TestLogConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			c := LogConfig{Level: tt.level}
			assert.Equal(t, tt.want, c.SlogLevel())
		})
	}
}

func TestNodeConfig_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := &NodeConfig{
		Node:   NodeSettings{Name: "ledger-1", DataDir: filepath.Join(dir, "data")},
		Ledger: LedgerSettings{
			ArtifactAuthority: "reward-authority",
			TrustedPeers:      []string{"12D3KooWAPI"},
		},
	}
	path := filepath.Join(dir, "node.toml")
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadNode(path)
	require.NoError(t, err)
	assert.Equal(t, "ledger-1", loaded.Node.Name)
	assert.Equal(t, "reward-authority", loaded.Ledger.ArtifactAuthority)
	assert.Equal(t, []string{"12D3KooWAPI"}, loaded.Ledger.TrustedPeers)
	assert.Equal(t, filepath.Join(dir, "data", "identity.key"), loaded.Node.IdentityKey)
	assert.Equal(t, filepath.Join(dir, "data", "ledger.db"), loaded.DatabasePath())
	assert.NotEmpty(t, loaded.P2P.ListenAddresses)

	require.NoError(t, loaded.EnsureDirs())
	_, err = os.Stat(loaded.Node.DataDir)
	assert.NoError(t, err)
}
