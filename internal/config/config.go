package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is the prefix for environment overrides of API settings
const EnvPrefix = "LOOTBAZAAR"

// Config holds all configuration for the API service
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	P2P       P2PConfig       `toml:"p2p"`
	Program   ProgramConfig   `toml:"program"`
	Auth      AuthConfig      `toml:"auth"`
	Issuance  IssuanceConfig  `toml:"issuance"`
	Rewards   RewardsConfig   `toml:"rewards"`
	Staking   StakingConfig   `toml:"staking"`
	RateLimit RateLimitConfig `toml:"rate_limit" envconfig:"RATE_LIMIT"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	ReadTimeout  int    `toml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout int    `toml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"ssl_mode" envconfig:"SSL_MODE"`
}

// P2PConfig holds libp2p configuration
type P2PConfig struct {
	ListenAddresses []string `toml:"listen_addresses" envconfig:"LISTEN_ADDRESSES"`
	BootstrapPeers  []string `toml:"bootstrap_peers" envconfig:"BOOTSTRAP_PEERS"`
	// LedgerPeer is a full multiaddr or a bare peer ID resolved through the DHT
	LedgerPeer string `toml:"ledger_peer" envconfig:"LEDGER_PEER"`
	EnableQUIC bool   `toml:"enable_quic" envconfig:"ENABLE_QUIC"`
	EnableTCP  bool   `toml:"enable_tcp" envconfig:"ENABLE_TCP"`
	// IdentityKey holds the API's libp2p key. Its peer ID goes into the ledger's trusted_peers.
	IdentityKey string `toml:"identity_key" envconfig:"IDENTITY_KEY"`
}

// ProgramConfig holds the deployment identity. Vault accounts are derived from ID
// and released under its authority.
type ProgramConfig struct {
	ID string `toml:"id"`
}

// AuthConfig holds JWT settings
type AuthConfig struct {
	JWTSecret       string `toml:"jwt_secret" envconfig:"JWT_SECRET"`
	TokenTTLMinutes int    `toml:"token_ttl_minutes" envconfig:"TOKEN_TTL_MINUTES"`
}

// IssuanceConfig holds the fungible mint used by the token issuance endpoint
type IssuanceConfig struct {
	MintID        string `toml:"mint_id" envconfig:"MINT_ID"`
	MintAuthority string `toml:"mint_authority" envconfig:"MINT_AUTHORITY"`
	APIKey        string `toml:"api_key" envconfig:"API_KEY"`
}

// RewardsConfig holds reward artifact metadata defaults
type RewardsConfig struct {
	Collection    string `toml:"collection"`
	Symbol        string `toml:"symbol"`
	URI           string `toml:"uri"`
	RoyaltyBps    uint16 `toml:"royalty_bps" envconfig:"ROYALTY_BPS"`
	MintAuthority string `toml:"mint_authority" envconfig:"MINT_AUTHORITY"`
}

// StakingConfig holds boundary checks for new stakes
type StakingConfig struct {
	MinAmount   uint64 `toml:"min_amount" envconfig:"MIN_AMOUNT"`
	MinDuration uint64 `toml:"min_duration_seconds" envconfig:"MIN_DURATION_SECONDS"`
}

// RateLimitConfig holds per-caller request limits
type RateLimitConfig struct {
	RequestsPerSecond int `toml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND"`
	Burst             int `toml:"burst"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `toml:"level"`
}

// Load loads configuration from TOML file and applies environment overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	// Set defaults
	config.SetDefaults()

	return &config, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// ApplyEnv overlays LOOTBAZAAR_* environment variables onto the config
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("failed to process environment: %w", err)
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection URL
func (c *DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// SlogLevel maps the configured level name to a slog level
func (c *LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate reports settings that have no safe default
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must be set")
	}
	if c.Program.ID == "" {
		return fmt.Errorf("program.id must be set")
	}
	return nil
}

// SetDefaults sets default values for config
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.User == "" {
		c.Database.User = "postgres"
	}
	if c.Database.Database == "" {
		c.Database.Database = "lootbazaar"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if !c.P2P.EnableTCP && !c.P2P.EnableQUIC {
		c.P2P.EnableTCP = true
		c.P2P.EnableQUIC = true
	}
	if c.P2P.IdentityKey == "" {
		c.P2P.IdentityKey = "data/api-identity.key"
	}
	if c.Auth.TokenTTLMinutes == 0 {
		c.Auth.TokenTTLMinutes = 24 * 60
	}
	if c.Issuance.MintID == "" {
		c.Issuance.MintID = "LOOT"
	}
	if c.Rewards.Collection == "" {
		c.Rewards.Collection = "LootBazaar"
	}
	if c.Rewards.Symbol == "" {
		c.Rewards.Symbol = "LOOT"
	}
	if c.Rewards.URI == "" {
		c.Rewards.URI = "https://arweave.net/lootbazaar-reward-metadata.json"
	}
	if c.Rewards.RoyaltyBps == 0 {
		c.Rewards.RoyaltyBps = 500 // 5%
	}
	if c.Staking.MinAmount == 0 {
		c.Staking.MinAmount = 1
	}
	if c.Staking.MinDuration == 0 {
		c.Staking.MinDuration = 1
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
