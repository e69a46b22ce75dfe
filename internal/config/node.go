package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// NodeConfig holds all configuration for the ledger node
type NodeConfig struct {
	Node   NodeSettings   `toml:"node"`
	P2P    NodeP2PConfig  `toml:"p2p"`
	Ledger LedgerSettings `toml:"ledger"`
}

// NodeSettings holds node identity and paths
type NodeSettings struct {
	Name           string `toml:"name"`
	DataDir        string `toml:"data_dir"`
	IdentityKey    string `toml:"identity_key"`
	MigrationsPath string `toml:"migrations_path"`
}

// NodeP2PConfig holds libp2p configuration for the ledger node
type NodeP2PConfig struct {
	ListenAddresses []string `toml:"listen_addresses"`
	BootstrapPeers  []string `toml:"bootstrap_peers"`
}

// LedgerSettings holds ledger policy
type LedgerSettings struct {
	// ArtifactAuthority is the only signer allowed to mint reward artifacts
	ArtifactAuthority string `toml:"artifact_authority"`
	// TrustedPeers are the peer IDs allowed to send ledger requests
	TrustedPeers []string `toml:"trusted_peers"`
}

// LoadNode loads ledger node configuration from TOML file
func LoadNode(path string) (*NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config NodeConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.setDefaults()

	return &config, nil
}

// Save saves configuration to TOML file
func (c *NodeConfig) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// EnsureDirs creates necessary directories
func (c *NodeConfig) EnsureDirs() error {
	if err := os.MkdirAll(c.Node.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.Node.DataDir, err)
	}
	return nil
}

// DatabasePath returns the SQLite file path
func (c *NodeConfig) DatabasePath() string {
	return filepath.Join(c.Node.DataDir, "ledger.db")
}

func (c *NodeConfig) setDefaults() {
	if c.Node.DataDir == "" {
		c.Node.DataDir = "data"
	}
	if c.Node.IdentityKey == "" {
		c.Node.IdentityKey = filepath.Join(c.Node.DataDir, "identity.key")
	}
	if c.Node.MigrationsPath == "" {
		c.Node.MigrationsPath = "./migrations/ledger"
	}
	if len(c.P2P.ListenAddresses) == 0 {
		c.P2P.ListenAddresses = []string{
			"/ip4/0.0.0.0/tcp/4001",
			"/ip4/0.0.0.0/udp/4001/quic-v1",
		}
	}
}

// DefaultNodeConfig returns a default configuration
func DefaultNodeConfig() *NodeConfig {
	cfg := &NodeConfig{}
	cfg.setDefaults()
	return cfg
}
