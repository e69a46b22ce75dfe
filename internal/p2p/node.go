package p2p

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	libp2pquic "github.com/libp2p/go-libp2p/p2p/transport/quic"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"
)

// Node represents a libp2p node with a Kademlia DHT for peer discovery
type Node struct {
	host      host.Host
	dht       *dht.IpfsDHT
	config    NodeConfig
	logger    *slog.Logger
	bootstrap func(ctx context.Context, d *dht.IpfsDHT) error
}

// NodeConfig holds P2P node configuration
type NodeConfig struct {
	ListenAddresses []string
	BootstrapPeers  []string
	EnableTCP       bool
	EnableQUIC      bool
	// Identity is the node's private key. A random key is used when nil.
	Identity crypto.PrivKey
}

// NewNode creates a new libp2p node
func NewNode(config NodeConfig, logger *slog.Logger) (*Node, error) {
	if !config.EnableTCP && !config.EnableQUIC {
		return nil, errors.New("at least one transport must be enabled")
	}
	if len(config.ListenAddresses) == 0 {
		config.ListenAddresses = []string{
			"/ip4/0.0.0.0/tcp/0",
			"/ip4/0.0.0.0/udp/0/quic-v1",
		}
	}
	config.ListenAddresses = filterListenAddresses(config.ListenAddresses, config.EnableTCP, config.EnableQUIC)
	if len(config.ListenAddresses) == 0 {
		return nil, errors.New("no listen address matches the enabled transports")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Node{
		config:    config,
		logger:    logger.With("component", "p2p"),
		bootstrap: bootstrapDHT,
	}, nil
}

func bootstrapDHT(ctx context.Context, d *dht.IpfsDHT) error {
	return d.Bootstrap(ctx)
}

func filterListenAddresses(addrs []string, enableTCP, enableQUIC bool) []string {
	var out []string
	for _, addr := range addrs {
		isQUIC := strings.Contains(addr, "/quic")
		if isQUIC && !enableQUIC {
			continue
		}
		if !isQUIC && strings.Contains(addr, "/tcp/") && !enableTCP {
			continue
		}
		out = append(out, addr)
	}
	return out
}

// Start starts the P2P node and connects to the bootstrap peers
func (n *Node) Start(ctx context.Context) error {
	opts := []libp2p.Option{
		libp2p.ListenAddrStrings(n.config.ListenAddresses...),
	}
	if n.config.Identity != nil {
		opts = append(opts, libp2p.Identity(n.config.Identity))
	}
	if n.config.EnableTCP {
		opts = append(opts, libp2p.Transport(tcp.NewTCPTransport))
	}
	if n.config.EnableQUIC {
		opts = append(opts, libp2p.Transport(libp2pquic.NewTransport))
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create libp2p host: %w", err)
	}

	kadDHT, err := dht.New(ctx, h, dht.Mode(dht.ModeAutoServer))
	if err != nil {
		h.Close()
		return fmt.Errorf("failed to create DHT: %w", err)
	}
	n.host = h
	n.dht = kadDHT

	for _, addr := range n.config.BootstrapPeers {
		if err := n.Connect(ctx, addr); err != nil {
			n.logger.Warn("bootstrap peer unreachable", "peer", addr, "error", err)
		}
	}

	if err := n.bootstrap(ctx, kadDHT); err != nil {
		kadDHT.Close()
		h.Close()
		n.host, n.dht = nil, nil
		return fmt.Errorf("failed to bootstrap DHT: %w", err)
	}

	n.logger.Info("p2p node started", "peer_id", h.ID().String(), "addrs", n.Addrs())
	return nil
}

// Stop stops the P2P node
func (n *Node) Stop() error {
	if n.dht != nil {
		if err := n.dht.Close(); err != nil {
			return err
		}
	}
	if n.host != nil {
		return n.host.Close()
	}
	return nil
}

// Close is an alias for Stop
func (n *Node) Close() error {
	return n.Stop()
}

// Host returns the libp2p host
func (n *Node) Host() host.Host {
	return n.host
}

// ID returns the peer ID
func (n *Node) ID() peer.ID {
	if n.host == nil {
		return ""
	}
	return n.host.ID()
}

// Addrs returns the full multiaddrs, including the peer ID, the node is listening on
func (n *Node) Addrs() []string {
	if n.host == nil {
		return nil
	}

	var addrs []string
	for _, addr := range n.host.Addrs() {
		addrs = append(addrs, fmt.Sprintf("%s/p2p/%s", addr.String(), n.ID().String()))
	}
	return addrs
}

// Connect connects to a peer
func (n *Node) Connect(ctx context.Context, peerAddr string) error {
	addrInfo, err := peer.AddrInfoFromString(peerAddr)
	if err != nil {
		return fmt.Errorf("failed to parse peer address: %w", err)
	}

	if err := n.host.Connect(ctx, *addrInfo); err != nil {
		return fmt.Errorf("failed to connect to peer: %w", err)
	}

	return nil
}

// FindPeer returns the addresses of a peer, asking the DHT when the peerstore has none
func (n *Node) FindPeer(ctx context.Context, id peer.ID) (peer.AddrInfo, error) {
	if info := n.host.Peerstore().PeerInfo(id); len(info.Addrs) > 0 {
		return info, nil
	}
	info, err := n.dht.FindPeer(ctx, id)
	if err != nil {
		return peer.AddrInfo{}, fmt.Errorf("failed to find peer %s: %w", id, err)
	}
	return info, nil
}

// ResolvePeer connects to target and returns its peer ID. target is either a full
// multiaddr ending in /p2p/<id> or a bare peer ID looked up through the DHT.
func (n *Node) ResolvePeer(ctx context.Context, target string) (peer.ID, error) {
	if strings.HasPrefix(target, "/") {
		info, err := peer.AddrInfoFromString(target)
		if err != nil {
			return "", fmt.Errorf("failed to parse peer address: %w", err)
		}
		if err := n.host.Connect(ctx, *info); err != nil {
			return "", fmt.Errorf("failed to connect to peer: %w", err)
		}
		return info.ID, nil
	}

	id, err := peer.Decode(target)
	if err != nil {
		return "", fmt.Errorf("invalid peer ID: %w", err)
	}
	info, err := n.FindPeer(ctx, id)
	if err != nil {
		return "", err
	}
	if err := n.host.Connect(ctx, info); err != nil {
		return "", fmt.Errorf("failed to connect to peer: %w", err)
	}
	return id, nil
}
