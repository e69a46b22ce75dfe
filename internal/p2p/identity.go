package p2p

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// LoadOrCreateIdentity reads an Ed25519 private key from path, generating and
// saving a new one if the file does not exist.
func LoadOrCreateIdentity(path string) (crypto.PrivKey, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key, err := crypto.UnmarshalPrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode identity key: %w", err)
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read identity key: %w", err)
	}

	key, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate identity key: %w", err)
	}
	data, err = crypto.MarshalPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to encode identity key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create identity directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write identity key: %w", err)
	}
	return key, nil
}

// ParsePeerIDs decodes a list of peer ID strings
func ParsePeerIDs(ids []string) ([]peer.ID, error) {
	out := make([]peer.ID, 0, len(ids))
	for _, s := range ids {
		id, err := peer.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("invalid peer ID %q: %w", s, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// ErrBadSignature is returned when a signature does not verify against the wallet key
var ErrBadSignature = errors.New("signature does not match wallet")

// WalletPublicKey returns the public key of a wallet address. Wallet addresses use
// the peer ID encoding of an Ed25519 key, so the key is embedded in the address.
func WalletPublicKey(wallet string) (crypto.PubKey, error) {
	id, err := peer.Decode(wallet)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address: %w", err)
	}
	pub, err := id.ExtractPublicKey()
	if err != nil {
		return nil, fmt.Errorf("wallet address carries no public key: %w", err)
	}
	if pub.Type() != crypto.Ed25519 {
		return nil, fmt.Errorf("wallet key type %s is not supported", pub.Type())
	}
	return pub, nil
}

// VerifyWalletSignature checks that sig is the wallet key's signature over data
func VerifyWalletSignature(wallet string, data, sig []byte) error {
	pub, err := WalletPublicKey(wallet)
	if err != nil {
		return err
	}
	ok, err := pub.Verify(data, sig)
	if err != nil {
		return fmt.Errorf("failed to verify signature: %w", err)
	}
	if !ok {
		return ErrBadSignature
	}
	return nil
}
