package p2p

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gurwinder-gg/LootBazaar/internal/models"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
)

// LedgerClient sends token and artifact requests to a ledger peer
type LedgerClient struct {
	host    host.Host
	peer    peer.ID
	timeout time.Duration
}

// NewLedgerClient creates a client for the ledger served by ledgerPeer
func NewLedgerClient(h host.Host, ledgerPeer peer.ID) *LedgerClient {
	return &LedgerClient{
		host:    h,
		peer:    ledgerPeer,
		timeout: streamTimeout,
	}
}

// Transfer moves tokens between ledger accounts
func (c *LedgerClient) Transfer(ctx context.Context, req models.TransferRequest) error {
	_, err := c.call(ctx, TransferProtocol, req)
	return err
}

// MintTo creates new supply in a ledger account
func (c *LedgerClient) MintTo(ctx context.Context, req models.MintToRequest) error {
	_, err := c.call(ctx, MintToProtocol, req)
	return err
}

// MintArtifact mints one reward artifact and returns its ID
func (c *LedgerClient) MintArtifact(ctx context.Context, req models.ArtifactRequest) (string, error) {
	resp, err := c.call(ctx, MintArtifactProtocol, req)
	if err != nil {
		return "", err
	}
	return resp.ArtifactID, nil
}

func (c *LedgerClient) call(ctx context.Context, pid protocol.ID, req any) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream, err := c.host.NewStream(ctx, c.peer, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	defer stream.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetDeadline(deadline)
	}

	if err := json.NewEncoder(stream).Encode(req); err != nil {
		stream.Reset()
		return nil, fmt.Errorf("failed to write request: %w", err)
	}
	if err := stream.CloseWrite(); err != nil {
		stream.Reset()
		return nil, fmt.Errorf("failed to close request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(io.LimitReader(stream, maxMessageSize)).Decode(&resp); err != nil {
		stream.Reset()
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if !resp.OK {
		return nil, &RemoteError{Code: resp.Code, Message: resp.Error}
	}
	return &resp, nil
}
