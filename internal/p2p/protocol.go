package p2p

import (
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p/core/protocol"
)

// Ledger protocols. Each stream carries one JSON request followed by one JSON response.
const (
	TransferProtocol     protocol.ID = "/lootbazaar/ledger/1.0.0/transfer"
	MintToProtocol       protocol.ID = "/lootbazaar/ledger/1.0.0/mint-to"
	MintArtifactProtocol protocol.ID = "/lootbazaar/ledger/1.0.0/mint-artifact"
)

const (
	maxMessageSize = 64 << 10
	streamTimeout  = 10 * time.Second
)

// Wire error codes
const (
	CodeInvalidRequest   = "invalid_request"
	CodeInternal         = "internal"
	CodeUnauthorizedPeer = "unauthorized_peer"
)

// Response is the reply to every ledger request
type Response struct {
	OK         bool   `json:"ok"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error,omitempty"`
	ArtifactID string `json:"artifact_id,omitempty"`
}

// RemoteError is a rejection reported by the ledger peer
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("ledger rejected request (%s): %s", e.Code, e.Message)
}

// Rejected reports that the ledger answered and refused the request, so nothing moved
func (e *RemoteError) Rejected() bool { return true }
