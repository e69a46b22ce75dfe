package p2p

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/gurwinder-gg/LootBazaar/internal/models"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
)

// LedgerHandler executes ledger requests received from peers
type LedgerHandler interface {
	Transfer(ctx context.Context, req models.TransferRequest) error
	MintTo(ctx context.Context, req models.MintToRequest) error
	MintArtifact(ctx context.Context, req models.ArtifactRequest) (string, error)
}

// codedError is implemented by handler errors that carry a wire code
type codedError interface {
	Code() string
}

// ServeLedger registers the ledger protocols on h. Only streams opened by one of
// the trusted peers are decoded; everyone else gets an unauthorized_peer reply.
func ServeLedger(h host.Host, handler LedgerHandler, trusted []peer.ID, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "ledger-server")

	allowed := make(map[peer.ID]struct{}, len(trusted))
	for _, id := range trusted {
		allowed[id] = struct{}{}
	}
	srv := &ledgerServer{allowed: allowed, logger: logger}

	h.SetStreamHandler(TransferProtocol, func(s network.Stream) {
		var req models.TransferRequest
		srv.serve(s, &req, func(ctx context.Context) (Response, error) {
			return Response{}, handler.Transfer(ctx, req)
		})
	})
	h.SetStreamHandler(MintToProtocol, func(s network.Stream) {
		var req models.MintToRequest
		srv.serve(s, &req, func(ctx context.Context) (Response, error) {
			return Response{}, handler.MintTo(ctx, req)
		})
	})
	h.SetStreamHandler(MintArtifactProtocol, func(s network.Stream) {
		var req models.ArtifactRequest
		srv.serve(s, &req, func(ctx context.Context) (Response, error) {
			id, err := handler.MintArtifact(ctx, req)
			return Response{ArtifactID: id}, err
		})
	})
}

// StopServingLedger removes the ledger protocols from h
func StopServingLedger(h host.Host) {
	h.RemoveStreamHandler(TransferProtocol)
	h.RemoveStreamHandler(MintToProtocol)
	h.RemoveStreamHandler(MintArtifactProtocol)
}

type ledgerServer struct {
	allowed map[peer.ID]struct{}
	logger  *slog.Logger
}

func (srv *ledgerServer) serve(s network.Stream, req any, exec func(ctx context.Context) (Response, error)) {
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), streamTimeout)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.SetDeadline(deadline)
	}

	remote := s.Conn().RemotePeer()
	var resp Response
	if _, ok := srv.allowed[remote]; !ok {
		_, _ = io.Copy(io.Discard, io.LimitReader(s, maxMessageSize))
		resp = Response{Code: CodeUnauthorizedPeer, Error: "peer is not trusted by this ledger"}
		srv.logger.Warn("refused ledger request from untrusted peer", "protocol", s.Protocol(), "peer", remote.String())
	} else if err := json.NewDecoder(io.LimitReader(s, maxMessageSize)).Decode(req); err != nil {
		resp = Response{Code: CodeInvalidRequest, Error: err.Error()}
	} else {
		var execErr error
		resp, execErr = exec(ctx)
		if execErr != nil {
			resp = Response{Code: CodeInternal, Error: execErr.Error()}
			var coded codedError
			if errors.As(execErr, &coded) {
				resp.Code = coded.Code()
			}
		} else {
			resp.OK = true
		}
	}

	if !resp.OK {
		srv.logger.Debug("ledger request rejected",
			"protocol", s.Protocol(), "peer", remote.String(), "code", resp.Code, "error", resp.Error)
	}
	if err := json.NewEncoder(s).Encode(resp); err != nil {
		srv.logger.Warn("failed to write ledger response", "protocol", s.Protocol(), "error", err)
		s.Reset()
	}
}
