package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/atdata/ishare/internal/wallet"
)

// TransferFilter selects which side of the history to fetch.
type TransferFilter string

const (
	TransfersAll      TransferFilter = "all"
	TransfersSent     TransferFilter = "sent"
	TransfersReceived TransferFilter = "received"
)

// SendTransfer submits a validated transfer request. This is the Sender
// implementation consumed by transfer.Coordinator; validation happens there,
// strictly before this call.
func (c *Client) SendTransfer(ctx context.Context, req wallet.TransferRequest) (wallet.TransferResult, error) {
	var result wallet.TransferResult

	err := c.do(ctx, http.MethodPost, "/transfer/send", nil, req, &result)
	if err != nil {
		return wallet.TransferResult{}, err
	}

	if result.Transfer.ID == "" {
		return wallet.TransferResult{}, &wallet.EnvelopeError{Endpoint: "/transfer/send", Reason: "missing transfer id"}
	}

	return result, nil
}

// Transfers fetches the transfer history, optionally filtered by direction.
func (c *Client) Transfers(ctx context.Context, filter TransferFilter) ([]wallet.Transfer, error) {
	if filter == "" {
		filter = TransfersAll
	}

	query := url.Values{"type": {string(filter)}}

	var resp struct {
		Transfers []wallet.Transfer `json:"transfers"`
	}

	err := c.do(ctx, http.MethodGet, "/transfers", query, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch transfers: %w", err)
	}

	if resp.Transfers == nil {
		return nil, &wallet.EnvelopeError{Endpoint: "/transfers", Reason: "missing transfers array"}
	}

	return resp.Transfers, nil
}
