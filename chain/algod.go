package chain

import (
	"context"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Algod is the subset of the algod REST API the service needs.
type Algod interface {
	SuggestedParams(ctx context.Context) (types.SuggestedParams, error)
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)
	AccountInformation(ctx context.Context, address string) (models.Account, error)
}

// AlgodClient adapts the SDK client to Algod.
type AlgodClient struct {
	client *algod.Client
}

// NewAlgodClient connects to the algod node at address.
func NewAlgodClient(address, token string) (*AlgodClient, error) {
	client, err := algod.MakeClient(address, token)
	if err != nil {
		return nil, fmt.Errorf("failed to create algod client: %w", err)
	}
	return &AlgodClient{client: client}, nil
}

func (c *AlgodClient) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	return c.client.SuggestedParams().Do(ctx)
}

func (c *AlgodClient) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	return c.client.SendRawTransaction(raw).Do(ctx)
}

func (c *AlgodClient) AccountInformation(ctx context.Context, address string) (models.Account, error) {
	return c.client.AccountInformation(address).Do(ctx)
}
