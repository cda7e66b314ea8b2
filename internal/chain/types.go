// Package chain is the miner's view of the TON network: reading giver
// proof-of-work parameters and broadcasting wallet transfers.
package chain

import (
	"context"
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// PowParams is the challenge published by a giver contract.
type PowParams struct {
	Seed       *big.Int
	Complexity *big.Int
}

// Transfer is one internal message the wallet should send.
type Transfer struct {
	Destination *address.Address
	Amount      tlb.Coins
	Body        *cell.Cell
}

// NodeInterface is implemented by TonNode and by test doubles.
type NodeInterface interface {
	// GetPowParams runs the giver's get_pow_params get-method.
	GetPowParams(ctx context.Context, giver string) (PowParams, error)
	// SubmitTransfers broadcasts transfers from the miner wallet.
	SubmitTransfers(ctx context.Context, transfers []Transfer) error
}
