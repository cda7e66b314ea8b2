package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/ton/wallet"
)

const (
	powParamsMethod = "get_pow_params"

	// MaxMessagesPerTransfer is the V4R2 wallet limit for one external message.
	MaxMessagesPerTransfer = 4

	// pay fees separately and ignore action errors
	transferMode = wallet.PayGasSeparately + wallet.IgnoreErrors
)

type getMethodAPI interface {
	CurrentMasterchainInfo(ctx context.Context) (*ton.BlockIDExt, error)
	RunGetMethod(ctx context.Context, blockInfo *ton.BlockIDExt, addr *address.Address, method string, params ...any) (*ton.ExecutionResult, error)
}

type batchSender interface {
	SendMany(ctx context.Context, messages []*wallet.Message, waitConfirmation ...bool) error
}

// TonNode talks to lite-servers and owns the miner's V4R2 wallet.
type TonNode struct {
	pool   *liteclient.ConnectionPool
	api    getMethodAPI
	wallet batchSender

	WalletAddress *address.Address
}

// Dial connects to the lite-servers listed in cfg and opens the wallet derived
// from mnemonic.
func Dial(ctx context.Context, cfg *liteclient.GlobalConfig, mnemonic string) (*TonNode, error) {
	if cfg == nil {
		return nil, fmt.Errorf("network config cannot be nil")
	}

	pool := liteclient.NewConnectionPool()
	if err := pool.AddConnectionsFromConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("connect to liteservers: %w", err)
	}

	client := ton.NewAPIClient(pool, ton.ProofCheckPolicyFast)
	client.SetTrustedBlockFromConfig(cfg)
	api := client.WithRetry()

	w, err := wallet.FromSeed(api, strings.Fields(mnemonic), wallet.V4R2)
	if err != nil {
		pool.Stop()
		return nil, fmt.Errorf("open wallet: %w", err)
	}

	log.Info().
		Int("liteservers", len(cfg.Liteservers)).
		Str("wallet", w.WalletAddress().String()).
		Msg("ton node client initialized successfully")

	return &TonNode{
		pool:          pool,
		api:           api,
		wallet:        w,
		WalletAddress: w.WalletAddress(),
	}, nil
}

// GetPowParams returns the seed and complexity stack entries of get_pow_params.
func (n *TonNode) GetPowParams(ctx context.Context, giver string) (PowParams, error) {
	addr, err := ParseAddress(giver)
	if err != nil {
		return PowParams{}, err
	}

	block, err := n.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return PowParams{}, fmt.Errorf("get masterchain info: %w", err)
	}

	res, err := n.api.RunGetMethod(ctx, block, addr, powParamsMethod)
	if err != nil {
		return PowParams{}, fmt.Errorf("run %s on %s: %w", powParamsMethod, giver, err)
	}

	seed, err := res.Int(0)
	if err != nil {
		return PowParams{}, fmt.Errorf("read seed: %w", err)
	}
	complexity, err := res.Int(1)
	if err != nil {
		return PowParams{}, fmt.Errorf("read complexity: %w", err)
	}

	log.Trace().
		Str("giver", giver).
		Uint32("block", block.SeqNo).
		Str("seed", seed.String()).
		Str("complexity", complexity.String()).
		Msg("pow params fetched")

	return PowParams{Seed: seed, Complexity: complexity}, nil
}

// SubmitTransfers sends transfers in wallet-sized chunks. Every chunk except
// the last waits for confirmation so the next one is signed with a fresh seqno.
func (n *TonNode) SubmitTransfers(ctx context.Context, transfers []Transfer) error {
	chunks := chunkMessages(toWalletMessages(transfers), MaxMessagesPerTransfer)
	for i, chunk := range chunks {
		wait := i < len(chunks)-1
		if err := n.wallet.SendMany(ctx, chunk, wait); err != nil {
			return fmt.Errorf("send transfer chunk %d/%d: %w", i+1, len(chunks), err)
		}
		log.Debug().
			Int("chunk", i+1).
			Int("chunks", len(chunks)).
			Int("messages", len(chunk)).
			Msg("transfer chunk sent")
	}
	return nil
}

// Close releases the lite-server connections.
func (n *TonNode) Close() {
	if n.pool != nil {
		n.pool.Stop()
	}
}

func toWalletMessages(transfers []Transfer) []*wallet.Message {
	msgs := make([]*wallet.Message, 0, len(transfers))
	for _, t := range transfers {
		msgs = append(msgs, &wallet.Message{
			Mode: transferMode,
			InternalMessage: &tlb.InternalMessage{
				IHRDisabled: true,
				Bounce:      t.Destination.IsBounceable(),
				DstAddr:     t.Destination,
				Amount:      t.Amount,
				Body:        t.Body,
			},
		})
	}
	return msgs
}

func chunkMessages(msgs []*wallet.Message, size int) [][]*wallet.Message {
	var chunks [][]*wallet.Message
	for len(msgs) > 0 {
		end := min(size, len(msgs))
		chunks = append(chunks, msgs[:end])
		msgs = msgs[end:]
	}
	return chunks
}
