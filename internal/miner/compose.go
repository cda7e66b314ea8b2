package miner

import (
	"github.com/rs/zerolog/log"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/tensorplex-labs/giver-miner/internal/chain"
)

// RewardAmount is attached to every solution message sent to a giver.
var RewardAmount = tlb.MustFromTON("0.05")

// ComposeTransfers builds one transfer per mined result. The message body is
// the first reference of the BOC root cell written by the miner; results that
// do not decode are skipped.
func ComposeTransfers(results []SlotResult) []chain.Transfer {
	transfers := make([]chain.Transfer, 0, len(results))
	for _, res := range results {
		if res.Outcome != Mined || len(res.Solution) == 0 {
			continue
		}

		dst, err := chain.ParseAddress(res.Giver)
		if err != nil {
			log.Warn().Err(err).Int("slot", res.Slot).Msg("skipping solution for unparsable giver")
			continue
		}

		body, err := solutionBody(res.Solution)
		if err != nil {
			log.Warn().Err(err).Int("slot", res.Slot).Str("giver", res.Giver).Msg("skipping malformed solution boc")
			continue
		}

		transfers = append(transfers, chain.Transfer{
			Destination: dst,
			Amount:      RewardAmount,
			Body:        body,
		})
	}
	return transfers
}

func solutionBody(boc []byte) (*cell.Cell, error) {
	root, err := cell.FromBOC(boc)
	if err != nil {
		return nil, err
	}
	return root.BeginParse().LoadRefCell()
}
