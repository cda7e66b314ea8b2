package chain

import (
	"context"

	"github.com/rs/zerolog/log"
)

// FetchPowParams wraps GetPowParams so that no error crosses it: on any
// failure, or an incomplete answer, it logs and reports false.
func FetchPowParams(ctx context.Context, node NodeInterface, giver string) (PowParams, bool) {
	params, err := node.GetPowParams(ctx, giver)
	if err != nil {
		log.Warn().Err(err).Str("giver", giver).Msg("failed to fetch pow params")
		return PowParams{}, false
	}
	if params.Seed == nil || params.Complexity == nil {
		log.Warn().Str("giver", giver).Msg("giver returned incomplete pow params")
		return PowParams{}, false
	}
	return params, true
}
