package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/clients/ethereum"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/retry"
)

// IsRewardDistributor reports whether the code deployed at address is the
// canonical RewardDistributor contract, by byte-exact comparison against
// the pinned runtime bytecode. Classification is best-effort: an RPC
// failure (after retries) downgrades the address to a plain distributor
// instead of aborting the scan that discovered it.
func (s *Scanner) IsRewardDistributor(ctx context.Context, provider ethereum.Provider, address common.Address) bool {
	operationName := fmt.Sprintf("isRewardDistributor.getCode(%s)", address.Hex())

	bytecode, err := retry.Do(s.logger, s.retryConfig.WithOperationName(operationName), func() (string, error) {
		return provider.GetCode(ctx, address)
	})
	if err != nil {
		s.logger.Sugar().Warnw("Failed to fetch bytecode, classifying as not a reward distributor",
			zap.String("address", address.Hex()),
			zap.Error(err),
		)
		return false
	}

	return strings.EqualFold(bytecode, s.globalConfig.GetRewardDistributorBytecode())
}
