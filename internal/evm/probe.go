package evm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/chain-suggest-agent/internal/chains"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

var ErrChainIDMismatch = errors.New("evm chain id mismatch")

// Prober asks an ethereum JSON-RPC endpoint for its chain id.
type Prober struct {
	timeout time.Duration
}

func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 7 * time.Second
	}
	return &Prober{timeout: timeout}
}

func (p *Prober) ChainID(ctx context.Context, rpcURL string) (uint64, error) {
	rpcURL = strings.TrimSpace(rpcURL)
	if rpcURL == "" {
		return 0, fmt.Errorf("missing rpc url")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	defer client.Close()

	id, err := client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("eth_chainId on %s: %w", rpcURL, err)
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("eth_chainId on %s: out of range", rpcURL)
	}
	return id.Uint64(), nil
}

// Verify checks that the evm endpoint of info reports the declared chain id.
// Chains without an evm section pass. An unreachable endpoint is logged and
// not treated as a mismatch.
func (p *Prober) Verify(ctx context.Context, info chains.ChainInfo) error {
	if info.EVM == nil {
		return nil
	}

	got, err := p.ChainID(ctx, info.EVM.RPC)
	if err != nil {
		log.Warn("evm endpoint probe failed", "chain_id", info.ChainID, "rpc", info.EVM.RPC, "error", err)
		return nil
	}
	if got != info.EVM.ChainID {
		return fmt.Errorf("%w: %s reports %s, chain info declares %s", ErrChainIDMismatch,
			info.EVM.RPC, hexutil.EncodeUint64(got), info.EVMChainIDHex())
	}
	return nil
}
