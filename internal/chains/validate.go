package chains

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-playground/validator/v10"
)

const (
	erc20DenomPrefix = "erc20:"
	cw20DenomPrefix  = "cw20:"
)

var ErrInvalidChainInfo = errors.New("invalid chain info")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Normalize trims user supplied strings in place.
func (c *ChainInfo) Normalize() {
	c.RPC = strings.TrimSpace(c.RPC)
	c.REST = strings.TrimSpace(c.REST)
	c.ChainID = strings.TrimSpace(c.ChainID)
	c.ChainName = strings.TrimSpace(c.ChainName)
	c.WalletURL = strings.TrimSpace(c.WalletURL)
	c.WalletURLForStaking = strings.TrimSpace(c.WalletURLForStaking)
	c.ChainSymbolImageURL = strings.TrimSpace(c.ChainSymbolImageURL)

	for i := range c.Currencies {
		normalizeCurrency(&c.Currencies[i])
	}
	for i := range c.FeeCurrencies {
		normalizeCurrency(&c.FeeCurrencies[i].Currency)
	}
	if c.StakeCurrency != nil {
		normalizeCurrency(c.StakeCurrency)
	}

	features := make([]string, 0, len(c.Features))
	seen := map[string]struct{}{}
	for _, f := range c.Features {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		features = append(features, f)
	}
	c.Features = features
}

func normalizeCurrency(cur *Currency) {
	cur.CoinDenom = strings.TrimSpace(cur.CoinDenom)
	cur.CoinMinimalDenom = strings.TrimSpace(cur.CoinMinimalDenom)
	cur.CoinGeckoID = strings.TrimSpace(cur.CoinGeckoID)
	cur.CoinImageURL = strings.TrimSpace(cur.CoinImageURL)
}

// Validate checks the chain info a dApp suggested (or the user edited).
func Validate(c ChainInfo) error {
	if err := structValidator().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChainInfo, err)
	}
	if c.StakeCurrency != nil {
		if err := validateDenom(*c.StakeCurrency); err != nil {
			return err
		}
	}
	for _, cur := range c.Currencies {
		if err := validateDenom(cur); err != nil {
			return err
		}
	}
	for _, fc := range c.FeeCurrencies {
		if err := validateDenom(fc.Currency); err != nil {
			return err
		}
		if s := fc.GasPriceStep; s != nil && !(s.Low <= s.Average && s.Average <= s.High) {
			return fmt.Errorf("%w: gasPriceStep of %s must satisfy low <= average <= high", ErrInvalidChainInfo, fc.CoinMinimalDenom)
		}
	}
	if ChainIdentifier(c.ChainID) == "" {
		return fmt.Errorf("%w: chainId has empty identifier", ErrInvalidChainInfo)
	}
	return nil
}

func validateDenom(cur Currency) error {
	switch {
	case strings.HasPrefix(cur.CoinMinimalDenom, erc20DenomPrefix):
		addr := strings.TrimPrefix(cur.CoinMinimalDenom, erc20DenomPrefix)
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%w: invalid erc20 contract address %q", ErrInvalidChainInfo, addr)
		}
	case strings.HasPrefix(cur.CoinMinimalDenom, cw20DenomPrefix):
		if strings.TrimPrefix(cur.CoinMinimalDenom, cw20DenomPrefix) == "" {
			return fmt.Errorf("%w: cw20 denom missing contract address", ErrInvalidChainInfo)
		}
	}
	return nil
}

// EVMChainIDHex returns the 0x quantity of the evm chain id, or "" for
// chains without an evm endpoint.
func (c ChainInfo) EVMChainIDHex() string {
	if c.EVM == nil {
		return ""
	}
	return hexutil.EncodeUint64(c.EVM.ChainID)
}

// Identifier is the revision-independent identifier of the chain.
func (c ChainInfo) Identifier() string {
	return ChainIdentifier(c.ChainID)
}
