package chains

type BIP44 struct {
	CoinType uint32 `json:"coinType" yaml:"coinType"`
}

type Bech32Config struct {
	Bech32PrefixAccAddr  string `json:"bech32PrefixAccAddr" yaml:"bech32PrefixAccAddr" validate:"required"`
	Bech32PrefixAccPub   string `json:"bech32PrefixAccPub" yaml:"bech32PrefixAccPub" validate:"required"`
	Bech32PrefixValAddr  string `json:"bech32PrefixValAddr" yaml:"bech32PrefixValAddr" validate:"required"`
	Bech32PrefixValPub   string `json:"bech32PrefixValPub" yaml:"bech32PrefixValPub" validate:"required"`
	Bech32PrefixConsAddr string `json:"bech32PrefixConsAddr" yaml:"bech32PrefixConsAddr" validate:"required"`
	Bech32PrefixConsPub  string `json:"bech32PrefixConsPub" yaml:"bech32PrefixConsPub" validate:"required"`
}

type GasPriceStep struct {
	Low     float64 `json:"low" yaml:"low" validate:"gte=0"`
	Average float64 `json:"average" yaml:"average" validate:"gte=0"`
	High    float64 `json:"high" yaml:"high" validate:"gte=0"`
}

type Currency struct {
	CoinDenom        string `json:"coinDenom" yaml:"coinDenom" validate:"required"`
	CoinMinimalDenom string `json:"coinMinimalDenom" yaml:"coinMinimalDenom" validate:"required"`
	CoinDecimals     uint8  `json:"coinDecimals" yaml:"coinDecimals" validate:"lte=18"`
	CoinGeckoID      string `json:"coinGeckoId,omitempty" yaml:"coinGeckoId,omitempty"`
	CoinImageURL     string `json:"coinImageUrl,omitempty" yaml:"coinImageUrl,omitempty" validate:"omitempty,url"`
}

type FeeCurrency struct {
	Currency     `yaml:",inline" mapstructure:",squash"`
	GasPriceStep *GasPriceStep `json:"gasPriceStep,omitempty" yaml:"gasPriceStep,omitempty"`
}

// EVMInfo is set for chains that also expose an ethereum JSON-RPC endpoint.
type EVMInfo struct {
	ChainID uint64 `json:"chainId" yaml:"chainId" validate:"required"`
	RPC     string `json:"rpc" yaml:"rpc" validate:"required,url"`
}

type ChainInfo struct {
	RPC                 string        `json:"rpc" yaml:"rpc" validate:"required,url"`
	REST                string        `json:"rest" yaml:"rest" validate:"required,url"`
	ChainID             string        `json:"chainId" yaml:"chainId" validate:"required"`
	ChainName           string        `json:"chainName" yaml:"chainName" validate:"required"`
	StakeCurrency       *Currency     `json:"stakeCurrency,omitempty" yaml:"stakeCurrency,omitempty"`
	WalletURL           string        `json:"walletUrl,omitempty" yaml:"walletUrl,omitempty" validate:"omitempty,url"`
	WalletURLForStaking string        `json:"walletUrlForStaking,omitempty" yaml:"walletUrlForStaking,omitempty" validate:"omitempty,url"`
	BIP44               BIP44         `json:"bip44" yaml:"bip44"`
	AlternativeBIP44s   []BIP44       `json:"alternativeBIP44s,omitempty" yaml:"alternativeBIP44s,omitempty"`
	Bech32Config        Bech32Config  `json:"bech32Config" yaml:"bech32Config"`
	Currencies          []Currency    `json:"currencies" yaml:"currencies" validate:"required,min=1,dive"`
	FeeCurrencies       []FeeCurrency `json:"feeCurrencies" yaml:"feeCurrencies" validate:"required,min=1,dive"`
	Features            []string      `json:"features,omitempty" yaml:"features,omitempty"`
	Beta                bool          `json:"beta,omitempty" yaml:"beta,omitempty"`
	ChainSymbolImageURL string        `json:"chainSymbolImageUrl,omitempty" yaml:"chainSymbolImageUrl,omitempty" validate:"omitempty,url"`
	EVM                 *EVMInfo      `json:"evm,omitempty" yaml:"evm,omitempty"`
}

// ChainInfoWithRepoUpdateOptions is what the approval screen sends back.
// UpdateFromRepoDisabled pins the user-approved info so later community
// registry updates do not overwrite it.
type ChainInfoWithRepoUpdateOptions struct {
	ChainInfo
	UpdateFromRepoDisabled bool `json:"updateFromRepoDisabled,omitempty"`
}

// SuggestedChainInfo is the payload stored in the interaction queue.
type SuggestedChainInfo struct {
	ChainInfo
	Origin string `json:"origin"`
}

// StoredChain is a registry entry.
type StoredChain struct {
	Identifier             string    `json:"identifier"`
	Info                   ChainInfo `json:"info"`
	UpdateFromRepoDisabled bool      `json:"updateFromRepoDisabled,omitempty"`
	Suggested              bool      `json:"suggested,omitempty"`
	AddedAt                string    `json:"addedAt,omitempty"`
}
