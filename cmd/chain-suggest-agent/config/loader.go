package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/quantumauth-io/chain-suggest-agent/internal/chains"
	"github.com/quantumauth-io/chain-suggest-agent/internal/chainsuggest"
	"github.com/quantumauth-io/chain-suggest-agent/internal/constants"
	"github.com/quantumauth-io/chain-suggest-agent/internal/securefile"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/spf13/viper"
)

//go:embed config.yaml
var EmbeddedConfigYAML []byte

type AgentSettings struct {
	LocalHost        string   `mapstructure:"host" validate:"required"`
	Port             string   `mapstructure:"port" validate:"required,numeric"`
	SessionToken     string   `mapstructure:"session_token"`
	UIAllowedOrigins []string `mapstructure:"ui_allowed_origins" validate:"dive,url"`
}

type CommunitySettings struct {
	Organization string        `mapstructure:"organization" validate:"required"`
	Repository   string        `mapstructure:"repository" validate:"required"`
	WebBaseURL   string        `mapstructure:"web_base_url" validate:"required,url"`
	RawBaseURL   string        `mapstructure:"raw_base_url" validate:"required,url"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type InteractionSettings struct {
	// Zero keeps interactions until decided.
	TTL time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

type EVMSettings struct {
	// Probe eth_chainId of suggested chains that declare an evm endpoint.
	Verify  bool          `mapstructure:"verify"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type Config struct {
	Agent         AgentSettings       `mapstructure:"agent"`
	Community     CommunitySettings   `mapstructure:"community"`
	Interactions  InteractionSettings `mapstructure:"interactions"`
	EVM           EVMSettings         `mapstructure:"evm"`
	DefaultChains []chains.ChainInfo  `mapstructure:"default_chains"`

	// File the user settings were read from, empty when only defaults apply.
	Source string `mapstructure:"-"`
}

// Load reads the embedded defaults, merges the first user config found (or
// path when set) and applies CSA_* environment overrides.
func Load(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(EmbeddedConfigYAML)); err != nil {
		return nil, fmt.Errorf("read embedded config: %w", err)
	}

	source, err := userConfigPath(path)
	if err != nil {
		return nil, err
	}
	if source != "" {
		v.SetConfigFile(source)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merge config %s: %w", source, err)
		}
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Source = source

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func userConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if !securefile.Exists(explicit) {
			return "", fmt.Errorf("config file %s not found", explicit)
		}
		return explicit, nil
	}

	cands, err := securefile.ConfigPathCandidates(constants.AppName, constants.ConfigFile)
	if err != nil {
		return "", err
	}
	for _, p := range cands {
		if securefile.Exists(p) {
			return p, nil
		}
	}
	return "", nil
}

func loadDotEnv() {
	err := godotenv.Load()
	if err == nil {
		log.Info("loaded .env file")
		return
	}
	if !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to load .env file", "error", err)
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for i := range c.DefaultChains {
		c.DefaultChains[i].Normalize()
		if err := chains.Validate(c.DefaultChains[i]); err != nil {
			return fmt.Errorf("default_chains[%d]: %w", i, err)
		}
	}
	return nil
}

// ListenAddr is the loopback address the agent binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Agent.LocalHost, c.Agent.Port)
}

func (c *Config) CommunityRepo() chainsuggest.CommunityRepo {
	return chainsuggest.CommunityRepo{
		Organization: c.Community.Organization,
		Repository:   c.Community.Repository,
		WebBaseURL:   c.Community.WebBaseURL,
		RawBaseURL:   c.Community.RawBaseURL,
	}
}
