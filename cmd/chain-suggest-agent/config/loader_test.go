package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("SNAP_REAL_HOME", "")
	t.Setenv("CSA_ENV", "")
	return home
}

func TestLoadEmbeddedDefaults(t *testing.T) {
	isolateHome(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Empty(t, cfg.Source)

	require.Equal(t, "127.0.0.1:6138", cfg.ListenAddr())
	require.Equal(t, "chainapsis", cfg.Community.Organization)
	require.Equal(t, "keplr-chain-registry", cfg.Community.Repository)
	require.Equal(t, 10*time.Second, cfg.Community.Timeout)
	require.Equal(t, 10*time.Minute, cfg.Interactions.TTL)
	require.Contains(t, cfg.Agent.UIAllowedOrigins, "http://localhost:5173")
	require.True(t, cfg.EVM.Verify)
	require.Equal(t, 5*time.Second, cfg.EVM.Timeout)

	require.Len(t, cfg.DefaultChains, 1)
	hub := cfg.DefaultChains[0]
	require.Equal(t, "cosmoshub-4", hub.ChainID)
	require.Equal(t, uint32(118), hub.BIP44.CoinType)
	require.Equal(t, "cosmosvaloper", hub.Bech32Config.Bech32PrefixValAddr)
	require.NotNil(t, hub.StakeCurrency)
	require.Equal(t, "uatom", hub.FeeCurrencies[0].CoinMinimalDenom)
	require.NotNil(t, hub.FeeCurrencies[0].GasPriceStep)
	require.InDelta(t, 0.025, hub.FeeCurrencies[0].GasPriceStep.Average, 1e-9)

	repo := cfg.CommunityRepo()
	require.Equal(t, "https://github.com/chainapsis/keplr-chain-registry", repo.RepoURL())
}

func TestLoadMergesUserFileFromHome(t *testing.T) {
	home := isolateHome(t)

	dir := filepath.Join(home, ".config", "chain-suggest-agent")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agent:
  port: "7000"
community:
  organization: my-org
interactions:
  ttl: 30s
`), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, path, cfg.Source)
	require.Equal(t, "7000", cfg.Agent.Port)
	require.Equal(t, "my-org", cfg.Community.Organization)
	require.Equal(t, "keplr-chain-registry", cfg.Community.Repository)
	require.Equal(t, 30*time.Second, cfg.Interactions.TTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolateHome(t)
	t.Setenv("CSA_AGENT_PORT", "7100")
	t.Setenv("CSA_COMMUNITY_REPOSITORY", "fork-registry")
	t.Setenv("CSA_EVM_VERIFY", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "7100", cfg.Agent.Port)
	require.Equal(t, "fork-registry", cfg.Community.Repository)
	require.False(t, cfg.EVM.Verify)
}

func TestLoadExplicitPath(t *testing.T) {
	isolateHome(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  port: not-a-port\n"), 0o600))
	_, err = Load(path)
	require.ErrorContains(t, err, "invalid config")
}

func TestLoadRejectsInvalidDefaultChain(t *testing.T) {
	isolateHome(t)

	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_chains:
  - chainId: broken-1
    chainName: Broken
`), 0o600))

	_, err := Load(path)
	require.ErrorContains(t, err, "default_chains[0]")
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	isolateHome(t)
	t.Setenv("CSA_ENV", "staging")

	_, err := Load("")
	require.Error(t, err)
}
