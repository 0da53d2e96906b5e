package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/quantumauth-io/chain-suggest-agent/internal/chains"
	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("SNAP_REAL_HOME", "")
	t.Setenv("CSA_ENV", "")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommunityURLCommand(t *testing.T) {
	isolateHome(t)

	out, err := run(t, "community-url", "osmosis-1")
	require.NoError(t, err)
	require.Contains(t, out, "https://github.com/chainapsis/keplr-chain-registry\n")
	require.Contains(t, out, "https://github.com/chainapsis/keplr-chain-registry/blob/main/cosmos/osmosis.json")
	require.Contains(t, out, "https://raw.githubusercontent.com/chainapsis/keplr-chain-registry/main/cosmos/osmosis.json")

	_, err = run(t, "community-url")
	require.Error(t, err)
}

func TestFetchCommunityCommand(t *testing.T) {
	isolateHome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chainapsis/keplr-chain-registry/main/cosmos/juno.json" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(chains.ChainInfo{ChainID: "juno-1", ChainName: "Juno"})
	}))
	defer srv.Close()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("community:\n  raw_base_url: "+srv.URL+"\n"), 0o600))

	out, err := run(t, "--config", cfgPath, "fetch-community", "juno-1")
	require.NoError(t, err)

	var info chains.ChainInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.Equal(t, "Juno", info.ChainName)

	_, err = run(t, "--config", cfgPath, "fetch-community", "osmosis-1")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, Version)
}
