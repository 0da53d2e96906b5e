package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantumauth-io/chain-suggest-agent/cmd/chain-suggest-agent/config"
	"github.com/quantumauth-io/chain-suggest-agent/internal/chains"
	"github.com/quantumauth-io/chain-suggest-agent/internal/chainsuggest"
	"github.com/quantumauth-io/chain-suggest-agent/internal/evm"
	agenthttp "github.com/quantumauth-io/chain-suggest-agent/internal/http"
	"github.com/quantumauth-io/chain-suggest-agent/internal/interaction"
	"github.com/quantumauth-io/chain-suggest-agent/internal/pairing"
	"github.com/quantumauth-io/chain-suggest-agent/internal/permissions"
	"github.com/quantumauth-io/chain-suggest-agent/internal/review"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "chain-suggest-agent",
		Short:         "Local agent that lets dApps suggest new chains to the wallet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/chain-suggest-agent/config.yaml)")

	loadConfig := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	root.AddCommand(
		newServeCmd(loadConfig),
		newCommunityURLCmd(loadConfig),
		newFetchCommunityCmd(loadConfig),
		newVersionCmd(),
	)
	return root
}

type configLoader func() (*config.Config, error)

func newServeCmd(loadConfig configLoader) *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the loopback agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, interactive)
		},
	}
	cmd.Flags().BoolVar(&interactive, "interactive", false, "review chain suggestions in this terminal")
	return cmd
}

func serve(parent context.Context, cfg *config.Config, interactive bool) error {
	log.Info("chain-suggest-agent",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
		"config", cfg.Source,
	)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := chains.NewRegistryFromEnv()
	if err != nil {
		return fmt.Errorf("resolve chain registry: %w", err)
	}
	if err := registry.EnsureFromConfig(ctx, cfg.DefaultChains); err != nil {
		return fmt.Errorf("init chain registry: %w", err)
	}

	perms, err := permissions.NewStoreFromEnv()
	if err != nil {
		return fmt.Errorf("resolve permissions: %w", err)
	}
	if err := perms.Load(); err != nil {
		return err
	}

	queue := interaction.NewQueue(interaction.WithTTL(cfg.Interactions.TTL))
	store := chainsuggest.NewStore(queue, cfg.CommunityRepo(),
		chainsuggest.WithHTTPClient(&http.Client{Timeout: cfg.Community.Timeout}))
	var serviceOpts []chainsuggest.ServiceOption
	if cfg.EVM.Verify {
		serviceOpts = append(serviceOpts, chainsuggest.WithEVMVerifier(evm.NewProber(cfg.EVM.Timeout)))
	}
	service := chainsuggest.NewService(queue, registry, perms, serviceOpts...)

	pairs, err := pairing.NewStoreFromEnv()
	if err != nil {
		return fmt.Errorf("resolve pairing: %w", err)
	}
	if !pairs.Paired() {
		log.Warn("no extension paired; POST /agent/extension/pair to issue a token", "file", pairs.Path())
	}

	handler, err := agenthttp.NewServer(ctx, store, service, registry, perms, pairs, agenthttp.Options{
		UIAllowedOrigins:  cfg.Agent.UIAllowedOrigins,
		AgentSessionToken: cfg.Agent.SessionToken,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("agent listening", "addr", server.Addr, "registry", registry.Path())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	if cfg.Agent.SessionToken == "" {
		// the approval screen needs it for every /agent call
		fmt.Fprintf(os.Stderr, "agent session token: %s\n", handler.AgentSessionToken())
	}

	if interactive {
		if review.IsInteractive(os.Stdin) {
			reviewer := review.New(store, queue, os.Stdin, os.Stdout)
			go func() {
				if err := reviewer.Run(ctx); err != nil {
					log.Error("terminal review stopped", "error", err)
				}
			}()
		} else {
			log.Warn("--interactive ignored, stdin is not a terminal")
		}
	}

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
		return err
	}
	log.Info("HTTP server gracefully stopped")
	return nil
}

func newCommunityURLCmd(loadConfig configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "community-url <chain-id>",
		Short: "Print where the community chain info of a chain lives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			repo := cfg.CommunityRepo()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "repository: %s\n", repo.RepoURL())
			fmt.Fprintf(out, "document:   %s\n", repo.ChainInfoURL(args[0]))
			fmt.Fprintf(out, "raw:        %s\n", repo.RawChainInfoURL(args[0]))
			return nil
		},
	}
}

func newFetchCommunityCmd(loadConfig configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-community <chain-id>",
		Short: "Fetch and validate the community chain info of a chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: cfg.Community.Timeout}
			info, err := cfg.CommunityRepo().Fetch(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}

			info.Normalize()
			if err := chains.Validate(info); err != nil {
				log.Warn("community chain info does not validate", "chain_id", info.ChainID, "error", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (commit %s, built %s)\n", Version, Commit, BuildDate)
		},
	}
}
