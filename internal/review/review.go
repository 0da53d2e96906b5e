package review

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/quantumauth-io/chain-suggest-agent/internal/chains"
	"github.com/quantumauth-io/chain-suggest-agent/internal/chainsuggest"
	"github.com/quantumauth-io/chain-suggest-agent/internal/interaction"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"golang.org/x/term"
)

// Store is the approval screen state the reviewer drives.
type Store interface {
	WaitingSuggestedChainInfo() (chainsuggest.Suggestion, bool, error)
	WaitingCount() int
	FetchCommunityChainInfo(ctx context.Context) error
	CommunityChainInfo() (*chains.ChainInfo, string)
	CommunityChainInfoURL(chainID string) string
	ApproveByID(ctx context.Context, id string, chainInfo chains.ChainInfoWithRepoUpdateOptions) error
	RejectByID(ctx context.Context, id string) error
	RejectAll(ctx context.Context) error
}

// Subscriber notifies on queue changes.
type Subscriber interface {
	Subscribe() (<-chan struct{}, func())
}

type decision int

const (
	decisionNone decision = iota
	decisionApprove
	decisionApprovePinned
	decisionReject
	decisionRejectAll
)

// Reviewer is a line based approval screen for chain suggestions.
type Reviewer struct {
	store   Store
	updates Subscriber
	lines   <-chan string
	out     io.Writer

	stop      chan struct{}
	closeOnce sync.Once
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func New(store Store, updates Subscriber, in io.Reader, out io.Writer) *Reviewer {
	stop := make(chan struct{})
	return &Reviewer{
		store:   store,
		updates: updates,
		lines:   readLines(in, stop),
		out:     out,
		stop:    stop,
	}
}

// Close stops handing input lines to the reviewer. A read already blocked
// on in ends with the next line or EOF.
func (r *Reviewer) Close() {
	r.closeOnce.Do(func() { close(r.stop) })
}

func readLines(in io.Reader, stop <-chan struct{}) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-stop:
				return
			}
		}
	}()
	return ch
}

// Run prompts for every waiting suggestion until ctx is done or input ends.
func (r *Reviewer) Run(ctx context.Context) error {
	defer r.Close()

	changes, unsubscribe := r.updates.Subscribe()
	defer unsubscribe()

	for {
		for {
			handled, err := r.ReviewNext(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			if !handled {
				break
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-changes:
		}
	}
}

// ReviewNext prompts for the oldest waiting suggestion. It reports false when
// nothing is waiting.
func (r *Reviewer) ReviewNext(ctx context.Context) (bool, error) {
	waiting, ok, err := r.store.WaitingSuggestedChainInfo()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	r.printSuggestion(ctx, waiting)

	d, err := r.ask(ctx)
	if err != nil {
		return false, err
	}

	switch d {
	case decisionApprove, decisionApprovePinned:
		err = r.store.ApproveByID(ctx, waiting.ID, chains.ChainInfoWithRepoUpdateOptions{
			ChainInfo:              waiting.ChainInfo,
			UpdateFromRepoDisabled: d == decisionApprovePinned,
		})
	case decisionReject:
		err = r.store.RejectByID(ctx, waiting.ID)
	case decisionRejectAll:
		err = r.store.RejectAll(ctx)
	}
	switch {
	case errors.Is(err, interaction.ErrNotFound):
		// decided on the approval screen while we were prompting
		r.printf("suggestion for %s was already decided\n", waiting.ChainInfo.ChainID)
	case err != nil:
		log.Error("forward suggestion decision failed", "chain_id", waiting.ChainInfo.ChainID, "error", err)
	}
	return true, nil
}

func (r *Reviewer) ask(ctx context.Context) (decision, error) {
	for {
		r.printf("Add this chain? [y]es / [p]in (no repo updates) / [n]o / reject [a]ll: ")

		var line string
		select {
		case <-ctx.Done():
			return decisionNone, ctx.Err()
		case l, ok := <-r.lines:
			if !ok {
				return decisionNone, io.EOF
			}
			line = l
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return decisionApprove, nil
		case "p", "pin":
			return decisionApprovePinned, nil
		case "n", "no":
			return decisionReject, nil
		case "a", "all":
			return decisionRejectAll, nil
		}
		r.printf("please answer y, p, n or a\n")
	}
}

func (r *Reviewer) printSuggestion(ctx context.Context, s chainsuggest.Suggestion) {
	info := s.ChainInfo

	r.printf("\n=== Chain suggestion (%d waiting) ===\n", r.store.WaitingCount())
	r.printf("Origin:     %s\n", s.Origin)
	r.printf("Chain:      %s (%s)\n", info.ChainName, info.ChainID)
	r.printf("RPC:        %s\n", info.RPC)
	r.printf("REST:       %s\n", info.REST)
	r.printf("Coin type:  %d\n", info.BIP44.CoinType)
	r.printf("Prefix:     %s\n", info.Bech32Config.Bech32PrefixAccAddr)
	if len(info.Currencies) > 0 {
		r.printf("Currency:   %s (%s, %d decimals)\n", info.Currencies[0].CoinDenom,
			info.Currencies[0].CoinMinimalDenom, info.Currencies[0].CoinDecimals)
	}
	if hex := info.EVMChainIDHex(); hex != "" {
		r.printf("EVM:        %s %s\n", hex, info.EVM.RPC)
	}
	if info.Beta {
		r.printf("Beta:       yes\n")
	}

	if err := r.store.FetchCommunityChainInfo(ctx); err != nil {
		if errors.Is(err, chainsuggest.ErrCommunityChainInfoNotFound) {
			r.printf("Community:  not listed in the community registry\n")
		} else {
			r.printf("Community:  lookup failed (%v)\n", err)
		}
		return
	}

	community, id := r.store.CommunityChainInfo()
	if community == nil || id != info.Identifier() {
		return
	}
	r.printf("Community:  %s\n", r.store.CommunityChainInfoURL(info.ChainID))
	for _, d := range Differences(info, *community) {
		r.printf("  differs:  %s\n", d)
	}
}

func (r *Reviewer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Differences lists the user visible fields where the suggested chain info
// deviates from the community document.
func Differences(suggested, community chains.ChainInfo) []string {
	var out []string
	add := func(field, a, b string) {
		if a != b {
			out = append(out, fmt.Sprintf("%s: suggested %q, community %q", field, a, b))
		}
	}

	add("chainId", suggested.ChainID, community.ChainID)
	add("chainName", suggested.ChainName, community.ChainName)
	add("rpc", suggested.RPC, community.RPC)
	add("rest", suggested.REST, community.REST)
	add("bech32 prefix", suggested.Bech32Config.Bech32PrefixAccAddr, community.Bech32Config.Bech32PrefixAccAddr)
	add("coin type", fmt.Sprint(suggested.BIP44.CoinType), fmt.Sprint(community.BIP44.CoinType))
	add("evm chain id", suggested.EVMChainIDHex(), community.EVMChainIDHex())
	return out
}
