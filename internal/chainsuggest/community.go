package chainsuggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/quantumauth-io/chain-suggest-agent/internal/chains"
	"github.com/quantumauth-io/chain-suggest-agent/internal/constants"
)

// maxCommunityDocBytes bounds the community document body.
const maxCommunityDocBytes = 1 << 20

var ErrCommunityChainInfoNotFound = errors.New("community chain info not found")

// CommunityRepo locates the community maintained chain registry on GitHub.
type CommunityRepo struct {
	// Default to chainapsis/keplr-chain-registry.
	Organization string
	Repository   string

	// Base URLs default to github.com and raw.githubusercontent.com.
	WebBaseURL string
	RawBaseURL string
}

func (r CommunityRepo) withDefaults() CommunityRepo {
	if strings.TrimSpace(r.Organization) == "" {
		r.Organization = constants.DefaultCommunityOrg
	}
	if strings.TrimSpace(r.Repository) == "" {
		r.Repository = constants.DefaultCommunityRepo
	}
	if strings.TrimSpace(r.WebBaseURL) == "" {
		r.WebBaseURL = constants.GithubWebBaseURL
	}
	if strings.TrimSpace(r.RawBaseURL) == "" {
		r.RawBaseURL = constants.GithubRawBaseURL
	}
	r.WebBaseURL = strings.TrimRight(strings.TrimSpace(r.WebBaseURL), "/")
	r.RawBaseURL = strings.TrimRight(strings.TrimSpace(r.RawBaseURL), "/")
	return r
}

// RepoURL is the browsable repository page.
func (r CommunityRepo) RepoURL() string {
	r = r.withDefaults()
	return fmt.Sprintf("%s/%s/%s", r.WebBaseURL, r.Organization, r.Repository)
}

// ChainInfoURL is the browsable page of the document for chainID.
func (r CommunityRepo) ChainInfoURL(chainID string) string {
	return fmt.Sprintf("%s/blob/%s/%s", r.RepoURL(), constants.CommunityRepoBranch, documentPath(chainID))
}

// rawBaseURL is the root the raw documents are served from.
func (r CommunityRepo) rawBaseURL() string {
	r = r.withDefaults()
	return fmt.Sprintf("%s/%s/%s/%s", r.RawBaseURL, r.Organization, r.Repository, constants.CommunityRepoBranch)
}

// RawChainInfoURL is where the raw JSON document for chainID is fetched from.
func (r CommunityRepo) RawChainInfoURL(chainID string) string {
	return r.rawBaseURL() + "/" + documentPath(chainID)
}

// Fetch loads the community document of chainID, independent of any
// waiting suggestion.
func (r CommunityRepo) Fetch(ctx context.Context, client *http.Client, chainID string) (chains.ChainInfo, error) {
	return fetchChainInfo(ctx, client, r.RawChainInfoURL(chainID))
}

func documentPath(chainID string) string {
	id := chains.ChainIdentifier(chainID)
	return constants.CommunityCosmosDir + "/" + url.PathEscape(id) + constants.CommunityFileExt
}

func fetchChainInfo(ctx context.Context, client *http.Client, rawURL string) (chains.ChainInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return chains.ChainInfo{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return chains.ChainInfo{}, fmt.Errorf("fetch community chain info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return chains.ChainInfo{}, fmt.Errorf("%w: %s", ErrCommunityChainInfoNotFound, rawURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return chains.ChainInfo{}, fmt.Errorf("fetch community chain info: unexpected status %d", resp.StatusCode)
	}

	var info chains.ChainInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCommunityDocBytes)).Decode(&info); err != nil {
		return chains.ChainInfo{}, fmt.Errorf("decode community chain info: %w", err)
	}
	return info, nil
}
