package http

import (
	"github.com/quantumauth-io/chain-suggest-agent/internal/chains"
	"github.com/quantumauth-io/chain-suggest-agent/internal/chainsuggest"
)

type corsPolicy struct {
	allowedOrigins map[string]struct{}
	allowMethods   string

	allowHeaders string
	maxAge       int
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

type suggestChainRequest struct {
	Origin    string           `json:"origin"`
	ChainInfo chains.ChainInfo `json:"chainInfo"`
}

// suggestionView is everything the approval screen renders.
type suggestionView struct {
	Waiting                   *chainsuggest.Suggestion `json:"waiting"`
	WaitingCount              int                      `json:"waitingCount"`
	CommunityChainInfo        *chains.ChainInfo        `json:"communityChainInfo"`
	CommunityChainInfoURL     string                   `json:"communityChainInfoUrl,omitempty"`
	CommunityChainInfoRepoURL string                   `json:"communityChainInfoRepoUrl"`
	CommunityNotFound         bool                     `json:"communityNotFound,omitempty"`
	IsLoading                 bool                     `json:"isLoading"`
}
