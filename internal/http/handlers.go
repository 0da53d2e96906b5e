package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/quantumauth-io/chain-suggest-agent/internal/chains"
	"github.com/quantumauth-io/chain-suggest-agent/internal/chainsuggest"
	"github.com/quantumauth-io/chain-suggest-agent/internal/interaction"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{OK: true})
}

// handleSuggestChain blocks until the user decides on the suggestion or the
// agent shuts down.
func (s *Server) handleSuggestChain(w http.ResponseWriter, r *http.Request) {
	var req suggestChainRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	origin, ok := requestOrigin(r, req.Origin)
	if !ok {
		writeError(w, http.StatusBadRequest, SuggestErrorOriginText)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	res, err := s.service.SuggestChainInfo(ctx, origin, req.ChainInfo)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, apiResponse{OK: true, Data: res})
	case errors.Is(err, chainsuggest.ErrInvalidOrigin), errors.Is(err, chains.ErrInvalidChainInfo):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, interaction.ErrRejected):
		writeError(w, http.StatusForbidden, SuggestErrorRejectedText)
	case errors.Is(err, interaction.ErrExpired):
		writeError(w, http.StatusRequestTimeout, SuggestErrorExpiredText)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusRequestTimeout, SuggestErrorCanceledText)
	case errors.Is(err, chains.ErrChainExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logRequestError(r, "suggest chain failed", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleSuggestChainState(w http.ResponseWriter, r *http.Request) {
	view, err := s.buildSuggestionView(false)
	if err != nil {
		logRequestError(r, "read waiting suggestion", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{OK: true, Data: view})
}

func (s *Server) handleFetchCommunityChainInfo(w http.ResponseWriter, r *http.Request) {
	notFound := false
	if err := s.store.FetchCommunityChainInfo(r.Context()); err != nil {
		if !errors.Is(err, chainsuggest.ErrCommunityChainInfoNotFound) {
			logRequestError(r, "fetch community chain info", err)
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		notFound = true
	}

	view, err := s.buildSuggestionView(notFound)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{OK: true, Data: view})
}

func (s *Server) handleApproveSuggestedChain(w http.ResponseWriter, r *http.Request) {
	var req chains.ChainInfoWithRepoUpdateOptions
	if !decodeJSONBody(w, r, &req) {
		return
	}

	req.Normalize()
	if err := chains.Validate(req.ChainInfo); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var err error
	if id := r.URL.Query().Get(QueryKeyID); id != "" {
		err = s.store.ApproveByID(r.Context(), id, req)
	} else {
		err = s.store.Approve(r.Context(), req)
	}
	if err != nil {
		s.writeDecisionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{OK: true})
}

func (s *Server) handleRejectSuggestedChain(w http.ResponseWriter, r *http.Request) {
	var err error
	if id := r.URL.Query().Get(QueryKeyID); id != "" {
		err = s.store.RejectByID(r.Context(), id)
	} else {
		err = s.store.Reject(r.Context())
	}
	if err != nil {
		s.writeDecisionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{OK: true})
}

func (s *Server) handleRejectAllSuggestedChains(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RejectAll(r.Context()); err != nil {
		s.writeDecisionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{OK: true})
}

func (s *Server) handleAgentExtensionPair(w http.ResponseWriter, r *http.Request) {
	token, err := s.pairs.Pair()
	if err != nil {
		logRequestError(r, "pair extension", err)
		writeError(w, http.StatusInternalServerError, "failed to write pairing token")
		return
	}
	log.Info("extension pairing token issued", "path", s.pairs.Path())
	writeJSON(w, http.StatusOK, apiResponse{OK: true, Data: map[string]any{JSONKeyToken: token}})
}

func (s *Server) handleAgentExtensionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{OK: true, Data: map[string]any{JSONKeyPaired: s.pairs.Paired()}})
}

func (s *Server) handleListChains(w http.ResponseWriter, r *http.Request) {
	list, err := s.registry.List(r.Context())
	if err != nil {
		logRequestError(r, "list chains", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{OK: true, Data: map[string]any{JSONKeyChains: list}})
}

func (s *Server) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{OK: true, Data: map[string]any{JSONKeyGrants: s.perms.List()}})
}

func (s *Server) writeDecisionError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, interaction.ErrNotFound) {
		// decided elsewhere (terminal, another tab) in the meantime
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	logRequestError(r, "forward decision", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) buildSuggestionView(communityNotFound bool) (suggestionView, error) {
	view := suggestionView{
		CommunityChainInfoRepoURL: s.store.CommunityChainInfoRepoURL(),
		IsLoading:                 s.store.IsLoading(),
		CommunityNotFound:         communityNotFound,
	}

	waiting, ok, err := s.store.WaitingSuggestedChainInfo()
	if err != nil {
		return suggestionView{}, err
	}
	if !ok {
		return view, nil
	}

	view.Waiting = &waiting
	view.WaitingCount = s.store.WaitingCount()
	view.CommunityChainInfoURL = s.store.CommunityChainInfoURL(waiting.ChainInfo.ChainID)

	// only show the community document of the chain on screen
	if info, id := s.store.CommunityChainInfo(); info != nil && id == chains.ChainIdentifier(waiting.ChainInfo.ChainID) {
		view.CommunityChainInfo = info
	}
	return view, nil
}
