package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/quantumauth-io/chain-suggest-agent/internal/chains"
	"github.com/quantumauth-io/chain-suggest-agent/internal/chainsuggest"
	"github.com/quantumauth-io/chain-suggest-agent/internal/metrics"
	"github.com/quantumauth-io/chain-suggest-agent/internal/pairing"
	"github.com/quantumauth-io/chain-suggest-agent/internal/permissions"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// Options tunes the agent server.
type Options struct {
	// Origins allowed to load the approval screen.
	UIAllowedOrigins []string
	// Token the approval screen must send in X-CSA-Session. Generated when empty.
	AgentSessionToken string
}

type Server struct {
	ctx      context.Context
	mux      *http.ServeMux
	store    *chainsuggest.Store
	service  *chainsuggest.Service
	registry *chains.Registry
	perms    *permissions.Store
	pairs    *pairing.Store

	agentSessionToken string
	uiAllowedOrigins  map[string]struct{}
}

// NewServer builds the agent API. Blocking dApp requests are released when
// ctx is done.
func NewServer(ctx context.Context, store *chainsuggest.Store, service *chainsuggest.Service,
	registry *chains.Registry, perms *permissions.Store, pairs *pairing.Store, opts Options) (*Server, error) {
	if store == nil || service == nil || registry == nil || perms == nil || pairs == nil {
		return nil, errors.New("agent server dependencies must not be nil")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	s := &Server{
		ctx:      ctx,
		mux:      http.NewServeMux(),
		store:    store,
		service:  service,
		registry: registry,
		perms:    perms,
		pairs:    pairs,
	}

	s.agentSessionToken = opts.AgentSessionToken
	if s.agentSessionToken == "" {
		token, err := newSessionToken()
		if err != nil {
			return nil, err
		}
		s.agentSessionToken = token
	}

	s.uiAllowedOrigins = make(map[string]struct{}, len(opts.UIAllowedOrigins))
	for _, o := range opts.UIAllowedOrigins {
		o = permissions.NormalizeOrigin(o)
		if o == "" {
			continue
		}
		s.uiAllowedOrigins[o] = struct{}{}
	}

	localUICors := corsPolicy{
		allowedOrigins: s.uiAllowedOrigins,
		allowMethods:   "GET,OPTIONS",
		allowHeaders:   "", // echo requested
		maxAge:         600,
	}

	s.mux.HandleFunc("/healthz", s.withCORS(localUICors, s.withLoopbackOnly(requireMethod(http.MethodGet, s.handleHealth))))
	s.mux.HandleFunc("/metrics", s.withLoopbackOnly(metrics.Handler().ServeHTTP))

	// dApp side (paired extension only)
	s.mux.HandleFunc("/wallet/suggestChain", s.withExtensionPairedGuards(requireMethod(http.MethodPost, s.handleSuggestChain)))

	// extension pairing
	s.mux.HandleFunc("/agent/extension/pair", s.withAgentGuards(requireMethod(http.MethodPost, s.handleAgentExtensionPair)))
	s.mux.HandleFunc("/agent/extension/status", s.withAgentGuards(requireMethod(http.MethodGet, s.handleAgentExtensionStatus)))

	// approval screen
	s.mux.HandleFunc("/agent/suggest-chain", s.withAgentGuards(requireMethod(http.MethodGet, s.handleSuggestChainState)))
	s.mux.HandleFunc("/agent/suggest-chain/community", s.withAgentGuards(requireMethod(http.MethodPost, s.handleFetchCommunityChainInfo)))
	s.mux.HandleFunc("/agent/suggest-chain/approve", s.withAgentGuards(requireMethod(http.MethodPost, s.handleApproveSuggestedChain)))
	s.mux.HandleFunc("/agent/suggest-chain/reject", s.withAgentGuards(requireMethod(http.MethodPost, s.handleRejectSuggestedChain)))
	s.mux.HandleFunc("/agent/suggest-chain/reject-all", s.withAgentGuards(requireMethod(http.MethodPost, s.handleRejectAllSuggestedChains)))

	s.mux.HandleFunc("/agent/chains", s.withAgentGuards(requireMethod(http.MethodGet, s.handleListChains)))
	s.mux.HandleFunc("/agent/permissions", s.withAgentGuards(requireMethod(http.MethodGet, s.handleListPermissions)))

	return s, nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// AgentSessionToken is handed to the approval screen out of band.
func (s *Server) AgentSessionToken() string {
	return s.agentSessionToken
}

// GUARDS (Middleware)
func (s *Server) withCORS(policy corsPolicy, next Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		originRaw := r.Header.Get("Origin")
		if originRaw != "" {
			origin := permissions.NormalizeOrigin(originRaw)
			if origin == "" {
				http.Error(w, HTTPErrorForbiddenOriginText, http.StatusForbidden)
				return
			}

			// enforce allowlist if provided
			if policy.allowedOrigins != nil {
				if _, ok := policy.allowedOrigins[origin]; !ok {
					http.Error(w, HTTPErrorForbiddenOriginText, http.StatusForbidden)
					return
				}
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			if policy.allowMethods != "" {
				w.Header().Set("Access-Control-Allow-Methods", policy.allowMethods)
			}

			if policy.allowHeaders != "" {
				w.Header().Set("Access-Control-Allow-Headers", policy.allowHeaders)
			} else if reqHdrs := r.Header.Get("Access-Control-Request-Headers"); reqHdrs != "" {
				w.Header().Set("Access-Control-Allow-Headers", reqHdrs)
			}

			if policy.maxAge > 0 {
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(policy.maxAge))
			}
		}

		// Preflight ends here
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

func (s *Server) withLoopbackOnly(next Handler) Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		if !isLoopbackRequest(r) {
			http.Error(w, HTTPErrorForbiddenText, http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (s *Server) withAgentGuards(next Handler) http.HandlerFunc {
	cors := corsPolicy{
		allowedOrigins: s.uiAllowedOrigins,
		allowMethods:   "GET,POST,OPTIONS",
		allowHeaders:   "",
		maxAge:         600,
	}

	return s.withCORS(cors, func(w http.ResponseWriter, r *http.Request) {
		if !isLoopbackRequest(r) {
			http.Error(w, HTTPErrorForbiddenText, http.StatusForbidden)
			return
		}
		if r.Header.Get(AgentSessionHeader) != s.agentSessionToken {
			http.Error(w, HTTPErrorUnauthorizedText, http.StatusUnauthorized)
			return
		}
		if !isSafeLocalHost(r.Host) {
			http.Error(w, HTTPErrorForbiddenHostText, http.StatusForbidden)
			return
		}
		next(w, r)
	})
}

// For endpoints that change permissions: require the paired extension token.
func (s *Server) withExtensionPairedGuards(next Handler) http.HandlerFunc {
	extCors := corsPolicy{
		allowedOrigins: nil, // allow any valid Origin (extension has unique origin)
		allowMethods:   "POST,OPTIONS",
		allowHeaders:   "", // echo (covers X-CSA-Extension)
		maxAge:         600,
	}

	return s.withCORS(extCors, func(w http.ResponseWriter, r *http.Request) {
		if !isLoopbackRequest(r) {
			http.Error(w, HTTPErrorForbiddenText, http.StatusForbidden)
			return
		}
		if !isSafeLocalHost(r.Host) {
			http.Error(w, HTTPErrorForbiddenHostText, http.StatusForbidden)
			return
		}

		if err := s.pairs.Verify(r.Header.Get(ExtensionPairHeader)); err != nil {
			if errors.Is(err, pairing.ErrNotPaired) {
				http.Error(w, HTTPErrorNotPairedText, http.StatusPreconditionRequired)
				return
			}
			log.Info("extension paired guards", "path", r.URL.Path, "error", err)
			http.Error(w, HTTPErrorUnauthorizedText, http.StatusUnauthorized)
			return
		}
		next(w, r)
	})
}

func logRequestError(r *http.Request, msg string, err error) {
	log.Error(msg, "path", r.URL.Path, "error", err)
}
