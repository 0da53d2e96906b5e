package http

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/quantumauth-io/chain-suggest-agent/internal/permissions"
)

var extensionSchemes = []string{"chrome-extension://", "moz-extension://", "safari-web-extension://"}

func isExtensionOrigin(origin string) bool {
	for _, scheme := range extensionSchemes {
		if strings.HasPrefix(origin, scheme) {
			return true
		}
	}
	return false
}

// requestOrigin returns the origin a dApp request is attributed to. Pages
// speak for their own Origin; only the extension, calling from its own
// origin or from none, reports the dApp origin in the body.
func requestOrigin(r *http.Request, bodyOrigin string) (string, bool) {
	header := permissions.NormalizeOrigin(r.Header.Get("Origin"))
	if header == "" || isExtensionOrigin(header) {
		return bodyOrigin, true
	}
	if strings.TrimSpace(bodyOrigin) != "" && permissions.NormalizeOrigin(bodyOrigin) != header {
		return "", false
	}
	return header, true
}

// Handler is a convenience type so we can wrap common behavior.
type Handler func(http.ResponseWriter, *http.Request)

func requireMethod(method string, next Handler) Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, HTTPErrorMethodNotAllowedText, http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func isLoopbackRequest(r *http.Request) bool {
	ra := r.RemoteAddr

	h, _, err := net.SplitHostPort(ra)
	if err != nil {
		ip := net.ParseIP(ra)
		return ip != nil && ip.IsLoopback()
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}

func isSafeLocalHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.ToLower(host)
	return host == "127.0.0.1" || host == "localhost" || host == "::1"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiResponse{OK: false, Error: msg})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, HTTPErrorInvalidJSONText)
		return false
	}
	return true
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
