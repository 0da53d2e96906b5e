package http

// Headers
const (
	AgentSessionHeader  = "X-CSA-Session"
	ExtensionPairHeader = "X-CSA-Extension"
)

// Generic HTTP / JSON strings
const (
	HTTPErrorMethodNotAllowedText = "method not allowed"
	HTTPErrorInvalidJSONText      = "invalid JSON"
	HTTPErrorForbiddenText        = "forbidden"
	HTTPErrorForbiddenOriginText  = "forbidden origin"
	HTTPErrorForbiddenHostText    = "forbidden host"
	HTTPErrorUnauthorizedText     = "unauthorized"
	HTTPErrorNotPairedText        = "extension not paired"
)

// Common JSON keys
const (
	JSONKeyChains = "chains"
	JSONKeyGrants = "grants"
	JSONKeyPaired = "paired"
	JSONKeyToken  = "pairingToken"
)

// QueryKeyID pins an approve/reject to the suggestion the screen shows.
const QueryKeyID = "id"

// Suggestion errors surfaced to the dApp
const (
	SuggestErrorRejectedText = "request rejected"
	SuggestErrorExpiredText  = "request expired"
	SuggestErrorCanceledText = "request canceled"
	SuggestErrorOriginText   = "origin does not match the requesting page"
)

const maxRequestBodyBytes = 1 << 20
