package constants

const (
	AppName         = "chain-suggest-agent"
	ChainsFile      = "chains.json"
	PermissionsFile = "permissions.json"
	PairingFile     = "pairing.json"
	ConfigFile      = "config.yaml"

	SchemaV1      = 1
	FilePerm      = 0o600
	DirectoryPerm = 0o700

	// Interaction type used by dApps suggesting a new chain.
	SuggestChainInfoType = "suggest-chain-info"

	// Community chain registry layout.
	GithubWebBaseURL     = "https://github.com"
	GithubRawBaseURL     = "https://raw.githubusercontent.com"
	CommunityRepoBranch  = "main"
	CommunityCosmosDir   = "cosmos"
	CommunityFileExt     = ".json"
	DefaultCommunityOrg  = "chainapsis"
	DefaultCommunityRepo = "keplr-chain-registry"

	EnvPrefix = "CSA"
)
