package chains

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// versionFormat matches "{identifier}-{version}", e.g. "cosmoshub-4".
var versionFormat = regexp.MustCompile(`^(.+)-(\d+)$`)

// ChainIDVersion is a chain id split into its stable identifier and revision.
type ChainIDVersion struct {
	Identifier string
	Version    uint64
}

// ParseChainID splits a cosmos style chain id. Ids that do not carry a
// numeric revision suffix are returned whole with version 0. A revision too
// large for uint64 still splits, with the version clamped to MaxUint64.
func ParseChainID(chainID string) ChainIDVersion {
	chainID = strings.TrimSpace(chainID)

	m := versionFormat.FindStringSubmatch(chainID)
	if m == nil {
		return ChainIDVersion{Identifier: chainID}
	}

	v, err := strconv.ParseUint(m[2], 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		v = math.MaxUint64
	} else if err != nil {
		return ChainIDVersion{Identifier: chainID}
	}
	return ChainIDVersion{Identifier: m[1], Version: v}
}

// ChainIdentifier returns the revision-independent identifier of chainID.
func ChainIdentifier(chainID string) string {
	return ParseChainID(chainID).Identifier
}

// HasVersionFormat reports whether chainID carries a revision suffix.
func HasVersionFormat(chainID string) bool {
	return versionFormat.MatchString(strings.TrimSpace(chainID))
}
