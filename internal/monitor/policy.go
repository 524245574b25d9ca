package monitor

import (
	"fmt"
	"strings"
)

// MergePolicy decides how a finished probe is merged into the stored project.
type MergePolicy int

const (
	// LastWriteWins applies every result; whichever check persists last wins,
	// even if its probe started earlier.
	LastWriteWins MergePolicy = iota

	// RejectStale applies an endpoint result only if the probe started after
	// the stored LastCheck and the endpoint URL is unchanged.
	RejectStale
)

func (m MergePolicy) String() string {
	switch m {
	case LastWriteWins:
		return "last_write_wins"
	case RejectStale:
		return "reject_stale"
	default:
		return fmt.Sprintf("MergePolicy(%d)", int(m))
	}
}

// ParseMergePolicy parses "last_write_wins" or "reject_stale".
// An empty string yields [LastWriteWins].
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last_write_wins":
		return LastWriteWins, nil
	case "reject_stale":
		return RejectStale, nil
	default:
		return LastWriteWins, fmt.Errorf("unknown merge policy %q", s)
	}
}
