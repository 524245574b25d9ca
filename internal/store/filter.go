package store

import (
	"fmt"
	"strings"
)

// Query selects projects for display.
type Query struct {
	// Search matches case-insensitively against name and description.
	// Empty matches everything.
	Search string

	// Statuses keeps projects with at least one configured endpoint in one
	// of these states. Empty matches everything.
	Statuses []Status
}

// Matches reports whether p satisfies q.
func (q Query) Matches(p Project) bool {
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		if !strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			return false
		}
	}
	if len(q.Statuses) == 0 {
		return true
	}
	return (p.Local.Configured() && q.hasStatus(p.Local.Status)) ||
		(p.Cloud.Configured() && q.hasStatus(p.Cloud.Status))
}

func (q Query) hasStatus(s Status) bool {
	for _, want := range q.Statuses {
		if want == s {
			return true
		}
	}
	return false
}

// Filter returns the projects matching q, preserving order. The input slice
// is not modified.
func Filter(projects []Project, q Query) []Project {
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		if q.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// ParseStatuses parses a comma-separated status list such as
// "online,offline". Blank entries are skipped.
func ParseStatuses(s string) ([]Status, error) {
	var out []Status
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		st := Status(part)
		if !st.Valid() {
			return nil, &ValidationError{Err: fmt.Errorf("unknown status %q", part)}
		}
		out = append(out, st)
	}
	return out, nil
}
